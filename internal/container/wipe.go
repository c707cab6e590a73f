/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package container

import (
	"context"
	"io"
	"os"

	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/internal/rnd"
)

// Wipe overwrites the range [start, end) of an existing file or block
// device with uniform random bytes and fsyncs. The file is never truncated
// or removed: a wiped container is still a container.
func Wipe(ctx context.Context, path string, start, end int64, progress func(float64)) (*Receipt, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}

	// #nosec G304 -- file path provided by caller
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return nil, errs.IO("open for overwrite", err)
	}
	defer f.Close()

	if err := checkSpan(f, start, end); err != nil {
		return nil, err
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, errs.IO("seek for overwrite", err)
	}

	if err := rnd.Fill(ctx, f, end-start, progress); err != nil {
		return nil, err
	}

	if err := f.Sync(); err != nil {
		return nil, errs.IO("sync after overwrite", err)
	}

	sum, err := RangeChecksum(path, start, end)
	if err != nil {
		return nil, err
	}
	return &Receipt{Start: start, End: end, SHA256: sum}, nil
}
