/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package container

import (
	"context"
	"fmt"
	"os"

	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/internal/rnd"
)

// Create makes a new file of the given size filled with uniform random
// bytes. The file is created exclusively; an existing path is an error. On
// any failure or cancellation the partial file is removed.
func Create(ctx context.Context, path string, size int64, progress func(float64)) error {
	if size < 0 {
		return fmt.Errorf("%w: negative size %d", errs.ErrBadInput, size)
	}

	// #nosec G304 -- file path provided by caller
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errs.IO("create random file", err)
	}

	if err := rnd.Fill(ctx, f, size, progress); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return errs.IO("sync random file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return errs.IO("close random file", err)
	}

	return nil
}
