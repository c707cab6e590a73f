/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package container

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/secure"
)

// RangeChecksum computes the SHA-256 checksum of the byte range
// [start, end) of a file.
func RangeChecksum(path string, start, end int64) ([]byte, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}

	// #nosec G304 -- file path provided by caller
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.IO("open for checksum", err)
	}
	defer f.Close()

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, errs.IO("seek for checksum", err)
	}

	h := sha256.New()
	if _, err := io.CopyN(h, f, end-start); err != nil {
		return nil, errs.IO("read for checksum", err)
	}
	return h.Sum(nil), nil
}

// RangeChecksumHex computes the SHA-256 checksum of a range as a hex string.
func RangeChecksumHex(path string, start, end int64) (string, error) {
	sum, err := RangeChecksum(path, start, end)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(sum), nil
}

// VerifyRangeChecksum checks whether the range matches the given checksum.
func VerifyRangeChecksum(path string, start, end int64, sum []byte) (bool, error) {
	actual, err := RangeChecksum(path, start, end)
	if err != nil {
		return false, err
	}
	return secure.Compare(actual, sum), nil
}

func validRange(start, end int64) error {
	if start < 0 || end < start {
		return fmt.Errorf("%w: invalid range [%d, %d)", errs.ErrBadInput, start, end)
	}
	return nil
}
