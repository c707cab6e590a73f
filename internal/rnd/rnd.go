/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Package rnd is the uniform random byte source shared by salt generation,
// padding, comment filler, and bulk container fills.
package rnd

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/purbtools/cryptoblob/internal/errs"
)

// FillChunkSize is the buffer size used for bulk random fills.
const FillChunkSize = 128 * 1024

// Read fills b with cryptographically secure random bytes.
func Read(b []byte) error {
	if _, err := rand.Read(b); err != nil {
		return fmt.Errorf("fatal crypto/rand error: %w", err)
	}

	// Sanity check: output should not be all zeros.
	if len(b) >= 16 {
		allZero := true
		for _, v := range b {
			if v != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return errors.New("fatal crypto/rand error: produced zero bytes")
		}
	}

	return nil
}

// Bytes returns n cryptographically secure random bytes.
func Bytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Fill writes n random bytes to dst in FillChunkSize chunks. The progress
// callback, if non-nil, receives a fraction in [0, 1] at roughly 20%
// intervals.
func Fill(ctx context.Context, dst io.Writer, n int64, progress func(float64)) error {
	if n < 0 {
		return fmt.Errorf("%w: negative fill size %d", errs.ErrBadInput, n)
	}

	buf := make([]byte, FillChunkSize)
	var written int64
	progressNext := int64(0)
	progressStep := n / 5

	for written < n {
		if ctx.Err() != nil {
			return errs.ErrCancelled
		}

		chunk := buf
		if remaining := n - written; remaining < int64(len(buf)) {
			chunk = buf[:remaining]
		}
		if err := Read(chunk); err != nil {
			return err
		}
		if _, err := dst.Write(chunk); err != nil {
			return errs.IO("write random fill", err)
		}
		written += int64(len(chunk))

		if progress != nil && written >= progressNext {
			progress(float64(written) / float64(n))
			progressNext += progressStep
		}
	}

	if progress != nil {
		progress(1.0)
	}

	return nil
}
