/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Package container moves byte ranges between opaque carriers and prepares
// carriers with uniform random content. A cryptoblob embedded here is
// indistinguishable from the surrounding bytes; the (start, end) span and
// the keys are the only map the user has.
package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/purbtools/cryptoblob/internal/errs"
)

// DefaultChunkSize is the copy unit for range operations.
const DefaultChunkSize = 128 * 1024

// chunkSize returns the copy unit, honoring the CRYPTOBLOB_CHUNKSIZE
// environment override (a humanized byte size such as "1MiB").
func chunkSize() int {
	if env, exists := os.LookupEnv("CRYPTOBLOB_CHUNKSIZE"); exists {
		if size, err := humanize.ParseBytes(env); err == nil && size > 0 && size <= uint64(math.MaxInt32) {
			return int(size)
		}
	}
	return DefaultChunkSize
}

// Receipt reports a completed range operation.
type Receipt struct {
	// Start and End delimit the affected range of the container.
	Start int64
	End   int64

	// SHA256 is the checksum of the written or read range.
	SHA256 []byte
}

// Embed writes the whole of srcPath over the destination range starting at
// offset. The destination must already exist and be large enough; embedding
// never grows a container. The write is fsynced and a checksum of the
// written range is returned as a receipt.
func Embed(ctx context.Context, srcPath, dstPath string, offset int64, progress func(float64)) (*Receipt, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", errs.ErrBadInput, offset)
	}

	// #nosec G304 -- file path provided by caller
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, errs.IO("open source", err)
	}
	defer src.Close()

	srcInfo, err := src.Stat()
	if err != nil {
		return nil, errs.IO("stat source", err)
	}
	length := srcInfo.Size()

	// #nosec G304 -- file path provided by caller
	dst, err := os.OpenFile(dstPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, errs.IO("open container", err)
	}
	defer dst.Close()

	if err := checkSpan(dst, offset, offset+length); err != nil {
		return nil, err
	}

	if _, err := dst.Seek(offset, io.SeekStart); err != nil {
		return nil, errs.IO("seek container", err)
	}

	if err := copyRange(ctx, src, dst, length, progress); err != nil {
		return nil, err
	}

	if err := dst.Sync(); err != nil {
		return nil, errs.IO("sync container", err)
	}

	sum, err := RangeChecksum(dstPath, offset, offset+length)
	if err != nil {
		return nil, err
	}
	return &Receipt{Start: offset, End: offset + length, SHA256: sum}, nil
}

// Extract reads the range [start, end) out of a container into a new file.
// The destination is created exclusively; extraction never overwrites.
func Extract(ctx context.Context, containerPath string, start, end int64, dstPath string, progress func(float64)) (*Receipt, error) {
	if err := validRange(start, end); err != nil {
		return nil, err
	}

	// #nosec G304 -- file path provided by caller
	src, err := os.Open(containerPath)
	if err != nil {
		return nil, errs.IO("open container", err)
	}
	defer src.Close()

	if err := checkSpan(src, start, end); err != nil {
		return nil, err
	}

	if _, err := src.Seek(start, io.SeekStart); err != nil {
		return nil, errs.IO("seek container", err)
	}

	// #nosec G304 -- file path provided by caller
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, errs.IO("create output", err)
	}

	if err := copyRange(ctx, src, dst, end-start, progress); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, err
	}

	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, errs.IO("sync output", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return nil, errs.IO("close output", err)
	}

	sum, err := RangeChecksum(dstPath, 0, end-start)
	if err != nil {
		return nil, err
	}
	return &Receipt{Start: start, End: end, SHA256: sum}, nil
}

// checkSpan verifies that [start, end) lies within a regular file; other
// file kinds, such as block devices, are not size-checked.
func checkSpan(f *os.File, start, end int64) error {
	info, err := f.Stat()
	if err != nil {
		return errs.IO("stat container", err)
	}
	size := info.Size()
	if info.Mode().IsRegular() && end > size {
		return fmt.Errorf("%w: range [%d, %d) exceeds container size %d", errs.ErrBadInput, start, end, size)
	}
	return nil
}

// copyRange moves exactly length bytes from src to dst in chunks, checking
// for cancellation between chunks.
func copyRange(ctx context.Context, src io.Reader, dst io.Writer, length int64, progress func(float64)) error {
	buf := make([]byte, chunkSize())
	var copied int64
	progressNext := int64(0)
	progressStep := length / 5

	for copied < length {
		if ctx.Err() != nil {
			return errs.ErrCancelled
		}

		chunk := buf
		if remaining := length - copied; remaining < int64(len(buf)) {
			chunk = buf[:remaining]
		}
		if _, err := io.ReadFull(src, chunk); err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: source shorter than range", errs.ErrBadInput)
			}
			return errs.IO("read range", err)
		}
		if _, err := dst.Write(chunk); err != nil {
			return errs.IO("write range", err)
		}
		copied += int64(len(chunk))

		if progress != nil && length > 0 && copied >= progressNext {
			progress(float64(copied) / float64(length))
			progressNext += progressStep
		}
	}

	if progress != nil {
		progress(1.0)
	}
	return nil
}
