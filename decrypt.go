/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package cryptoblob

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/purbtools/cryptoblob/internal/codec"
	"github.com/purbtools/cryptoblob/internal/errs"
)

// DecryptResult reports a completed decryption.
type DecryptResult struct {
	// Comment is the recovered comments text.
	Comment string

	// PayloadSize is the recovered plaintext size.
	PayloadSize int64

	// Verified is true when the MAC checked out. It can be false only
	// under WithUnsafeRelease; in strict mode a mismatch surfaces as
	// ErrMACFail and the output is discarded.
	Verified bool
}

// DecryptFile decrypts a standalone blob file into dstPath.
func DecryptFile(ctx context.Context, blobPath, dstPath string, kr Keyring, opts ...Option) (*DecryptResult, error) {
	// #nosec G304 -- file path provided by caller
	f, err := os.Open(blobPath)
	if err != nil {
		return nil, errs.IO("open blob", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.IO("stat blob", err)
	}

	return decryptSpan(ctx, f, 0, info.Size(), dstPath, kr, opts)
}

// DecryptRange decrypts the blob living at [start, end) inside a container.
// The span is the out-of-band knowledge the user kept from embedding.
func DecryptRange(ctx context.Context, containerPath string, start, end int64, dstPath string, kr Keyring, opts ...Option) (*DecryptResult, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: invalid span [%d, %d)", errs.ErrBadInput, start, end)
	}

	// #nosec G304 -- file path provided by caller
	f, err := os.Open(containerPath)
	if err != nil {
		return nil, errs.IO("open container", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, errs.IO("stat container", err)
	}
	if info.Mode().IsRegular() && end > info.Size() {
		return nil, fmt.Errorf("%w: span [%d, %d) exceeds container size %d", errs.ErrBadInput, start, end, info.Size())
	}

	return decryptSpan(ctx, f, start, end, dstPath, kr, opts)
}

// decryptSpan fetches the two salt fragments from the span's ends, runs the
// key schedule, and drives the single forward pass. The only seeks are the
// initial two-point salt fetch.
func decryptSpan(ctx context.Context, f *os.File, start, end int64, dstPath string, kr Keyring, opts []Option) (*DecryptResult, error) {
	blobSize := end - start
	if blobSize < codec.MinBlobSize {
		return nil, errs.ErrLengthMismatch
	}

	var head [codec.SaltHeadSize]byte
	if _, err := f.ReadAt(head[:], start); err != nil {
		return nil, errs.IO("read salt head", err)
	}
	var tail [codec.SaltTailSize]byte
	if _, err := f.ReadAt(tail[:], end-codec.SaltTailSize); err != nil {
		return nil, errs.IO("read salt tail", err)
	}
	salts := codec.SaltsFromHalves(head, tail)

	digests, err := gatherIKM(ctx, kr, salts.PH[:])
	if err != nil {
		return nil, err
	}

	dec, err := codec.NewDecoder(salts, digests, opts...)
	if err != nil {
		return nil, err
	}

	if _, err := f.Seek(start+codec.SaltHeadSize, io.SeekStart); err != nil {
		return nil, errs.IO("seek blob body", err)
	}

	// #nosec G304 -- file path provided by caller
	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, errs.IO("create output file", err)
	}

	r := bufio.NewReaderSize(f, codec.ChunkSize)
	w := bufio.NewWriterSize(dst, codec.ChunkSize)

	res, decodeErr := dec.Decode(ctx, r, blobSize, w)

	if decodeErr == nil {
		if err := w.Flush(); err != nil {
			decodeErr = errs.IO("flush output", err)
		}
	}

	if decodeErr != nil {
		// Strict-mode MAC failures land here too: the output is discarded
		// before the error is surfaced.
		dst.Truncate(0)
		dst.Close()
		os.Remove(dstPath)
		if res != nil {
			return nil, fmt.Errorf("decrypt: %w", decodeErr)
		}
		return nil, decodeErr
	}

	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return nil, errs.IO("close output file", err)
	}

	return &DecryptResult{
		Comment:     res.Comment,
		PayloadSize: res.PayloadSize,
		Verified:    res.Verified,
	}, nil
}
