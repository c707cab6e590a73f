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

// EncryptResult reports a completed encryption.
type EncryptResult struct {
	// BlobSize is the exact number of blob bytes written.
	BlobSize int64

	// Start and End delimit the blob span. For a standalone blob file the
	// span is [0, BlobSize); for a container embed it is the caller-chosen
	// offset plus the blob size. The pair is the user's to remember — the
	// blob records neither.
	Start int64
	End   int64

	// CommentTruncated is set when the comment exceeded the 512-byte
	// region and lost its sentinel.
	CommentTruncated bool
}

// EncryptFile encrypts srcPath into a new standalone blob file at dstPath.
// On any error or cancellation the partial output is removed.
func EncryptFile(ctx context.Context, srcPath, dstPath string, kr Keyring, opts ...Option) (*EncryptResult, error) {
	// #nosec G304 -- file path provided by caller
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, errs.IO("open source file", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, errs.IO("stat source file", err)
	}
	payloadSize := info.Size()

	enc, err := newEncoderFor(ctx, kr, opts)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- file path provided by caller
	dst, err := os.Create(dstPath)
	if err != nil {
		return nil, errs.IO("create output file", err)
	}

	res, err := encodeTo(ctx, enc, src, payloadSize, dst)
	if err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, err
	}

	if err := syncIfDevice(dst); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return nil, errs.IO("close output file", err)
	}

	return &EncryptResult{
		BlobSize:         res.BlobSize,
		Start:            0,
		End:              res.BlobSize,
		CommentTruncated: res.CommentTruncated,
	}, nil
}

// EncryptToContainer encrypts srcPath directly into an existing container
// at the given offset and fsyncs. The container is never created, grown, or
// removed here; a failure mid-write leaves it damaged over the target span,
// which the caller must be told about.
func EncryptToContainer(ctx context.Context, srcPath, containerPath string, offset int64, kr Keyring, opts ...Option) (*EncryptResult, error) {
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset %d", errs.ErrBadInput, offset)
	}

	// #nosec G304 -- file path provided by caller
	src, err := os.Open(srcPath)
	if err != nil {
		return nil, errs.IO("open source file", err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return nil, errs.IO("stat source file", err)
	}
	payloadSize := info.Size()

	enc, err := newEncoderFor(ctx, kr, opts)
	if err != nil {
		return nil, err
	}

	blobSize, err := enc.BlobSize(payloadSize)
	if err != nil {
		return nil, err
	}

	// #nosec G304 -- file path provided by caller
	dst, err := os.OpenFile(containerPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, errs.IO("open container", err)
	}
	defer dst.Close()

	cinfo, err := dst.Stat()
	if err != nil {
		return nil, errs.IO("stat container", err)
	}
	if cinfo.Mode().IsRegular() && offset+blobSize > cinfo.Size() {
		return nil, fmt.Errorf("%w: blob of %d bytes does not fit at offset %d in container of %d bytes",
			errs.ErrBadInput, blobSize, offset, cinfo.Size())
	}

	if _, err := dst.Seek(offset, io.SeekStart); err != nil {
		return nil, errs.IO("seek container", err)
	}

	res, err := encodeTo(ctx, enc, src, payloadSize, dst)
	if err != nil {
		return nil, err
	}

	if err := dst.Sync(); err != nil {
		return nil, errs.IO("sync container", err)
	}

	return &EncryptResult{
		BlobSize:         res.BlobSize,
		Start:            offset,
		End:              offset + res.BlobSize,
		CommentTruncated: res.CommentTruncated,
	}, nil
}

// newEncoderFor draws salts, gathers the keyring under them, and runs the
// key schedule.
func newEncoderFor(ctx context.Context, kr Keyring, opts []Option) (*codec.Encoder, error) {
	salts, err := codec.NewSalts()
	if err != nil {
		return nil, err
	}
	digests, err := gatherIKM(ctx, kr, salts.PH[:])
	if err != nil {
		return nil, err
	}
	return codec.NewEncoder(salts, digests, opts...)
}

// encodeTo runs the encoder over buffered streams and flushes.
func encodeTo(ctx context.Context, enc *codec.Encoder, src *os.File, payloadSize int64, dst *os.File) (*codec.EncodeResult, error) {
	r := bufio.NewReaderSize(src, codec.ChunkSize)
	w := bufio.NewWriterSize(dst, codec.ChunkSize)

	res, err := enc.Encode(ctx, r, payloadSize, w)
	if err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, errs.IO("flush output", err)
	}
	return res, nil
}

// syncIfDevice fsyncs non-regular destinations (block devices).
func syncIfDevice(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return errs.IO("stat output", err)
	}
	if !info.Mode().IsRegular() {
		if err := f.Sync(); err != nil {
			return errs.IO("sync output", err)
		}
	}
	return nil
}
