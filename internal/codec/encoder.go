/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// encoder.go: Single-pass cryptoblob assembly.
package codec

import (
	"context"
	"io"

	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/internal/kdf"
	"github.com/purbtools/cryptoblob/internal/padalg"
	"github.com/purbtools/cryptoblob/internal/rnd"
)

// Encoder turns (payload, comment, derived keys) into a cryptoblob. One
// Encoder serves one blob: the key schedule runs in NewEncoder, so
// construction may take as long as the configured Argon2 time cost demands.
type Encoder struct {
	cfg   *Config
	salts Salts
	keys  *kdf.SubKeys
}

// EncodeResult reports what the encoder produced.
type EncodeResult struct {
	// BlobSize is the exact number of bytes written.
	BlobSize int64

	// CommentTruncated is set when the comment filled the whole region and
	// lost its sentinel. The decoder will recover the truncated text.
	CommentTruncated bool
}

// NewEncoder runs the key schedule over the supplied salts and IKM
// digests. The salts come first in the pipeline: the digests must have been
// computed under the same pre-hash salt (see codec.NewSalts).
func NewEncoder(salts Salts, digests [][]byte, opts ...Option) (*Encoder, error) {
	cfg := newConfig(opts...)

	password, err := kdf.Password(digests, salts.PH[:])
	if err != nil {
		return nil, err
	}
	keys, err := kdf.Derive(password, salts.KDF[:], cfg.TimeCost)
	if err != nil {
		return nil, err
	}

	return &Encoder{cfg: cfg, salts: salts, keys: keys}, nil
}

// BlobSize returns the exact output size for a payload of size n.
func (e *Encoder) BlobSize(n int64) (int64, error) {
	return padalg.BlobSize(e.keys.PadTotal[:], n, e.cfg.PadPercent)
}

// Encode writes one complete cryptoblob to dst, consuming exactly
// payloadSize bytes from src. The write order is strictly the blob byte
// order; nothing is buffered beyond one chunk.
func (e *Encoder) Encode(ctx context.Context, src io.Reader, payloadSize int64, dst io.Writer) (*EncodeResult, error) {
	chunks, err := payloadChunks(payloadSize)
	if err != nil {
		return nil, err
	}

	padTotal, err := padalg.Total(e.keys.PadTotal[:], CommentsSize+payloadSize, e.cfg.PadPercent)
	if err != nil {
		return nil, err
	}
	padHead, padTail := padalg.Split(e.keys.PadSplit[:], padTotal)

	saltHead := e.salts.Head()
	saltTail := e.salts.Tail()

	mac, err := newMAC(&e.keys.MAC, saltHead, saltTail)
	if err != nil {
		return nil, err
	}

	if _, err := dst.Write(saltHead[:]); err != nil {
		return nil, errs.IO("write salt head", err)
	}

	if err := rnd.Fill(ctx, dst, padHead, nil); err != nil {
		return nil, errs.Wrap("write head pad", err)
	}

	comments, truncated, err := packComments(e.cfg.Comment)
	if err != nil {
		return nil, err
	}
	ctComments := make([]byte, CommentsSize)
	if err := encryptSegment(&e.keys.Enc, commentsCounter, ctComments, comments); err != nil {
		return nil, err
	}
	mac.Write(ctComments)
	if _, err := dst.Write(ctComments); err != nil {
		return nil, errs.IO("write comments", err)
	}

	buf := make([]byte, ChunkSize)
	remaining := payloadSize
	var written int64
	progressNext := int64(0)
	progressStep := payloadSize / 5

	for i := uint64(0); i < chunks; i++ {
		if ctx.Err() != nil {
			return nil, errs.ErrCancelled
		}

		chunk := buf
		if remaining < int64(len(buf)) {
			chunk = buf[:remaining]
		}
		if _, err := io.ReadFull(src, chunk); err != nil {
			return nil, errs.IO("read payload", err)
		}

		if err := encryptSegment(&e.keys.Enc, commentsCounter+1+i, chunk, chunk); err != nil {
			return nil, err
		}
		mac.Write(chunk)
		if _, err := dst.Write(chunk); err != nil {
			return nil, errs.IO("write payload", err)
		}

		remaining -= int64(len(chunk))
		written += int64(len(chunk))

		if e.cfg.Progress != nil && payloadSize > 0 && written >= progressNext {
			e.cfg.Progress(float64(written) / float64(payloadSize))
			progressNext += progressStep
		}
	}

	tag := mac.Sum(nil)
	if e.cfg.FakeMAC {
		if err := rnd.Read(tag); err != nil {
			return nil, err
		}
	}
	if _, err := dst.Write(tag); err != nil {
		return nil, errs.IO("write MAC", err)
	}

	if err := rnd.Fill(ctx, dst, padTail, nil); err != nil {
		return nil, errs.Wrap("write tail pad", err)
	}

	if _, err := dst.Write(saltTail[:]); err != nil {
		return nil, errs.IO("write salt tail", err)
	}

	if e.cfg.Progress != nil {
		e.cfg.Progress(1.0)
	}

	size := int64(SaltHeadSize) + padHead + CommentsSize + payloadSize + MACSize + padTail + SaltTailSize
	return &EncodeResult{BlobSize: size, CommentTruncated: truncated}, nil
}
