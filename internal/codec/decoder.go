/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// decoder.go: Single-pass cryptoblob parsing and verification.
package codec

import (
	"context"
	"io"

	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/internal/kdf"
	"github.com/purbtools/cryptoblob/internal/padalg"
	"github.com/purbtools/cryptoblob/secure"
)

// Decoder parses a cryptoblob whose salts have already been fetched from
// both ends of the span. Like the encoder it runs the full key schedule at
// construction.
type Decoder struct {
	cfg   *Config
	salts Salts
	keys  *kdf.SubKeys
}

// DecodeResult reports what the decoder recovered.
type DecodeResult struct {
	// Comment is the recovered comments text.
	Comment string

	// PayloadSize is the recovered plaintext payload size.
	PayloadSize int64

	// Verified is true when the stored MAC matched the computed one. It is
	// false only in unsafe-release mode; in strict mode a mismatch is an
	// error instead.
	Verified bool
}

// NewDecoder runs the key schedule for a blob with the given reassembled
// salts and IKM digests.
func NewDecoder(salts Salts, digests [][]byte, opts ...Option) (*Decoder, error) {
	cfg := newConfig(opts...)

	password, err := kdf.Password(digests, salts.PH[:])
	if err != nil {
		return nil, err
	}
	keys, err := kdf.Derive(password, salts.KDF[:], cfg.TimeCost)
	if err != nil {
		return nil, err
	}

	return &Decoder{cfg: cfg, salts: salts, keys: keys}, nil
}

// PayloadSize recovers the plaintext payload size from the blob size, or
// ErrLengthMismatch when the span cannot be a blob under these keys.
func (d *Decoder) PayloadSize(blobSize int64) (int64, error) {
	return padalg.SolvePayloadSize(d.keys.PadTotal[:], blobSize, d.cfg.PadPercent)
}

// Decode reads the blob body from src, which must be positioned right after
// the 16-byte salt head, and writes the recovered payload to dst. In strict
// mode a MAC mismatch is returned as ErrMACFail after the full pass; in
// unsafe-release mode the result comes back with Verified set to false and
// the plaintext already written.
func (d *Decoder) Decode(ctx context.Context, src io.Reader, blobSize int64, dst io.Writer) (*DecodeResult, error) {
	payloadSize, err := d.PayloadSize(blobSize)
	if err != nil {
		return nil, err
	}
	chunks, err := payloadChunks(payloadSize)
	if err != nil {
		return nil, err
	}

	padTotal, err := padalg.Total(d.keys.PadTotal[:], CommentsSize+payloadSize, d.cfg.PadPercent)
	if err != nil {
		return nil, err
	}
	padHead, _ := padalg.Split(d.keys.PadSplit[:], padTotal)

	mac, err := newMAC(&d.keys.MAC, d.salts.Head(), d.salts.Tail())
	if err != nil {
		return nil, err
	}

	// Head pad is skipped, never authenticated.
	if _, err := io.CopyN(io.Discard, src, padHead); err != nil {
		return nil, errs.IO("skip head pad", err)
	}

	ctComments := make([]byte, CommentsSize)
	if _, err := io.ReadFull(src, ctComments); err != nil {
		return nil, errs.IO("read comments", err)
	}
	mac.Write(ctComments)
	ptComments := make([]byte, CommentsSize)
	if err := encryptSegment(&d.keys.Enc, commentsCounter, ptComments, ctComments); err != nil {
		return nil, err
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
		mac.Write(chunk)

		if err := encryptSegment(&d.keys.Enc, commentsCounter+1+i, chunk, chunk); err != nil {
			return nil, err
		}
		if _, err := dst.Write(chunk); err != nil {
			return nil, errs.IO("write plaintext", err)
		}

		remaining -= int64(len(chunk))
		written += int64(len(chunk))

		if d.cfg.Progress != nil && payloadSize > 0 && written >= progressNext {
			d.cfg.Progress(float64(written) / float64(payloadSize))
			progressNext += progressStep
		}
	}

	storedMAC := make([]byte, MACSize)
	if _, err := io.ReadFull(src, storedMAC); err != nil {
		return nil, errs.IO("read MAC", err)
	}

	verified := secure.Compare(mac.Sum(nil), storedMAC)

	if d.cfg.Progress != nil {
		d.cfg.Progress(1.0)
	}

	result := &DecodeResult{
		Comment:     unpackComments(ptComments),
		PayloadSize: payloadSize,
		Verified:    verified,
	}

	if !verified {
		if d.cfg.UnsafeRelease {
			return result, nil
		}
		return result, errs.ErrMACFail
	}

	return result, nil
}
