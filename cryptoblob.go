/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Package cryptoblob encrypts files into padded uniform random blobs
// (PURBs): authenticated ciphertexts indistinguishable from uniform random
// bytes, with no headers, no magic, and a randomized size.
//
// A blob binds its keys with a bilateral salt — half stored at each end —
// so a decoder must read both ends of the span before it can derive
// anything, and truncation at either end is fatal. Keys come from an
// Argon2id schedule (1 GiB memory, one lane) over any mix of passphrases,
// keyfiles, and keyfile directories; the time cost is the user's to
// remember, not the blob's to reveal.
//
// # Basic Usage
//
// Encrypt and decrypt a file with a passphrase:
//
//	import (
//	    "context"
//	    "github.com/purbtools/cryptoblob"
//	)
//
//	ctx := context.Background()
//	kr := cryptoblob.Keyring{Passphrases: [][]byte{[]byte("correct horse")}}
//
//	res, err := cryptoblob.EncryptFile(ctx, "document.pdf", "blob.bin", kr,
//	    cryptoblob.WithComment("tax papers"))
//
//	dec, err := cryptoblob.DecryptFile(ctx, "blob.bin", "document.pdf", kr)
//
// # Hidden Containers
//
// A blob can live at any offset inside an opaque carrier. Create a carrier
// of CSPRNG bytes, embed, and remember the span — the container itself
// records nothing:
//
//	err := cryptoblob.CreateRandom(ctx, "carrier.bin", 16<<20, nil)
//	res, err := cryptoblob.EncryptToContainer(ctx, "secret.zip", "carrier.bin", 1_000_000, kr)
//	// res.Start, res.End is the span to remember.
//	dec, err := cryptoblob.DecryptRange(ctx, "carrier.bin", res.Start, res.End, "secret.zip", kr)
//
// # Deniability
//
// The Argon2 time cost doubles as an offline time-lock: decrypting with the
// wrong cost fails exactly like a wrong key. WithFakeMAC writes a random
// tag so the blob can never verify; WithUnsafeRelease recovers plaintext
// from damaged or fake-MAC blobs while still reporting the failure.
package cryptoblob

import (
	"context"

	"github.com/purbtools/cryptoblob/internal/codec"
	"github.com/purbtools/cryptoblob/internal/container"
	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/internal/ikm"
	"github.com/purbtools/cryptoblob/internal/kdf"
)

// Option defines functional options for encryption/decryption
// (re-exported from internal/codec).
type Option = codec.Option

// Re-exported codec options.
var (
	WithComment       = codec.WithComment
	WithTimeCost      = codec.WithTimeCost
	WithPadPercent    = codec.WithPadPercent
	WithFakeMAC       = codec.WithFakeMAC
	WithUnsafeRelease = codec.WithUnsafeRelease
	WithProgress      = codec.WithProgress
)

// Re-exported checksum helpers so callers can verify embed/extract receipts.
var (
	RangeChecksum       = container.RangeChecksum
	RangeChecksumHex    = container.RangeChecksumHex
	VerifyRangeChecksum = container.VerifyRangeChecksum
)

// Sanitize strips sensitive detail from an error for external display
// (re-exported from internal/errs).
var Sanitize = errs.Sanitize

// Error kinds (re-exported from internal/errs).
var (
	ErrIO             = errs.ErrIO
	ErrLengthMismatch = errs.ErrLengthMismatch
	ErrMACFail        = errs.ErrMACFail
	ErrCancelled      = errs.ErrCancelled
	ErrBadInput       = errs.ErrBadInput
	ErrEnv            = errs.ErrEnv
)

// Format constants callers may need for span arithmetic.
const (
	MinBlobSize    = codec.MinBlobSize
	MaxPayloadSize = codec.MaxPayloadSize

	// DefaultTimeCost is the Argon2id time cost used when WithTimeCost is
	// not given.
	DefaultTimeCost = kdf.DefaultTimeCost
)

// Keyring names the input keying material for one operation: zero or more
// passphrases, keyfiles, and directories whose regular files all become
// keyfiles. Order is irrelevant — digests are sorted before the key
// schedule — and an empty Keyring is valid (the blob is then bound only to
// its salts and time cost).
type Keyring struct {
	Passphrases [][]byte
	KeyFiles    []string
	KeyDirs     []string
}

// Session carries the process-wide unsafe flags. The zero value is the safe
// default.
type Session struct {
	// UnsafeDebug enables verbose diagnostics in the CLI layer.
	UnsafeDebug bool

	// UnsafeDecrypt releases plaintext even when MAC verification fails.
	UnsafeDecrypt bool
}

// Options translates the session flags into codec options.
func (s Session) Options() []Option {
	var opts []Option
	if s.UnsafeDecrypt {
		opts = append(opts, WithUnsafeRelease(true))
	}
	return opts
}

// gatherIKM hashes the keyring sources under the given pre-hash salt.
func gatherIKM(ctx context.Context, kr Keyring, saltPH []byte) ([][]byte, error) {
	set := ikm.NewSet(saltPH)
	for _, p := range kr.Passphrases {
		if _, err := set.AddPassphrase(p); err != nil {
			return nil, err
		}
	}
	for _, path := range kr.KeyFiles {
		if err := set.AddFile(ctx, path); err != nil {
			return nil, err
		}
	}
	for _, path := range kr.KeyDirs {
		if err := set.AddDir(ctx, path); err != nil {
			return nil, err
		}
	}
	return set.Digests(), nil
}
