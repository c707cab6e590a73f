/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Package kdf runs the cryptoblob key schedule: the sorted IKM digests are
// pre-hashed into an Argon2 password, Argon2id stretches it into a 128-byte
// tag, and the tag is split into the per-blob sub-keys.
package kdf

import (
	"bytes"
	"fmt"
	"sort"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/blake2b"

	"github.com/purbtools/cryptoblob/internal/errs"
)

const (
	// DefaultTimeCost is the default Argon2id time cost. The time cost is
	// the only user-tunable knob; it is not persisted in the blob and must
	// be remembered to decrypt.
	DefaultTimeCost = 4

	// Lanes is the Argon2id parallelism. Fixed at one lane.
	Lanes = 1

	// TagSize is the Argon2id output length holding all sub-keys.
	TagSize = 128

	// SaltSize is the required Argon2 salt length.
	SaltSize = 16

	// Sub-key sizes, in tag order.
	PadTotalKeySize = 10
	PadSplitKeySize = 10
	NonceKeySize    = 12
	EncKeySize      = 32
	MACKeySize      = 64
)

// memoryCost is the Argon2id memory cost in KiB: 1 GiB, the libsodium
// "sensitive" profile. Fixed — there is no agility and no fallback to a
// smaller work area. A var only so the testhooks build can shrink it.
var memoryCost uint32 = 1 << 20

// SubKeys is the partition of the 128-byte Argon2id tag.
type SubKeys struct {
	PadTotal [PadTotalKeySize]byte // total pad size derivation
	PadSplit [PadSplitKeySize]byte // head/tail split derivation
	Nonce    [NonceKeySize]byte    // reserved; the cipher uses a pure counter
	Enc      [EncKeySize]byte      // ChaCha20 key
	MAC      [MACKeySize]byte      // BLAKE2b MAC key
}

// Password pre-hashes the IKM digests into the Argon2 password. Digests are
// sorted lexicographically first, so input order is irrelevant. The sort is
// the data-dependent stdlib sort; the digests are keyed-hash outputs and the
// local derivation step is not exposed to attacker timing, so this is an
// accepted trade-off rather than an oversight. An empty digest set yields
// the hash of the empty string.
func Password(digests [][]byte, saltPH []byte) ([]byte, error) {
	sorted := make([][]byte, len(digests))
	copy(sorted, digests)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i], sorted[j]) < 0
	})

	key := make([]byte, 0, 64)
	key = append(key, "cryptoblob/prehash"...)
	key = append(key, saltPH...)
	h, err := blake2b.New512(key)
	if err != nil {
		return nil, errs.Wrap("create prehash", err)
	}
	for _, d := range sorted {
		h.Write(d)
	}
	return h.Sum(nil), nil
}

// Derive runs Argon2id over the pre-hashed password and splits the tag into
// sub-keys. A panic during the derivation, such as a failed allocation of
// the 1 GiB work area, is reported as an environment error; a runtime
// out-of-memory fault that terminates the process is not caught. The
// memory cost is never reduced to work around either.
func Derive(password, saltKDF []byte, timeCost uint32) (keys *SubKeys, err error) {
	if timeCost < 1 {
		return nil, fmt.Errorf("%w: time cost must be at least 1, got %d", errs.ErrBadInput, timeCost)
	}
	if len(saltKDF) != SaltSize {
		return nil, fmt.Errorf("%w: Argon2 salt must be %d bytes, got %d", errs.ErrBadInput, SaltSize, len(saltKDF))
	}

	defer func() {
		if r := recover(); r != nil {
			keys = nil
			err = fmt.Errorf("%w: Argon2 memory allocation failed: %v", errs.ErrEnv, r)
		}
	}()

	tag := argon2.IDKey(password, saltKDF, timeCost, memoryCost, Lanes, TagSize)
	return splitTag(tag), nil
}

func splitTag(tag []byte) *SubKeys {
	keys := &SubKeys{}
	off := 0
	off += copy(keys.PadTotal[:], tag[off:off+PadTotalKeySize])
	off += copy(keys.PadSplit[:], tag[off:off+PadSplitKeySize])
	off += copy(keys.Nonce[:], tag[off:off+NonceKeySize])
	off += copy(keys.Enc[:], tag[off:off+EncKeySize])
	copy(keys.MAC[:], tag[off:off+MACKeySize])
	return keys
}
