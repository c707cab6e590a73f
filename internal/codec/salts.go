/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package codec

import (
	"github.com/purbtools/cryptoblob/internal/rnd"
)

// Salts holds the two independent 128-bit salts. PH seeds the IKM and
// pre-hash keyed hashes; KDF is the Argon2 salt. Each is split across the
// two ends of the blob, so a decoder must read both ends before it can
// derive anything, and truncation at either end is fatal.
type Salts struct {
	PH  [16]byte
	KDF [16]byte
}

// NewSalts draws both salts from the CSPRNG.
func NewSalts() (Salts, error) {
	var s Salts
	if err := rnd.Read(s.PH[:]); err != nil {
		return Salts{}, err
	}
	if err := rnd.Read(s.KDF[:]); err != nil {
		return Salts{}, err
	}
	return s, nil
}

// Head returns the fragment stored at blob start.
func (s Salts) Head() [SaltHeadSize]byte {
	var head [SaltHeadSize]byte
	copy(head[0:8], s.PH[0:8])
	copy(head[8:16], s.KDF[0:8])
	return head
}

// Tail returns the fragment stored at blob end.
func (s Salts) Tail() [SaltTailSize]byte {
	var tail [SaltTailSize]byte
	copy(tail[0:8], s.PH[8:16])
	copy(tail[8:16], s.KDF[8:16])
	return tail
}

// SaltsFromHalves reassembles the salts from the two on-disk fragments.
func SaltsFromHalves(head [SaltHeadSize]byte, tail [SaltTailSize]byte) Salts {
	var s Salts
	copy(s.PH[0:8], head[0:8])
	copy(s.PH[8:16], tail[0:8])
	copy(s.KDF[0:8], head[8:16])
	copy(s.KDF[8:16], tail[8:16])
	return s
}
