/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Package padalg derives the randomized pad size and its head/tail split
// from the pad sub-keys. Both endpoints of a blob recompute identical
// values: every function here is a pure function of its inputs.
package padalg

import (
	"fmt"
	"math/big"

	"github.com/purbtools/cryptoblob/internal/errs"
)

const (
	// DefaultPercent is the default maximum padding share: up to 20% of the
	// final blob size, equivalently up to 25% of the unpadded size. Frozen;
	// changing it breaks every existing blob encoded with the default.
	DefaultPercent = 20

	// MaxPercent bounds the configurable padding share.
	MaxPercent = 90

	// keyBits is the width of a pad sub-key interpreted as an integer.
	keyBits = 80
)

// fixedOverhead is the non-payload, non-pad portion of a blob:
// salt head (16) + comments (512) + MAC (64) + salt tail (16).
const fixedOverhead = 16 + 512 + 64 + 16

// MaxPad returns the maximum total pad for an unpadded ciphertext of size
// unpadded (comments + payload): floor(unpadded * pct / (100 - pct)).
func MaxPad(unpadded int64, pct int) int64 {
	return unpadded * int64(pct) / int64(100-pct)
}

// leInt interprets key as a little-endian unsigned integer.
func leInt(key []byte) *big.Int {
	be := make([]byte, len(key))
	for i, b := range key {
		be[len(key)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

// ratio computes floor(r * (bound + 1) / 2^keyBits), which is uniform over
// [0, bound] for a uniform 80-bit r.
func ratio(key []byte, bound int64) int64 {
	r := leInt(key)
	r.Mul(r, big.NewInt(bound+1))
	r.Rsh(r, keyBits)
	return r.Int64()
}

// Total derives the total pad size from pad_key_t for an unpadded
// ciphertext of the given size.
func Total(padKeyT []byte, unpadded int64, pct int) (int64, error) {
	if pct < 0 || pct > MaxPercent {
		return 0, fmt.Errorf("%w: pad percent must be in [0, %d], got %d", errs.ErrBadInput, MaxPercent, pct)
	}
	return ratio(padKeyT, MaxPad(unpadded, pct)), nil
}

// Split derives the head portion of a total pad from pad_key_s and returns
// (head, tail) with head + tail == total.
func Split(padKeyS []byte, total int64) (head, tail int64) {
	head = ratio(padKeyS, total)
	return head, total - head
}

// BlobSize returns the full on-disk size for a payload of size n under the
// given pad sub-key and percent.
func BlobSize(padKeyT []byte, n int64, pct int) (int64, error) {
	total, err := Total(padKeyT, 512+n, pct)
	if err != nil {
		return 0, err
	}
	return fixedOverhead + n + total, nil
}

// SolvePayloadSize inverts BlobSize: given a blob of size blobSize it
// recovers the unique payload size N with BlobSize(N) == blobSize.
// BlobSize is strictly increasing in N (each extra payload byte grows the
// blob by at least one byte, the pad never shrinks), so a binary search
// either lands exactly or the span is not a blob under these keys.
func SolvePayloadSize(padKeyT []byte, blobSize int64, pct int) (int64, error) {
	if blobSize < fixedOverhead {
		return 0, errs.ErrLengthMismatch
	}

	lo, hi := int64(0), blobSize-fixedOverhead
	for lo <= hi {
		mid := lo + (hi-lo)/2
		got, err := BlobSize(padKeyT, mid, pct)
		if err != nil {
			return 0, err
		}
		switch {
		case got == blobSize:
			return mid, nil
		case got < blobSize:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}

	return 0, errs.ErrLengthMismatch
}
