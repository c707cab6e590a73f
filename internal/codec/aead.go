/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// aead.go: The stream-cipher-plus-keyed-hash construction.
//
// ChaCha20 encrypts the comments region and each 128 KiB payload chunk
// under its own nonce: the 12-byte little-endian encoding of a counter that
// is 1 for comments and 2+i for payload chunk i. The BLAKE2b-512 MAC covers
// salt_head || salt_tail || ct_comments || ct_payload — deliberately not
// the padding, so pad bytes stay arbitrary and MAC coverage length leaks
// nothing beyond what the keys already reveal.
package codec

import (
	"encoding/binary"
	"fmt"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20"

	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/internal/kdf"
)

// macDomain is written as the first MAC input for domain separation; the
// 64-byte MAC key occupies the full BLAKE2b key parameter.
var macDomain = []byte("cryptoblob/mac")

// nonceFor encodes a counter as a 12-byte little-endian nonce.
func nonceFor(counter uint64) [chacha20.NonceSize]byte {
	var nonce [chacha20.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[0:8], counter)
	return nonce
}

// encryptSegment XORs one segment with the ChaCha20 keystream for the given
// counter. Encryption and decryption are the same operation.
func encryptSegment(encKey *[kdf.EncKeySize]byte, counter uint64, dst, src []byte) error {
	if counter > maxCounter {
		return fmt.Errorf("%w: nonce counter exhausted", errs.ErrBadInput)
	}
	nonce := nonceFor(counter)
	c, err := chacha20.NewUnauthenticatedCipher(encKey[:], nonce[:])
	if err != nil {
		return errs.Wrap("create stream cipher", err)
	}
	c.XORKeyStream(dst, src)
	return nil
}

// newMAC builds the keyed BLAKE2b-512 MAC and feeds it the domain tag and
// both salt fragments.
func newMAC(macKey *[kdf.MACKeySize]byte, saltHead [SaltHeadSize]byte, saltTail [SaltTailSize]byte) (hash.Hash, error) {
	h, err := blake2b.New512(macKey[:])
	if err != nil {
		return nil, errs.Wrap("create MAC", err)
	}
	h.Write(macDomain)
	h.Write(saltHead[:])
	h.Write(saltTail[:])
	return h, nil
}

// payloadChunks returns the number of 128 KiB chunks framing a payload of
// size n, or an error when the nonce counter cannot cover it.
func payloadChunks(n int64) (uint64, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: negative payload size %d", errs.ErrBadInput, n)
	}
	if n > MaxPayloadSize {
		return 0, fmt.Errorf("%w: payload of %d bytes exceeds the per-blob limit of %d", errs.ErrBadInput, n, MaxPayloadSize)
	}
	return uint64((n + ChunkSize - 1) / ChunkSize), nil
}
