/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// format.go: On-disk layout constants for the cryptoblob format.
//
// A blob is the concatenation, in order:
//
//	salt_head (16) | head_pad (P_h) | ct_comments (512) | ct_payload (N) |
//	MAC (64) | tail_pad (P_t) | salt_tail (16)
//
// There is no magic, no version byte, and no length field: every byte is
// indistinguishable from uniform random.
package codec

const (
	// SaltHeadSize is the salt fragment stored at blob start:
	// salt_ph[0:8] || salt_kdf[0:8].
	SaltHeadSize = 16

	// SaltTailSize is the salt fragment stored at blob end:
	// salt_ph[8:16] || salt_kdf[8:16].
	SaltTailSize = 16

	// CommentsSize is the fixed padded-comments region size.
	CommentsSize = 512

	// MACSize is the BLAKE2b-512 tag size.
	MACSize = 64

	// MinBlobSize is the smallest possible blob: all four fixed regions
	// with an empty payload and zero padding.
	MinBlobSize = SaltHeadSize + CommentsSize + MACSize + SaltTailSize

	// ChunkSize is the fixed payload framing unit. One ChaCha20 nonce
	// counter value is consumed per chunk; the last chunk may be short.
	ChunkSize = 128 * 1024

	// commentsCounter is the nonce counter for the comments segment;
	// payload chunk i uses commentsCounter + 1 + i.
	commentsCounter = 1

	// maxCounter bounds the nonce counter; it must never overflow 2^32.
	maxCounter = 1<<32 - 1

	// MaxPayloadSize is the largest payload the nonce counter can frame.
	MaxPayloadSize = int64(maxCounter-commentsCounter) * ChunkSize

	// CommentSentinel terminates the comment inside the padded-comments
	// region. 0xFF can never occur in UTF-8 text, so the first occurrence
	// splits comment from random filler unambiguously.
	CommentSentinel = 0xFF
)
