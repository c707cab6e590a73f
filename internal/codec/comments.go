/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package codec

import (
	"bytes"

	"golang.org/x/text/unicode/norm"

	"github.com/purbtools/cryptoblob/internal/rnd"
)

// packComments builds the 512-byte plaintext comments region:
// utf8_comment || 0xFF || uniform_random_fill. A comment of 512 bytes or
// more is truncated to the full region with no sentinel; the return value
// reports the truncation so the caller can warn.
func packComments(comment string) (region []byte, truncated bool, err error) {
	normalized := norm.NFC.Bytes([]byte(comment))

	region = make([]byte, CommentsSize)
	if len(normalized) >= CommentsSize {
		copy(region, normalized[:CommentsSize])
		return region, true, nil
	}

	n := copy(region, normalized)
	region[n] = CommentSentinel
	if err := rnd.Read(region[n+1:]); err != nil {
		return nil, false, err
	}
	return region, false, nil
}

// unpackComments recovers the comment from a decrypted comments region.
// Everything before the first sentinel byte is the comment; with no
// sentinel the whole region is treated as the comment (the encode-side
// truncation case).
func unpackComments(region []byte) string {
	if i := bytes.IndexByte(region, CommentSentinel); i >= 0 {
		return string(region[:i])
	}
	return string(region)
}
