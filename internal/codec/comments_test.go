/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package codec

import (
	"bytes"
	"strings"
	"testing"
)

func TestPackComments_RoundTrip(t *testing.T) {
	for _, comment := range []string{
		"",
		"secret files, zip",
		"multi\nline\ncomment",
		strings.Repeat("x", 511),
	} {
		region, truncated, err := packComments(comment)
		if err != nil {
			t.Fatalf("packComments(%q) failed: %v", comment, err)
		}
		if truncated {
			t.Errorf("comment of %d bytes should not truncate", len(comment))
		}
		if len(region) != CommentsSize {
			t.Fatalf("region size = %d, want %d", len(region), CommentsSize)
		}
		if got := unpackComments(region); got != comment {
			t.Errorf("round trip: got %q, want %q", got, comment)
		}
	}
}

func TestPackComments_SentinelPlacement(t *testing.T) {
	region, _, err := packComments("abc")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(region[:3], []byte("abc")) {
		t.Error("comment bytes not at region start")
	}
	if region[3] != CommentSentinel {
		t.Errorf("byte after comment = %#x, want sentinel %#x", region[3], CommentSentinel)
	}
}

func TestPackComments_Truncation(t *testing.T) {
	long := strings.Repeat("y", CommentsSize+40)
	region, truncated, err := packComments(long)
	if err != nil {
		t.Fatal(err)
	}
	if !truncated {
		t.Error("oversized comment must report truncation")
	}
	if bytes.IndexByte(region, CommentSentinel) >= 0 {
		t.Error("truncated region must carry no sentinel")
	}
	if got := unpackComments(region); got != long[:CommentsSize] {
		t.Errorf("decoder should see the full region as the comment")
	}
}

func TestPackComments_ExactBoundary(t *testing.T) {
	// 512 bytes exactly: truncated path, no sentinel.
	exact := strings.Repeat("z", CommentsSize)
	region, truncated, err := packComments(exact)
	if err != nil {
		t.Fatal(err)
	}
	if !truncated {
		t.Error("a 512-byte comment leaves no room for the sentinel")
	}
	if unpackComments(region) != exact {
		t.Error("exact-size comment did not round trip")
	}
}

func TestPackComments_NFC(t *testing.T) {
	// Decomposed input normalizes to the precomposed form.
	region, _, err := packComments("cafe\u0301")
	if err != nil {
		t.Fatal(err)
	}
	if got := unpackComments(region); got != "caf\u00e9" {
		t.Errorf("expected NFC-normalized comment, got %q", got)
	}
}

func TestUnpackComments_NoSentinel(t *testing.T) {
	region := bytes.Repeat([]byte{'a'}, CommentsSize)
	if got := unpackComments(region); got != string(region) {
		t.Error("sentinel-free region should decode as the whole comment")
	}
}

func TestUnpackComments_FillerFFIgnored(t *testing.T) {
	// Filler bytes after the sentinel may contain 0xFF; only the first
	// sentinel splits.
	region := make([]byte, CommentsSize)
	copy(region, "hi")
	region[2] = CommentSentinel
	for i := 3; i < len(region); i++ {
		region[i] = CommentSentinel
	}
	if got := unpackComments(region); got != "hi" {
		t.Errorf("got %q, want %q", got, "hi")
	}
}

func FuzzCommentsRoundTrip(f *testing.F) {
	f.Add("")
	f.Add("hello world")
	f.Add(strings.Repeat("a", 600))
	f.Add("café ☃")

	f.Fuzz(func(t *testing.T, comment string) {
		region, _, err := packComments(comment)
		if err != nil {
			t.Fatal(err)
		}
		if len(region) != CommentsSize {
			t.Fatalf("region size %d", len(region))
		}
		// The decoded comment is always a prefix of the region: the first
		// sentinel splits, whether it came from the encoder or from the
		// comment's own bytes.
		got := unpackComments(region)
		if !strings.HasPrefix(string(region), got) {
			t.Error("decoded comment is not a region prefix")
		}
	})
}
