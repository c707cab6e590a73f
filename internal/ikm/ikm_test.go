/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package ikm

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/purbtools/cryptoblob/internal/errs"
)

var testSalt = bytes.Repeat([]byte{0x42}, 16)

func TestAddPassphrase(t *testing.T) {
	s := NewSet(testSalt)

	added, err := s.AddPassphrase([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("AddPassphrase failed: %v", err)
	}
	if !added {
		t.Error("non-empty passphrase should be added")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 digest, got %d", s.Len())
	}
	if len(s.Digests()[0]) != DigestSize {
		t.Errorf("digest size = %d, want %d", len(s.Digests()[0]), DigestSize)
	}
}

func TestAddPassphrase_EmptySkipped(t *testing.T) {
	s := NewSet(testSalt)
	added, err := s.AddPassphrase(nil)
	if err != nil {
		t.Fatal(err)
	}
	if added || s.Len() != 0 {
		t.Error("empty passphrase must be silently skipped")
	}
}

func TestAddPassphrase_NFCNormalization(t *testing.T) {
	// U+00E9 (precomposed) vs U+0065 U+0301 (decomposed) must digest the
	// same after NFC normalization.
	s1 := NewSet(testSalt)
	if _, err := s1.AddPassphrase([]byte("caf\u00e9")); err != nil {
		t.Fatal(err)
	}
	s2 := NewSet(testSalt)
	if _, err := s2.AddPassphrase([]byte("cafe\u0301")); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(s1.Digests()[0], s2.Digests()[0]) {
		t.Error("NFC-equivalent passphrases produced different digests")
	}
}

func TestAddPassphrase_LengthCap(t *testing.T) {
	long := bytes.Repeat([]byte("a"), MaxPassphraseBytes+100)
	capped := long[:MaxPassphraseBytes]

	s1 := NewSet(testSalt)
	if _, err := s1.AddPassphrase(long); err != nil {
		t.Fatal(err)
	}
	s2 := NewSet(testSalt)
	if _, err := s2.AddPassphrase(capped); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(s1.Digests()[0], s2.Digests()[0]) {
		t.Error("passphrase beyond the cap should not influence the digest")
	}
}

func TestAddPassphrase_SaltDependence(t *testing.T) {
	s1 := NewSet(testSalt)
	if _, err := s1.AddPassphrase([]byte("same input")); err != nil {
		t.Fatal(err)
	}
	s2 := NewSet(bytes.Repeat([]byte{0x43}, 16))
	if _, err := s2.AddPassphrase([]byte("same input")); err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(s1.Digests()[0], s2.Digests()[0]) {
		t.Error("different salts must produce different digests")
	}
}

func TestAddFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "keyfile")
	if err := os.WriteFile(path, bytes.Repeat([]byte{0x00}, 32), 0600); err != nil {
		t.Fatal(err)
	}

	s := NewSet(testSalt)
	if err := s.AddFile(context.Background(), path); err != nil {
		t.Fatalf("AddFile failed: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 digest, got %d", s.Len())
	}

	// Same bytes, same salt: deterministic.
	s2 := NewSet(testSalt)
	if err := s2.AddFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(s.Digests()[0], s2.Digests()[0]) {
		t.Error("same file and salt must digest identically")
	}
}

func TestAddFile_Missing(t *testing.T) {
	s := NewSet(testSalt)
	err := s.AddFile(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, errs.ErrBadInput) {
		t.Errorf("expected ErrBadInput, got %v", err)
	}
	if s.Len() != 0 {
		t.Error("failed input must not leave a digest behind")
	}
}

func TestAddFile_DomainSeparationFromPassphrase(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "keyfile")
	content := []byte("shared secret bytes")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatal(err)
	}

	s := NewSet(testSalt)
	if err := s.AddFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddPassphrase(content); err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(s.Digests()[0], s.Digests()[1]) {
		t.Error("a file and a passphrase with identical bytes must digest differently")
	}
}

func TestAddDir(t *testing.T) {
	tmpDir := t.TempDir()
	sub := filepath.Join(tmpDir, "nested", "deep")
	if err := os.MkdirAll(sub, 0700); err != nil {
		t.Fatal(err)
	}
	for i, name := range []string{
		filepath.Join(tmpDir, "a"),
		filepath.Join(tmpDir, "nested", "b"),
		filepath.Join(sub, "c"),
	} {
		if err := os.WriteFile(name, []byte{byte(i)}, 0600); err != nil {
			t.Fatal(err)
		}
	}

	s := NewSet(testSalt)
	if err := s.AddDir(context.Background(), tmpDir); err != nil {
		t.Fatalf("AddDir failed: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 digests from the tree, got %d", s.Len())
	}
}

func TestAddDir_SymlinkNotFollowed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on Windows")
	}

	tmpDir := t.TempDir()
	target := filepath.Join(tmpDir, "real")
	if err := os.WriteFile(target, []byte("real"), 0600); err != nil {
		t.Fatal(err)
	}
	outside := filepath.Join(t.TempDir(), "outside")
	if err := os.WriteFile(outside, []byte("outside"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(tmpDir, "link")); err != nil {
		t.Skipf("cannot create symlink: %v", err)
	}

	s := NewSet(testSalt)
	if err := s.AddDir(context.Background(), tmpDir); err != nil {
		t.Fatalf("AddDir failed: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("symlink must not be followed: expected 1 digest, got %d", s.Len())
	}
}

func TestAddDir_AbortsOnError(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission test needs a non-root Unix user")
	}

	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "ok"), []byte("ok"), 0600); err != nil {
		t.Fatal(err)
	}
	locked := filepath.Join(tmpDir, "locked")
	if err := os.WriteFile(locked, []byte("secret"), 0000); err != nil {
		t.Fatal(err)
	}
	defer os.Chmod(locked, 0600)

	s := NewSet(testSalt)
	err := s.AddDir(context.Background(), tmpDir)
	if err == nil {
		t.Fatal("unreadable file inside the tree must abort the directory input")
	}
	if s.Len() != 0 {
		t.Error("aborted directory input must not leave partial digests")
	}
}

func TestAddDir_Cancelled(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "f"), []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSet(testSalt)
	err := s.AddDir(ctx, tmpDir)
	if !errors.Is(err, errs.ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
}

func TestDigest_NoOrderingInfo(t *testing.T) {
	// Digests from the same sources in different insertion orders are the
	// same multiset.
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "k")
	if err := os.WriteFile(path, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}

	s1 := NewSet(testSalt)
	if _, err := s1.AddPassphrase([]byte("p")); err != nil {
		t.Fatal(err)
	}
	if err := s1.AddFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	s2 := NewSet(testSalt)
	if err := s2.AddFile(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	if _, err := s2.AddPassphrase([]byte("p")); err != nil {
		t.Fatal(err)
	}

	if !sameMultiset(s1.Digests(), s2.Digests()) {
		t.Error("insertion order changed the digest multiset")
	}
}

func sameMultiset(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, d := range a {
		counts[string(d)]++
	}
	for _, d := range b {
		counts[string(d)]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}

func TestHashKey_DistinctRoles(t *testing.T) {
	a := hashKey("cryptoblob/ikm/pwd", testSalt)
	b := hashKey("cryptoblob/ikm/file", testSalt)
	if bytes.Equal(a, b) {
		t.Error("roles must yield distinct keys")
	}
	if len(a) > 64 {
		t.Errorf("BLAKE2b key too long: %d bytes", len(a))
	}
	if !strings.HasPrefix(string(a), "cryptoblob/") {
		t.Errorf("unexpected key prefix: %q", a[:10])
	}
}
