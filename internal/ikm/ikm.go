/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Package ikm aggregates input keying material into 64-byte digests.
//
// Each source (passphrase, keyfile, or every regular file under a directory)
// is hashed independently with a keyed BLAKE2b-512 whose key mixes a domain
// role with the pre-hash salt. Digests carry no ordering; they are sorted
// downstream before entering the key schedule.
package ikm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/unicode/norm"

	"github.com/purbtools/cryptoblob/internal/errs"
)

const (
	// DigestSize is the size of one IKM digest.
	DigestSize = 64

	// MaxPassphraseBytes caps a passphrase after NFC normalization.
	MaxPassphraseBytes = 2048

	// readChunkSize is the read buffer for keyfile hashing.
	readChunkSize = 128 * 1024
)

// hashKey builds the 64-byte-max BLAKE2b key for a given domain role.
// x/crypto's BLAKE2b does not expose the salt/personal parameters, so the
// role string and the pre-hash salt are mixed into the key instead.
func hashKey(role string, saltPH []byte) []byte {
	key := make([]byte, 0, len(role)+len(saltPH))
	key = append(key, role...)
	key = append(key, saltPH...)
	return key
}

// Set collects the unordered multiset of IKM digests for one session.
type Set struct {
	saltPH  []byte
	digests [][]byte
}

// NewSet creates an empty digest set bound to the given pre-hash salt.
func NewSet(saltPH []byte) *Set {
	s := &Set{saltPH: make([]byte, len(saltPH))}
	copy(s.saltPH, saltPH)
	return s
}

// AddPassphrase normalizes (NFC), caps, and hashes a passphrase. Empty
// input is silently skipped; the return value reports whether a digest was
// added.
func (s *Set) AddPassphrase(passphrase []byte) (bool, error) {
	if len(passphrase) == 0 {
		return false, nil
	}

	normalized := norm.NFC.Bytes(passphrase)
	if len(normalized) > MaxPassphraseBytes {
		normalized = normalized[:MaxPassphraseBytes]
	}

	h, err := blake2b.New512(hashKey("cryptoblob/ikm/pwd", s.saltPH))
	if err != nil {
		return false, errs.Wrap("create passphrase hash", err)
	}
	h.Write(normalized)
	s.digests = append(s.digests, h.Sum(nil))
	return true, nil
}

// AddFile hashes the full byte stream of a regular file or block device.
func (s *Set) AddFile(ctx context.Context, path string) error {
	digest, err := s.fileDigest(ctx, path)
	if err != nil {
		return err
	}
	s.digests = append(s.digests, digest)
	return nil
}

// AddDir walks the directory tree rooted at path and hashes every regular
// file found. Symlinks are not followed. The first error aborts the whole
// directory input; no partial acceptance.
func (s *Set) AddDir(ctx context.Context, path string) error {
	var collected [][]byte

	err := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errs.IO("walk keyfile directory", err)
		}
		if ctx.Err() != nil {
			return errs.ErrCancelled
		}
		if !d.Type().IsRegular() {
			return nil
		}
		digest, err := s.fileDigest(ctx, p)
		if err != nil {
			return err
		}
		collected = append(collected, digest)
		return nil
	})
	if err != nil {
		return err
	}

	s.digests = append(s.digests, collected...)
	return nil
}

// Digests returns the collected digests. The slice order reflects insertion
// and carries no meaning.
func (s *Set) Digests() [][]byte {
	return s.digests
}

// Len returns the number of collected digests.
func (s *Set) Len() int {
	return len(s.digests)
}

func (s *Set) fileDigest(ctx context.Context, path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: keyfile %s: %v", errs.ErrBadInput, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: keyfile %s is a directory", errs.ErrBadInput, path)
	}

	f, err := os.Open(path) // #nosec G304 -- keyfile path provided by caller
	if err != nil {
		return nil, fmt.Errorf("%w: keyfile %s: %v", errs.ErrBadInput, path, err)
	}
	defer f.Close()

	h, err := blake2b.New512(hashKey("cryptoblob/ikm/file", s.saltPH))
	if err != nil {
		return nil, errs.Wrap("create keyfile hash", err)
	}

	r := bufio.NewReaderSize(f, readChunkSize)
	buf := make([]byte, readChunkSize)
	for {
		if ctx.Err() != nil {
			return nil, errs.ErrCancelled
		}
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.IO("read keyfile", err)
		}
	}

	return h.Sum(nil), nil
}
