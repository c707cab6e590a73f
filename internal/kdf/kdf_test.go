/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package kdf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/purbtools/cryptoblob/internal/errs"
)

var (
	testSaltPH  = bytes.Repeat([]byte{0xAA}, 16)
	testSaltKDF = bytes.Repeat([]byte{0xBB}, 16)
)

func TestPassword_OrderIndependence(t *testing.T) {
	d1 := bytes.Repeat([]byte{0x01}, 64)
	d2 := bytes.Repeat([]byte{0x02}, 64)
	d3 := bytes.Repeat([]byte{0x03}, 64)

	p1, err := Password([][]byte{d1, d2, d3}, testSaltPH)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := Password([][]byte{d3, d1, d2}, testSaltPH)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(p1, p2) {
		t.Error("digest order must not influence the password")
	}
}

func TestPassword_InputNotMutated(t *testing.T) {
	d1 := bytes.Repeat([]byte{0x09}, 64)
	d2 := bytes.Repeat([]byte{0x01}, 64)
	in := [][]byte{d1, d2}

	if _, err := Password(in, testSaltPH); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(in[0], d1) || !bytes.Equal(in[1], d2) {
		t.Error("Password must sort a copy, not the caller's slice contents")
	}
	if in[0][0] != 0x09 {
		t.Error("caller's digest order was rearranged in place")
	}
}

func TestPassword_EmptySet(t *testing.T) {
	p, err := Password(nil, testSaltPH)
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 64 {
		t.Errorf("password length = %d, want 64", len(p))
	}

	// Empty set is still salt-dependent.
	p2, err := Password(nil, bytes.Repeat([]byte{0xAB}, 16))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(p, p2) {
		t.Error("empty-set passwords must differ across salts")
	}
}

func TestPassword_SetSensitivity(t *testing.T) {
	d1 := bytes.Repeat([]byte{0x01}, 64)
	d2 := bytes.Repeat([]byte{0x02}, 64)

	pa, err := Password([][]byte{d1}, testSaltPH)
	if err != nil {
		t.Fatal(err)
	}
	pb, err := Password([][]byte{d1, d2}, testSaltPH)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(pa, pb) {
		t.Error("adding a digest must change the password")
	}
}

func TestDerive_Validation(t *testing.T) {
	password := make([]byte, 64)

	if _, err := Derive(password, testSaltKDF, 0); !errors.Is(err, errs.ErrBadInput) {
		t.Errorf("time cost 0: expected ErrBadInput, got %v", err)
	}
	if _, err := Derive(password, testSaltKDF[:8], 1); !errors.Is(err, errs.ErrBadInput) {
		t.Errorf("short salt: expected ErrBadInput, got %v", err)
	}
}

func TestDerive_SubKeyLayout(t *testing.T) {
	// A single full-strength derivation at the minimum time cost; the
	// heavier property tests run under the testhooks build tag.
	password, err := Password(nil, testSaltPH)
	if err != nil {
		t.Fatal(err)
	}

	keys, err := Derive(password, testSaltKDF, 1)
	if err != nil {
		t.Fatalf("Derive failed: %v", err)
	}

	total := len(keys.PadTotal) + len(keys.PadSplit) + len(keys.Nonce) + len(keys.Enc) + len(keys.MAC)
	if total != TagSize {
		t.Errorf("sub-keys cover %d bytes, want %d", total, TagSize)
	}

	// Deterministic: same inputs, same sub-keys.
	again, err := Derive(password, testSaltKDF, 1)
	if err != nil {
		t.Fatal(err)
	}
	if *keys != *again {
		t.Error("derivation is not deterministic")
	}
}

func TestSplitTag(t *testing.T) {
	tag := make([]byte, TagSize)
	for i := range tag {
		tag[i] = byte(i)
	}

	keys := splitTag(tag)

	if keys.PadTotal[0] != 0 || keys.PadTotal[9] != 9 {
		t.Error("PadTotal not taken from tag[0:10]")
	}
	if keys.PadSplit[0] != 10 || keys.PadSplit[9] != 19 {
		t.Error("PadSplit not taken from tag[10:20]")
	}
	if keys.Nonce[0] != 20 || keys.Nonce[11] != 31 {
		t.Error("Nonce not taken from tag[20:32]")
	}
	if keys.Enc[0] != 32 || keys.Enc[31] != 63 {
		t.Error("Enc not taken from tag[32:64]")
	}
	if keys.MAC[0] != 64 || keys.MAC[63] != 127 {
		t.Error("MAC not taken from tag[64:128]")
	}
}
