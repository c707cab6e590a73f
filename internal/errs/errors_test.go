/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package errs

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
)

func TestOpError_Error(t *testing.T) {
	e := NewOpError("encrypt", "/tmp/out.bin", ErrIO)
	msg := e.Error()
	if !strings.Contains(msg, "encrypt") || !strings.Contains(msg, "/tmp/out.bin") {
		t.Errorf("unexpected message: %q", msg)
	}

	noPath := NewOpError("derive", "", ErrEnv)
	if strings.Contains(noPath.Error(), "  ") {
		t.Errorf("pathless message has stray spacing: %q", noPath.Error())
	}
}

func TestOpError_Unwrap(t *testing.T) {
	e := NewOpError("decrypt", "blob.bin", ErrMACFail)
	if !errors.Is(e, ErrMACFail) {
		t.Error("OpError should unwrap to its kind")
	}
}

func TestWrap(t *testing.T) {
	if Wrap("context", nil) != nil {
		t.Error("Wrap(nil) should be nil")
	}

	wrapped := Wrap("open file", os.ErrNotExist)
	if !errors.Is(wrapped, os.ErrNotExist) {
		t.Error("wrapped error should match the original")
	}
	if !strings.Contains(wrapped.Error(), "open file") {
		t.Errorf("wrapped error missing context: %q", wrapped.Error())
	}
}

func TestIO(t *testing.T) {
	if IO("read", nil) != nil {
		t.Error("IO(nil) should be nil")
	}

	err := IO("read blob", fmt.Errorf("short read"))
	if !errors.Is(err, ErrIO) {
		t.Error("IO error should match ErrIO")
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want string
	}{
		{"nil", nil, ""},
		{"mac fail", Wrap("decrypt", ErrMACFail), ErrMACFail.Error()},
		{"length mismatch", Wrap("decode", ErrLengthMismatch), ErrLengthMismatch.Error()},
		{"cancelled", ErrCancelled, ErrCancelled.Error()},
		{"permission", Wrap("open", os.ErrPermission), "insufficient permissions"},
		{"not exist", Wrap("open", os.ErrNotExist), "file not found"},
		{"unknown", fmt.Errorf("internal detail: key=abc"), "operation failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sanitize(tt.in)
			if tt.in == nil {
				if got != nil {
					t.Errorf("Sanitize(nil) = %v", got)
				}
				return
			}
			if got.Error() != tt.want {
				t.Errorf("Sanitize(%v) = %q, want %q", tt.in, got.Error(), tt.want)
			}
		})
	}
}

func TestSanitize_HidesDetail(t *testing.T) {
	leaky := fmt.Errorf("argon2 password 0xdeadbeef rejected")
	got := Sanitize(leaky).Error()
	if strings.Contains(got, "deadbeef") {
		t.Errorf("sanitized error leaks detail: %q", got)
	}
}
