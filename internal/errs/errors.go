/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Package errs defines the error kinds surfaced by cryptoblob operations.
package errs

import (
	"errors"
	"fmt"
	"os"
)

// Error kinds. Errors returned by the core wrap one of these, so callers can
// dispatch with errors.Is. Failures of the system random source and of
// hash or cipher construction are the exception and carry no kind.
var (
	// ErrIO covers any read/write/seek/fsync failure.
	ErrIO = errors.New("i/o failure")

	// ErrLengthMismatch means the given span cannot hold a valid cryptoblob:
	// it is smaller than the minimum blob size, or the size reconstructed
	// from the derived keys does not equal end-start.
	ErrLengthMismatch = errors.New("length mismatch: not a valid cryptoblob for the given span")

	// ErrMACFail means the computed MAC differs from the stored one. Wrong
	// keys, wrong time cost, corruption, and fake-MAC blobs are
	// indistinguishable here.
	ErrMACFail = errors.New("MAC verification failed")

	// ErrCancelled means the user aborted mid-operation.
	ErrCancelled = errors.New("operation cancelled")

	// ErrBadInput covers invalid parameters: time cost below 1, unreadable
	// keyfile paths, oversized payloads, bad offsets.
	ErrBadInput = errors.New("invalid input")

	// ErrEnv means the environment could not support the operation, e.g.
	// the 1 GiB Argon2 work area could not be allocated.
	ErrEnv = errors.New("environment failure")
)

// OpError carries the failing operation and path alongside the underlying
// error kind.
type OpError struct {
	Op   string // operation: "encrypt", "decrypt", "embed", ...
	Path string // file path being operated on, if any
	Err  error  // underlying error
}

func (e *OpError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError creates an OpError.
func NewOpError(op, path string, err error) *OpError {
	return &OpError{Op: op, Path: path, Err: err}
}

// Wrap adds context to an error.
func Wrap(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// IO wraps err as an ErrIO with context.
func IO(context string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", context, ErrIO, err)
}

// Sanitize removes sensitive details for external consumption.
func Sanitize(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrMACFail):
		return ErrMACFail
	case errors.Is(err, ErrLengthMismatch):
		return ErrLengthMismatch
	case errors.Is(err, ErrCancelled):
		return ErrCancelled
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("insufficient permissions")
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("file not found")
	default:
		return fmt.Errorf("operation failed")
	}
}
