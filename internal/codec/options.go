/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// options.go: Configuration options for the cryptoblob codec.
package codec

import (
	"fmt"

	"github.com/purbtools/cryptoblob/internal/errs"
	"github.com/purbtools/cryptoblob/internal/kdf"
	"github.com/purbtools/cryptoblob/internal/padalg"
)

// Config carries the per-operation knobs. The zero value is not usable;
// newConfig applies the defaults.
type Config struct {
	Comment       string
	TimeCost      uint32
	PadPercent    int
	FakeMAC       bool
	UnsafeRelease bool
	Progress      func(float64)
}

// Option defines functional options for encoding/decoding.
type Option func(*Config)

func newConfig(opts ...Option) *Config {
	cfg := &Config{
		TimeCost:   kdf.DefaultTimeCost,
		PadPercent: padalg.DefaultPercent,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithComment attaches a comment to the blob. Comments longer than the
// 512-byte region are truncated at encode time; the result reports it.
func WithComment(comment string) Option {
	return func(cfg *Config) {
		cfg.Comment = comment
	}
}

// WithTimeCost sets the Argon2id time cost. The value is not persisted in
// the blob; decryption with a different value fails like any wrong key.
func WithTimeCost(t uint32) (Option, error) {
	if t < 1 {
		return nil, fmt.Errorf("%w: time cost must be at least 1, got %d", errs.ErrBadInput, t)
	}
	return func(cfg *Config) {
		cfg.TimeCost = t
	}, nil
}

// WithPadPercent sets the maximum padding share of the final blob size.
// Both endpoints must use the same value; like the time cost it is not
// persisted.
func WithPadPercent(pct int) (Option, error) {
	if pct < 0 || pct > padalg.MaxPercent {
		return nil, fmt.Errorf("%w: pad percent must be in [0, %d], got %d", errs.ErrBadInput, padalg.MaxPercent, pct)
	}
	return func(cfg *Config) {
		cfg.PadPercent = pct
	}, nil
}

// WithFakeMAC writes 64 uniform random bytes in the MAC slot instead of the
// real tag. Such a blob never verifies; it exists for deniability.
func WithFakeMAC(enable bool) Option {
	return func(cfg *Config) {
		cfg.FakeMAC = enable
	}
}

// WithUnsafeRelease makes the decoder emit plaintext even when the MAC does
// not verify. Off by default; the verification result is still reported.
func WithUnsafeRelease(enable bool) Option {
	return func(cfg *Config) {
		cfg.UnsafeRelease = enable
	}
}

// WithProgress sets a progress callback invoked with a fraction in [0, 1]
// at roughly 20% intervals of the payload pass.
func WithProgress(cb func(float64)) Option {
	return func(cfg *Config) {
		cfg.Progress = cb
	}
}
