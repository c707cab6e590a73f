//go:build testhooks
// +build testhooks

/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package kdf

// SetMemoryCost overrides the Argon2id memory cost in KiB. Test-only helper
// compiled with the 'testhooks' build tag; property tests that run the
// schedule many times use it to stay tractable.
func SetMemoryCost(kib uint32) (restore func()) {
	prev := memoryCost
	memoryCost = kib
	return func() { memoryCost = prev }
}
