/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package secure

import (
	"crypto/subtle"
)

// Compare performs constant-time comparison of two byte slices.
func Compare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
