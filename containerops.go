/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package cryptoblob

import (
	"context"

	"github.com/purbtools/cryptoblob/internal/container"
)

// Receipt reports a completed range operation (re-exported from
// internal/container).
type Receipt = container.Receipt

// Embed writes the whole of srcPath over the byte range of containerPath
// starting at offset, fsyncs, and returns a checksum receipt of the written
// range. Embedding a cryptoblob is identical to embedding any other file.
func Embed(ctx context.Context, srcPath, containerPath string, offset int64, progress func(float64)) (*Receipt, error) {
	return container.Embed(ctx, srcPath, containerPath, offset, progress)
}

// Extract reads the byte range [start, end) out of containerPath into a new
// file at dstPath (created exclusively).
func Extract(ctx context.Context, containerPath string, start, end int64, dstPath string, progress func(float64)) (*Receipt, error) {
	return container.Extract(ctx, containerPath, start, end, dstPath, progress)
}

// Wipe overwrites the byte range [start, end) of an existing file or block
// device with uniform random bytes and fsyncs.
func Wipe(ctx context.Context, path string, start, end int64, progress func(float64)) (*Receipt, error) {
	return container.Wipe(ctx, path, start, end, progress)
}

// CreateRandom creates a new file of the given size filled with uniform
// random bytes; it fails if the path already exists.
func CreateRandom(ctx context.Context, path string, size int64, progress func(float64)) error {
	return container.Create(ctx, path, size, progress)
}
