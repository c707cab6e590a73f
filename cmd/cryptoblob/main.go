/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

// Command cryptoblob is the prompt-driven front end for the cryptoblob
// codec: encrypt, decrypt, embed, extract, and container preparation.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/purbtools/cryptoblob"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, cryptoblob.ErrCancelled) || errors.Is(err, context.Canceled) {
			logger().Warn().Msg("cancelled")
			os.Exit(130)
		}
		logger().Error().Err(err).Msg("failed")
		os.Exit(1)
	}
}
