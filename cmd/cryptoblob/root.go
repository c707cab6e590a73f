/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/purbtools/cryptoblob"
)

const version = "1.0.0"

var (
	session cryptoblob.Session
	log     = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

func logger() *zerolog.Logger {
	return &log
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "cryptoblob",
		Short: "File encryption into padded uniform random blobs",
		Long: `cryptoblob encrypts files into padded uniform random blobs (PURBs):
authenticated ciphertexts indistinguishable from uniform random bytes, with
no headers, no magic, and a randomized size. Blobs can be embedded at any
offset inside opaque containers; the (start, end) span and the keys are the
only map.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if session.UnsafeDebug {
				level = zerolog.DebugLevel
			}
			log = log.Level(level)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMenu(cmd)
		},
	}

	root.PersistentFlags().BoolVar(&session.UnsafeDebug, "unsafe-debug", false,
		"verbose diagnostics; may leak operational detail to the terminal")
	root.PersistentFlags().BoolVar(&session.UnsafeDecrypt, "unsafe-decrypt", false,
		"release plaintext even when MAC verification fails")

	root.AddCommand(
		newInfoCmd(),
		newEncryptCmd(),
		newDecryptCmd(),
		newEmbedCmd(),
		newExtractCmd(),
		newEncryptEmbedCmd(),
		newExtractDecryptCmd(),
		newRandomFileCmd(),
		newOverwriteCmd(),
	)
	return root
}

// menu maps the numbered actions onto the subcommands.
var menu = []struct {
	label string
	cmd   string
}{
	{"exit", ""},
	{"info", "info"},
	{"encrypt", "encrypt"},
	{"decrypt", "decrypt"},
	{"embed", "embed"},
	{"extract", "extract"},
	{"encrypt and embed", "encrypt-embed"},
	{"extract and decrypt", "extract-decrypt"},
	{"create random file", "random-file"},
	{"overwrite with random", "overwrite"},
}

func runMenu(cmd *cobra.Command) error {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Println()
		for i, item := range menu {
			fmt.Printf("  %d  %s\n", i, item.label)
		}
		fmt.Print("action: ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil
		}
		choice := strings.TrimSpace(line)
		if choice == "" {
			continue
		}
		if choice == "0" {
			return nil
		}

		var selected string
		for i, item := range menu {
			if fmt.Sprint(i) == choice {
				selected = item.cmd
			}
		}
		if selected == "" {
			fmt.Printf("unknown action %q\n", choice)
			continue
		}

		sub, _, err := cmd.Find([]string{selected})
		if err != nil {
			return err
		}
		if err := runInteractive(cmd, sub); err != nil {
			log.Error().Err(cryptoblob.Sanitize(err)).Str("action", selected).Msg("action failed")
		}
	}
}

// runInteractive executes a subcommand inside the menu loop: arguments are
// prompted rather than parsed, so each RunE falls back to prompts for its
// missing inputs.
func runInteractive(root, sub *cobra.Command) error {
	sub.SetContext(root.Context())
	return sub.RunE(sub, nil)
}
