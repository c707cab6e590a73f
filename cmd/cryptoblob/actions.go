/*
 * This Source Code Form is subject to the terms of the Mozilla Public License, v. 2.0.
 * If a copy of the MPL was not distributed with this file, You can obtain one at
 * https://mozilla.org/MPL/2.0/.
 */

package main

import (
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/purbtools/cryptoblob"
)

// progressFor adapts the core's fractional callback to a terminal bar.
func progressFor(label string, total int64) func(float64) {
	if total <= 0 {
		return nil
	}
	bar := progressbar.DefaultBytes(total, label)
	return func(f float64) {
		_ = bar.Set64(int64(f * float64(total)))
	}
}

// codecOptions turns the shared encryption/decryption flags into options.
func codecOptions(timeCost uint32, padPercent int, comment string, fakeMAC bool) ([]cryptoblob.Option, error) {
	opts := session.Options()

	tc, err := cryptoblob.WithTimeCost(timeCost)
	if err != nil {
		return nil, err
	}
	opts = append(opts, tc)

	pp, err := cryptoblob.WithPadPercent(padPercent)
	if err != nil {
		return nil, err
	}
	opts = append(opts, pp)

	if comment != "" {
		opts = append(opts, cryptoblob.WithComment(comment))
	}
	if fakeMAC {
		opts = append(opts, cryptoblob.WithFakeMAC(true))
	}
	return opts, nil
}

func needPath(current *string, label string) error {
	if *current != "" {
		return nil
	}
	v, err := promptLine(label, "")
	if err != nil {
		return err
	}
	if v == "" {
		return fmt.Errorf("%w: %s is required", cryptoblob.ErrBadInput, label)
	}
	*current = v
	return nil
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show tool and format parameters",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("cryptoblob %s\n", version)
			fmt.Printf("  minimum blob size:  %d bytes\n", cryptoblob.MinBlobSize)
			fmt.Printf("  maximum payload:    %s\n", humanize.IBytes(uint64(cryptoblob.MaxPayloadSize)))
			fmt.Printf("  key schedule:       Argon2id, 1 GiB, 1 lane, default time cost %d\n", cryptoblob.DefaultTimeCost)
			fmt.Printf("  cipher / MAC:       ChaCha20 / keyed BLAKE2b-512\n")
			fmt.Printf("  unsafe-debug:       %v\n", session.UnsafeDebug)
			fmt.Printf("  unsafe-decrypt:     %v\n", session.UnsafeDecrypt)
			return nil
		},
	}
}

type encryptFlags struct {
	in, out    string
	comment    string
	timeCost   uint32
	padPercent int
	fakeMAC    bool
}

func (f *encryptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in, "in", "", "file to encrypt")
	cmd.Flags().StringVar(&f.out, "out", "", "output blob path")
	cmd.Flags().StringVar(&f.comment, "comment", "", "comment stored inside the blob")
	cmd.Flags().Uint32Var(&f.timeCost, "time-cost", cryptoblob.DefaultTimeCost, "Argon2id time cost (not stored; remember it)")
	cmd.Flags().IntVar(&f.padPercent, "pad-percent", 20, "maximum padding share of the final blob size")
	cmd.Flags().BoolVar(&f.fakeMAC, "fake-mac", false, "write a random MAC; the blob will never verify")
}

func newEncryptCmd() *cobra.Command {
	var f encryptFlags
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a file into a standalone blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&f.in, "input file"); err != nil {
				return err
			}
			if err := needPath(&f.out, "output blob"); err != nil {
				return err
			}
			opts, err := codecOptions(f.timeCost, f.padPercent, f.comment, f.fakeMAC)
			if err != nil {
				return err
			}
			kr, err := promptKeyring(true)
			if err != nil {
				return err
			}
			if cb := progressFor("encrypting", fileSize(f.in)); cb != nil {
				opts = append(opts, cryptoblob.WithProgress(cb))
			}

			log.Info().Uint32("time_cost", f.timeCost).Msg("deriving keys; this is the slow part")
			res, err := cryptoblob.EncryptFile(cmd.Context(), f.in, f.out, kr, opts...)
			if err != nil {
				return err
			}
			if res.CommentTruncated {
				log.Warn().Msg("comment was truncated to 512 bytes; it lost its end marker")
			}
			log.Info().
				Str("blob", f.out).
				Str("size", humanize.IBytes(uint64(res.BlobSize))).
				Msg("encrypted")
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

type decryptFlags struct {
	in, out    string
	timeCost   uint32
	padPercent int
}

func (f *decryptFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.in, "in", "", "blob to decrypt")
	cmd.Flags().StringVar(&f.out, "out", "", "output file path")
	cmd.Flags().Uint32Var(&f.timeCost, "time-cost", cryptoblob.DefaultTimeCost, "Argon2id time cost used at encryption")
	cmd.Flags().IntVar(&f.padPercent, "pad-percent", 20, "padding share used at encryption")
}

func reportDecrypt(res *cryptoblob.DecryptResult) {
	if !res.Verified {
		log.Warn().Msg("MAC verification FAILED; plaintext released under --unsafe-decrypt")
	}
	if res.Comment != "" {
		log.Info().Str("comment", res.Comment).Msg("blob comment")
	}
	log.Info().Str("size", humanize.IBytes(uint64(res.PayloadSize))).Msg("decrypted")
}

func newDecryptCmd() *cobra.Command {
	var f decryptFlags
	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a standalone blob",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&f.in, "input blob"); err != nil {
				return err
			}
			if err := needPath(&f.out, "output file"); err != nil {
				return err
			}
			opts, err := codecOptions(f.timeCost, f.padPercent, "", false)
			if err != nil {
				return err
			}
			kr, err := promptKeyring(false)
			if err != nil {
				return err
			}

			log.Info().Uint32("time_cost", f.timeCost).Msg("deriving keys; this is the slow part")
			res, err := cryptoblob.DecryptFile(cmd.Context(), f.in, f.out, kr, opts...)
			if err != nil {
				return err
			}
			reportDecrypt(res)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newEmbedCmd() *cobra.Command {
	var in, dst string
	var offset int64
	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Write a file over a container range at an offset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&in, "file to embed"); err != nil {
				return err
			}
			if err := needPath(&dst, "container"); err != nil {
				return err
			}
			if !cmd.Flags().Changed("offset") {
				v, err := promptInt64("start offset", 0)
				if err != nil {
					return err
				}
				offset = v
			}

			ok, err := confirm(fmt.Sprintf("overwrite %s starting at offset %d?", dst, offset))
			if err != nil {
				return err
			}
			if !ok {
				return cryptoblob.ErrCancelled
			}

			receipt, err := cryptoblob.Embed(cmd.Context(), in, dst, offset, progressFor("embedding", fileSize(in)))
			if err != nil {
				return err
			}
			log.Info().
				Int64("start", receipt.Start).
				Int64("end", receipt.End).
				Str("sha256", fmt.Sprintf("%x", receipt.SHA256)).
				Msg("embedded; remember the span")
			return nil
		},
	}
	cmd.Flags().StringVar(&in, "in", "", "file to embed")
	cmd.Flags().StringVar(&dst, "container", "", "container path")
	cmd.Flags().Int64Var(&offset, "offset", 0, "start offset inside the container")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var src, out string
	var start, end int64
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Read a byte range out of a container into a new file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&src, "container"); err != nil {
				return err
			}
			if err := needPath(&out, "output file"); err != nil {
				return err
			}
			if !cmd.Flags().Changed("start") {
				v, err := promptInt64("start offset", 0)
				if err != nil {
					return err
				}
				start = v
			}
			if !cmd.Flags().Changed("end") {
				v, err := promptInt64("end offset", 0)
				if err != nil {
					return err
				}
				end = v
			}

			receipt, err := cryptoblob.Extract(cmd.Context(), src, start, end, out, progressFor("extracting", end-start))
			if err != nil {
				return err
			}
			log.Info().
				Str("sha256", fmt.Sprintf("%x", receipt.SHA256)).
				Str("size", humanize.IBytes(uint64(receipt.End-receipt.Start))).
				Msg("extracted")
			return nil
		},
	}
	cmd.Flags().StringVar(&src, "container", "", "container path")
	cmd.Flags().StringVar(&out, "out", "", "output file path")
	cmd.Flags().Int64Var(&start, "start", 0, "range start offset")
	cmd.Flags().Int64Var(&end, "end", 0, "range end offset")
	return cmd
}

func newEncryptEmbedCmd() *cobra.Command {
	var f encryptFlags
	var offset int64
	cmd := &cobra.Command{
		Use:   "encrypt-embed",
		Short: "Encrypt a file straight into a container at an offset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&f.in, "input file"); err != nil {
				return err
			}
			if err := needPath(&f.out, "container"); err != nil {
				return err
			}
			if !cmd.Flags().Changed("offset") {
				v, err := promptInt64("start offset", 0)
				if err != nil {
					return err
				}
				offset = v
			}
			opts, err := codecOptions(f.timeCost, f.padPercent, f.comment, f.fakeMAC)
			if err != nil {
				return err
			}

			ok, err := confirm(fmt.Sprintf("overwrite %s starting at offset %d?", f.out, offset))
			if err != nil {
				return err
			}
			if !ok {
				return cryptoblob.ErrCancelled
			}

			kr, err := promptKeyring(true)
			if err != nil {
				return err
			}
			if cb := progressFor("encrypting", fileSize(f.in)); cb != nil {
				opts = append(opts, cryptoblob.WithProgress(cb))
			}

			log.Info().Uint32("time_cost", f.timeCost).Msg("deriving keys; this is the slow part")
			res, err := cryptoblob.EncryptToContainer(cmd.Context(), f.in, f.out, offset, kr, opts...)
			if err != nil {
				log.Warn().Msg("the container may be damaged over the target span")
				return err
			}
			if res.CommentTruncated {
				log.Warn().Msg("comment was truncated to 512 bytes; it lost its end marker")
			}
			log.Info().
				Int64("start", res.Start).
				Int64("end", res.End).
				Msg("embedded blob; remember the span")
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().Int64Var(&offset, "offset", 0, "start offset inside the container")
	return cmd
}

func newExtractDecryptCmd() *cobra.Command {
	var f decryptFlags
	var start, end int64
	cmd := &cobra.Command{
		Use:   "extract-decrypt",
		Short: "Decrypt the blob living at a span inside a container",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&f.in, "container"); err != nil {
				return err
			}
			if err := needPath(&f.out, "output file"); err != nil {
				return err
			}
			if !cmd.Flags().Changed("start") {
				v, err := promptInt64("start offset", 0)
				if err != nil {
					return err
				}
				start = v
			}
			if !cmd.Flags().Changed("end") {
				v, err := promptInt64("end offset", 0)
				if err != nil {
					return err
				}
				end = v
			}
			opts, err := codecOptions(f.timeCost, f.padPercent, "", false)
			if err != nil {
				return err
			}
			kr, err := promptKeyring(false)
			if err != nil {
				return err
			}

			log.Info().Uint32("time_cost", f.timeCost).Msg("deriving keys; this is the slow part")
			res, err := cryptoblob.DecryptRange(cmd.Context(), f.in, start, end, f.out, kr, opts...)
			if err != nil {
				return err
			}
			reportDecrypt(res)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().Int64Var(&start, "start", 0, "blob start offset")
	cmd.Flags().Int64Var(&end, "end", 0, "blob end offset")
	return cmd
}

func newRandomFileCmd() *cobra.Command {
	var path, size string
	cmd := &cobra.Command{
		Use:   "random-file",
		Short: "Create a new file filled with CSPRNG bytes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&path, "output path"); err != nil {
				return err
			}
			if size == "" {
				v, err := promptLine("size (e.g. 16MiB)", "")
				if err != nil {
					return err
				}
				size = v
			}
			n, err := humanize.ParseBytes(size)
			if err != nil || n > uint64(math.MaxInt64) {
				return fmt.Errorf("%w: bad size %q", cryptoblob.ErrBadInput, size)
			}

			if err := cryptoblob.CreateRandom(cmd.Context(), path, int64(n), progressFor("filling", int64(n))); err != nil {
				return err
			}
			log.Info().Str("path", path).Str("size", humanize.IBytes(n)).Msg("created")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "file to create (must not exist)")
	cmd.Flags().StringVar(&size, "size", "", "file size (humanized, e.g. 16MiB)")
	return cmd
}

func newOverwriteCmd() *cobra.Command {
	var path string
	var start, end int64
	cmd := &cobra.Command{
		Use:   "overwrite",
		Short: "Overwrite a byte range with CSPRNG bytes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := needPath(&path, "target path"); err != nil {
				return err
			}
			if !cmd.Flags().Changed("start") {
				v, err := promptInt64("start offset", 0)
				if err != nil {
					return err
				}
				start = v
			}
			if !cmd.Flags().Changed("end") {
				v, err := promptInt64("end offset", 0)
				if err != nil {
					return err
				}
				end = v
			}

			ok, err := confirm(fmt.Sprintf("irreversibly overwrite %s [%d, %d)?", path, start, end))
			if err != nil {
				return err
			}
			if !ok {
				return cryptoblob.ErrCancelled
			}

			receipt, err := cryptoblob.Wipe(cmd.Context(), path, start, end, progressFor("overwriting", end-start))
			if err != nil {
				log.Warn().Msg("the target may be partially overwritten")
				return err
			}
			log.Info().
				Str("sha256", fmt.Sprintf("%x", receipt.SHA256)).
				Msg("overwritten")
			return nil
		},
	}
	cmd.Flags().StringVar(&path, "path", "", "file or block device")
	cmd.Flags().Int64Var(&start, "start", 0, "range start offset")
	cmd.Flags().Int64Var(&end, "end", 0, "range end offset")
	return cmd
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
