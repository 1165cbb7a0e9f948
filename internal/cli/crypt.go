// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-crusty.
//
// go-crusty is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-crusty/pkg/backend"
	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/filecodec"
)

type cryptFlags struct {
	keyFile   string
	out       string
	outDir    string
	stream    bool
	recipient string
	withEmail bool
}

func newEncryptCommand(cfg *Config) *cobra.Command {
	f := &cryptFlags{}
	cmd := &cobra.Command{
		Use:   "encrypt <file>...",
		Short: "Encrypt one or more files",
		Long: `Encrypt files with AES-256-GCM. A single file is written next to the
source as <name>.encrypted unless --out is given; several files are written
to --out-dir. With --recipient the file is sealed under a key derived from
the master key and the recipient's email address.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrypt(cmd, cfg, f, args, true)
		},
	}
	cmd.Flags().StringVar(&f.keyFile, "key", "", "key file (master key with --recipient)")
	cmd.Flags().StringVar(&f.out, "out", "", "output file for a single input")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "output directory for batch mode")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "use the chunked streaming format")
	cmd.Flags().StringVar(&f.recipient, "recipient", "", "recipient email address")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newDecryptCommand(cfg *Config) *cobra.Command {
	f := &cryptFlags{}
	cmd := &cobra.Command{
		Use:   "decrypt <file>...",
		Short: "Decrypt one or more files",
		Long: `Decrypt files produced by encrypt. A single file is written next to the
source with the .encrypted suffix removed (or .decrypted appended) unless
--out is given; several files are written to --out-dir. Use --recipient for
files encrypted for a recipient; the embedded email address is reported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrypt(cmd, cfg, f, args, false)
		},
	}
	cmd.Flags().StringVar(&f.keyFile, "key", "", "key file (master key with --recipient)")
	cmd.Flags().StringVar(&f.out, "out", "", "output file for a single input")
	cmd.Flags().StringVar(&f.outDir, "out-dir", "", "output directory for batch mode")
	cmd.Flags().BoolVar(&f.stream, "stream", false, "input uses the chunked streaming format")
	cmd.Flags().BoolVar(&f.withEmail, "recipient", false, "input was encrypted for a recipient")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func runCrypt(cmd *cobra.Command, cfg *Config, f *cryptFlags, srcs []string, encrypt bool) error {
	recipient := f.recipient != "" || f.withEmail
	if f.stream && recipient {
		return fmt.Errorf("%w: streaming is not available for recipient files", crustyerr.ErrNotImplemented)
	}
	if f.out != "" && (len(srcs) > 1 || f.outDir != "") {
		return errors.New("--out applies to a single input; use --out-dir for several files")
	}
	if f.stream && len(srcs) > 1 {
		return errors.New("--stream applies to a single input")
	}

	sess, err := cfg.OpenSession(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	key, err := loadKey(cmd, sess, f.keyFile)
	if err != nil {
		return err
	}
	defer key.Destroy()

	printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
	verb := "Decrypting"
	if encrypt {
		verb = "Encrypting"
	}

	if len(srcs) == 1 && f.outDir == "" {
		src := srcs[0]
		dst := f.out
		if dst == "" {
			dst = filepath.Join(filepath.Dir(src), outputName(src, encrypt))
		}
		printVerbose(cmd, cfg, "%s %s -> %s", verb, src, dst)

		sp := startSpinner(cmd, cfg, verb+" "+filepath.Base(src))
		result, err := cryptOne(cmd.Context(), sess.Backend, f, src, dst, key, encrypt, sp.Update)
		sp.Stop()
		if err != nil {
			return err
		}
		return printer.PrintResults([]filecodec.Result{result})
	}

	dir := f.outDir
	if dir == "" {
		dir = "."
	}
	printVerbose(cmd, cfg, "%s %d files into %s", verb, len(srcs), dir)

	sp := startSpinner(cmd, cfg, verb)
	progress := func(index int, fraction float64) { sp.UpdateItem(index, len(srcs), fraction) }
	results, err := cryptBatch(cmd.Context(), sess.Backend, f, srcs, dir, key, encrypt, progress)
	sp.Stop()
	if err != nil {
		return err
	}
	if err := printer.PrintResults(results); err != nil {
		return err
	}
	if failed := filecodec.Failed(results); len(failed) > 0 {
		return fmt.Errorf("%d of %d files failed: %w", len(failed), len(results), failed[0].Err)
	}
	return nil
}

func outputName(src string, encrypt bool) string {
	if encrypt {
		return filecodec.EncryptedName(src)
	}
	return filecodec.DecryptedName(src)
}

func cryptOne(ctx context.Context, be backend.Backend, f *cryptFlags, src, dst string, key *symkey.Key, encrypt bool, progress filecodec.ProgressFunc) (filecodec.Result, error) {
	result := filecodec.Result{Source: src, Destination: dst, Encrypt: encrypt}
	var err error
	switch {
	case f.stream:
		streamer, ok := be.(backend.Streamer)
		if !ok {
			return result, fmt.Errorf("%w: %s backend does not support streaming", crustyerr.ErrNotImplemented, be.Type())
		}
		if encrypt {
			err = streamer.EncryptFileStream(ctx, src, dst, key, progress)
		} else {
			err = streamer.DecryptFileStream(ctx, src, dst, key, progress)
		}
	case encrypt && f.recipient != "":
		err = be.EncryptFileForRecipient(ctx, src, dst, key, f.recipient, progress)
		result.Email = f.recipient
	case encrypt:
		err = be.EncryptFile(ctx, src, dst, key, progress)
	case f.withEmail:
		result.Email, err = be.DecryptFileWithRecipient(ctx, src, dst, key, progress)
	default:
		err = be.DecryptFile(ctx, src, dst, key, progress)
	}
	result.Err = err
	return result, err
}

func cryptBatch(ctx context.Context, be backend.Backend, f *cryptFlags, srcs []string, dir string, key *symkey.Key, encrypt bool, progress filecodec.BatchProgressFunc) ([]filecodec.Result, error) {
	switch {
	case encrypt && f.recipient != "":
		return be.EncryptFilesForRecipient(ctx, srcs, dir, key, f.recipient, progress)
	case encrypt:
		return be.EncryptFiles(ctx, srcs, dir, key, progress)
	case f.withEmail:
		return be.DecryptFilesWithRecipient(ctx, srcs, dir, key, progress)
	default:
		return be.DecryptFiles(ctx, srcs, dir, key, progress)
	}
}
