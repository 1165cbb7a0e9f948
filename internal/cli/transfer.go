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
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-crusty/pkg/oplog"
)

func newTransferCommand(cfg *Config) *cobra.Command {
	transferCmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move a key between machines as text shares",
	}
	transferCmd.AddCommand(newTransferCreateCommand(cfg), newTransferReceiveCommand(cfg))
	return transferCmd
}

func newTransferCreateCommand(cfg *Config) *cobra.Command {
	var (
		keyFile   string
		threshold int
		total     int
		outDir    string
		mnemonic  bool
		show      bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a transfer package",
		Long: `Split a key into text shares for transfer. Send each share over a
different channel; any --threshold of them rebuild the key with
"crusty transfer receive".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cfg.OpenSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			mgr, err := sess.Manager()
			if err != nil {
				return err
			}
			key, err := loadKey(cmd, sess, keyFile)
			if err != nil {
				return err
			}
			defer key.Destroy()

			pkg, err := mgr.CreateTransferPackage(key, threshold, total)
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpSplitKey, keyFile, err))
				return err
			}

			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return err
			}
			outputs := make([]ShareOutput, 0, pkg.Count())
			for i := 0; i < pkg.Count(); i++ {
				text, err := pkg.ShareText(i)
				if err != nil {
					return err
				}
				if mnemonic {
					if text, err = pkg.ShareMnemonic(i); err != nil {
						return err
					}
				}
				path := filepath.Join(outDir, fmt.Sprintf("transfer-%d.txt", i+1))
				if err := writeNewFile(path, []byte(text)); err != nil {
					return err
				}
				out := ShareOutput{Index: i + 1, Path: path}
				if show {
					out.Text = text
				}
				outputs = append(outputs, out)
			}

			sess.Record(cmd.Context(), oplog.Success(oplog.OpSplitKey, keyFile,
				fmt.Sprintf("transfer package of %d shares, threshold %d", pkg.Count(), pkg.Threshold())))
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintShares(
				"Created transfer package", pkg.Threshold(), outputs)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "key file to transfer")
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 2, "shares required to reconstruct")
	cmd.Flags().IntVarP(&total, "shares", "n", 3, "total shares to create")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for transfer share files")
	cmd.Flags().BoolVar(&mnemonic, "mnemonic", false, "write shares as word phrases")
	cmd.Flags().BoolVar(&show, "print", false, "also print the shares")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newTransferReceiveCommand(cfg *Config) *cobra.Command {
	var (
		out   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "receive <share-file>...",
		Short: "Rebuild a key from transfer shares",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cfg.OpenSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			mgr, err := sess.Manager()
			if err != nil {
				return err
			}
			texts, err := readShareTexts(args)
			if err != nil {
				return err
			}

			key, err := mgr.ReconstructKeyFromTextShares(texts)
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpReconstructKey, args[0], err))
				return err
			}
			defer key.Destroy()

			if err := writeKey(out, key, force); err != nil {
				return err
			}
			sess.Record(cmd.Context(), oplog.Success(oplog.OpReconstructKey, out,
				fmt.Sprintf("received from %d transfer shares", len(texts))))
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintSuccess(
				fmt.Sprintf("Received key: %s", out))
		},
	}
	cmd.Flags().StringVar(&out, "out", "crusty.key", "file to write the key to")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}
