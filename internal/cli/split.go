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
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/secretsharing"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
	"github.com/jeremyhahn/go-crusty/pkg/share"
	"github.com/jeremyhahn/go-crusty/pkg/splitkey"
)

func newSplitCommand(cfg *Config) *cobra.Command {
	var (
		keyFile   string
		threshold int
		total     int
		format    string
		scheme    string
		outDir    string
		prefix    string
		qr        bool
	)
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a key into Shamir shares",
		Long: `Split a key into --shares shares of which any --threshold reconstruct it.
Each share is written to <out-dir>/<prefix>-<n>.txt in the chosen format,
with an optional QR code image alongside.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cfg.OpenSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			f, err := share.ParseFormat(format)
			if err != nil {
				return err
			}
			sch := sess.Config.Scheme()
			if scheme != "" {
				if sch, err = secretsharing.ParseScheme(scheme); err != nil {
					return err
				}
			}

			key, err := loadKey(cmd, sess, keyFile)
			if err != nil {
				return err
			}
			defer key.Destroy()

			split, err := splitkey.Split(key, threshold, total, splitkey.PurposeStandard, splitkey.WithScheme(sch))
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpSplitKey, keyFile, err))
				return err
			}
			defer split.Destroy()

			if err := os.MkdirAll(outDir, 0o700); err != nil {
				return fmt.Errorf("%w: %w", crustyerr.ErrIO, err)
			}
			outputs := make([]ShareOutput, 0, split.Total())
			for i := 0; i < split.Total(); i++ {
				content, err := split.ShareFormatted(i, f)
				if err != nil {
					return err
				}
				path := filepath.Join(outDir, fmt.Sprintf("%s-%d.txt", prefix, i+1))
				if err := writeNewFile(path, []byte(content)); err != nil {
					sess.Record(cmd.Context(), oplog.Failure(oplog.OpSplitKey, path, err))
					return err
				}
				if qr {
					png, err := split.ShareQRCode(i, share.DefaultQRSize)
					if err != nil {
						return err
					}
					if err := writeNewFile(filepath.Join(outDir, fmt.Sprintf("%s-%d.png", prefix, i+1)), png); err != nil {
						return err
					}
				}
				printVerbose(cmd, cfg, "Wrote share %d to %s", i+1, path)
				outputs = append(outputs, ShareOutput{Index: i + 1, Path: path})
			}

			sess.Record(cmd.Context(), oplog.Success(oplog.OpSplitKey, keyFile,
				fmt.Sprintf("split into %d shares, threshold %d", split.Total(), split.Threshold())))
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintShares(
				fmt.Sprintf("Split key into %s shares", f), split.Threshold(), outputs)
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "key file to split")
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 2, "shares required to reconstruct")
	cmd.Flags().IntVarP(&total, "shares", "n", 3, "total shares to create")
	cmd.Flags().StringVar(&format, "format", "text", "share format (text, mnemonic, binary)")
	cmd.Flags().StringVar(&scheme, "scheme", "", "sharing scheme (gf256, prime); default from config")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "directory for share files")
	cmd.Flags().StringVar(&prefix, "prefix", "share", "share file name prefix")
	cmd.Flags().BoolVar(&qr, "qr", false, "also write a QR code PNG per share")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newCombineCommand(cfg *Config) *cobra.Command {
	var (
		threshold int
		scheme    string
		out       string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "combine <share-file>...",
		Short: "Reconstruct a key from share files",
		Long: `Reconstruct a key from share files in any format. The threshold is read
from text and mnemonic shares; binary shares carry no header and need
--threshold and, for prime-field shares, --scheme.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cfg.OpenSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			sch := sess.Config.Scheme()
			if scheme != "" {
				if sch, err = secretsharing.ParseScheme(scheme); err != nil {
					return err
				}
			}

			shares := make([]share.Share, len(args))
			t := threshold
			for i, path := range args {
				sh, err := share.LoadFile(path)
				if err != nil {
					sess.Record(cmd.Context(), oplog.Failure(oplog.OpReconstructKey, path, err))
					return fmt.Errorf("%s: %w", path, err)
				}
				if t == 0 && sh.HasHeader() {
					t = int(sh.Threshold)
				}
				shares[i] = sh
			}
			if t == 0 {
				return errors.New("shares carry no threshold; pass --threshold")
			}

			key, err := splitkey.ReconstructDecoded(shares, t, splitkey.WithScheme(sch))
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpReconstructKey, out, err))
				return err
			}
			defer key.Destroy()

			if err := writeKey(out, key, force); err != nil {
				return err
			}
			sess.Record(cmd.Context(), oplog.Success(oplog.OpReconstructKey, out,
				fmt.Sprintf("reconstructed from %d shares", len(shares))))
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintSuccess(
				fmt.Sprintf("Reconstructed key: %s", out))
		},
	}
	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "shares required (default: from share headers)")
	cmd.Flags().StringVar(&scheme, "scheme", "", "sharing scheme for headerless shares")
	cmd.Flags().StringVar(&out, "out", "crusty.key", "file to write the key to")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}

// writeNewFile creates path with mode 0600, failing if it already exists.
func writeNewFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s: %w", crustyerr.ErrDestinationExists, path, err)
		}
		return fmt.Errorf("%w: %w", crustyerr.ErrIO, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("%w: %w", crustyerr.ErrIO, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("%w: %w", crustyerr.ErrIO, err)
	}
	return nil
}
