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
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
	"github.com/jeremyhahn/go-crusty/pkg/share"
	"github.com/jeremyhahn/go-crusty/pkg/splitkey"
)

func newProtectCommand(cfg *Config) *cobra.Command {
	var (
		keyFile    string
		secondary  string
		recovery   string
		qr         bool
		qrTerminal bool
		force      bool
	)
	cmd := &cobra.Command{
		Use:   "protect",
		Short: "Protect a key with a 2-of-3 split",
		Long: `Split a key into three shares, any two of which recover it. The primary
share is kept in the credential store, the secondary share is written to
the share directory and the recovery share is written for offline backup.
An existing protected key or share file is never replaced unless --force
is given.`,
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
			qrName := strings.TrimSuffix(recovery, filepath.Ext(recovery)) + ".png"
			if force {
				mgr = mgr.WithOverwrite()
			} else {
				names := []string{secondary, recovery}
				if qr {
					names = append(names, qrName)
				}
				if err := checkUnprotected(cmd.Context(), mgr, names); err != nil {
					return err
				}
			}
			key, err := loadKey(cmd, sess, keyFile)
			if err != nil {
				return err
			}
			defer key.Destroy()

			split, err := mgr.Protect(cmd.Context(), key)
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpSplitKey, keyFile, err))
				return err
			}
			defer split.Destroy()

			secondaryPath, err := mgr.SaveSecondaryShare(split, secondary, sess.Config.SecondaryFormat())
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpSplitKey, secondary, err))
				return err
			}
			recoveryPath, err := mgr.SaveRecoveryShare(split, recovery, sess.Config.RecoveryFormat())
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpSplitKey, recovery, err))
				return err
			}
			outputs := []ShareOutput{
				{Index: splitkey.PrimaryShare + 1, Text: "credential store " + splitkey.ShareAccount(splitkey.PrimaryShare)},
				{Index: splitkey.SecondaryShare + 1, Path: secondaryPath},
				{Index: splitkey.RecoveryShare + 1, Path: recoveryPath},
			}
			if qr {
				qrPath, err := mgr.SaveRecoveryShareQRCode(split, qrName)
				if err != nil {
					return err
				}
				outputs = append(outputs, ShareOutput{Index: splitkey.RecoveryShare + 1, Path: qrPath})
			}

			sess.Record(cmd.Context(), oplog.Success(oplog.OpSplitKey, keyFile, "protected with 2-of-3 split"))
			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			if err := printer.PrintShares("Protected key", split.Threshold(), outputs); err != nil {
				return err
			}
			if qrTerminal {
				raw, err := split.Share(splitkey.RecoveryShare)
				if err != nil {
					return err
				}
				art, err := share.QRCodeTerminal(raw)
				if err != nil {
					return err
				}
				return printer.PrintRaw("recovery_qr", art)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "key file to protect")
	cmd.Flags().StringVar(&secondary, "secondary", "secondary-share.txt", "secondary share file name in the share directory")
	cmd.Flags().StringVar(&recovery, "recovery", "recovery-share.txt", "recovery share file name in the share directory")
	cmd.Flags().BoolVar(&qr, "qr", false, "also write the recovery share as a QR code PNG")
	cmd.Flags().BoolVar(&qrTerminal, "qr-terminal", false, "print the recovery share QR code")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing protected key and its share files")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

// checkUnprotected fails when a primary share is already stored or any of
// the share files exists.
func checkUnprotected(ctx context.Context, mgr *splitkey.Manager, names []string) error {
	protected, err := mgr.Protected(ctx)
	if err != nil {
		return err
	}
	if protected {
		return fmt.Errorf("%w: a key is already protected in the credential store (use --force to replace it): %w",
			crustyerr.ErrDestinationExists, fs.ErrExist)
	}
	for _, name := range names {
		exists, err := mgr.ShareExists(name)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s (use --force to replace it): %w",
				crustyerr.ErrDestinationExists, filepath.Join(mgr.ShareDir(), name), fs.ErrExist)
		}
	}
	return nil
}

func newRecoverCommand(cfg *Config) *cobra.Command {
	var (
		secondary string
		recovery  string
		texts     []string
		out       string
		force     bool
		forget    bool
	)
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Recover a protected key",
		Long: `Recover a key protected with "crusty protect". Combine the primary share
from the credential store with --secondary or --recovery, or combine two
text share files given with --share without using the credential store.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			set := 0
			for _, given := range []bool{secondary != "", recovery != "", len(texts) > 0} {
				if given {
					set++
				}
			}
			if set != 1 {
				return errors.New("exactly one of --secondary, --recovery or --share is required")
			}

			sess, err := cfg.OpenSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			mgr, err := sess.Manager()
			if err != nil {
				return err
			}

			var (
				key    *symkey.Key
				source string
			)
			switch {
			case secondary != "":
				source = secondary
				key, err = mgr.ReconstructKey(cmd.Context(), secondary)
			case recovery != "":
				source = recovery
				var sh share.Share
				if sh, err = share.LoadFile(recovery); err == nil {
					key, err = mgr.ReconstructKeyWithRecovery(cmd.Context(), sh)
				}
			default:
				source = texts[0]
				var contents []string
				if contents, err = readShareTexts(texts); err == nil {
					key, err = mgr.ReconstructKeyFromTextShares(contents)
				}
			}
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpReconstructKey, source, err))
				return err
			}
			defer key.Destroy()

			if err := writeKey(out, key, force); err != nil {
				return err
			}
			sess.Record(cmd.Context(), oplog.Success(oplog.OpReconstructKey, out, "recovered from "+source))

			if forget {
				if err := mgr.DeletePrimaryShare(cmd.Context()); err != nil {
					return err
				}
				printVerbose(cmd, cfg, "Removed primary share from the credential store")
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintSuccess(
				fmt.Sprintf("Recovered key: %s", out))
		},
	}
	cmd.Flags().StringVar(&secondary, "secondary", "", "secondary share file")
	cmd.Flags().StringVar(&recovery, "recovery", "", "recovery share file (any format)")
	cmd.Flags().StringArrayVar(&texts, "share", nil, "text share file (repeatable)")
	cmd.Flags().StringVar(&out, "out", "crusty.key", "file to write the key to")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	cmd.Flags().BoolVar(&forget, "forget", false, "delete the primary share after recovery")
	return cmd
}

// readShareTexts reads share files as text shares, converting mnemonic
// phrases back to share text.
func readShareTexts(paths []string) ([]string, error) {
	out := make([]string, len(paths))
	for i, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read share file: %w", crustyerr.ErrIO, err)
		}
		text := string(data)
		if len(strings.Fields(text)) > 1 {
			if text, err = share.FromMnemonic(text); err != nil {
				return nil, fmt.Errorf("%s: %w", p, err)
			}
		}
		out[i] = text
	}
	return out, nil
}
