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
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-crusty/pkg/crypto/symkey"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
)

func newKeyCommand(cfg *Config) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage encryption keys",
		Long:  `Generate encryption keys and derive recipient keys from a master key`,
	}
	keyCmd.AddCommand(newKeyGenerateCommand(cfg), newKeyDeriveCommand(cfg))
	return keyCmd
}

func newKeyGenerateCommand(cfg *Config) *cobra.Command {
	var (
		out   string
		force bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a new AES-256 key",
		Long:  `Generate a random 256-bit key and write its base64 form to a file`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cfg.OpenSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			key, err := symkey.Generate()
			if err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpGenerateKey, out, err))
				return err
			}
			defer key.Destroy()

			if err := writeKey(out, key, force); err != nil {
				sess.Record(cmd.Context(), oplog.Failure(oplog.OpGenerateKey, out, err))
				return err
			}
			sess.Record(cmd.Context(), oplog.Success(oplog.OpGenerateKey, out, "generated key"))
			printVerbose(cmd, cfg, "Key written with mode 0600")
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintSuccess(
				fmt.Sprintf("Generated key: %s", out))
		},
	}
	cmd.Flags().StringVar(&out, "out", "crusty.key", "file to write the key to")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}

func newKeyDeriveCommand(cfg *Config) *cobra.Command {
	var (
		keyFile   string
		recipient string
		out       string
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive a recipient key from a master key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := cfg.OpenSession(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.Close()

			master, err := loadKey(cmd, sess, keyFile)
			if err != nil {
				return err
			}
			defer master.Destroy()

			derived, err := symkey.DeriveForRecipient(master, recipient)
			if err != nil {
				return err
			}
			defer derived.Destroy()

			if err := writeKey(out, derived, force); err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintSuccess(
				fmt.Sprintf("Derived key for %s: %s", symkey.NormalizeEmail(recipient), out))
		},
	}
	cmd.Flags().StringVar(&keyFile, "key", "", "master key file")
	cmd.Flags().StringVar(&recipient, "recipient", "", "recipient email address")
	cmd.Flags().StringVar(&out, "out", "", "file to write the derived key to")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("recipient")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

// loadKey reads a key file and records the load in the operation log.
func loadKey(cmd *cobra.Command, sess *Session, path string) (*symkey.Key, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: a key file is required (--key)", crustyerr.ErrKey)
	}
	key, err := symkey.LoadFromFile(path)
	if err != nil {
		sess.Record(cmd.Context(), oplog.Failure(oplog.OpLoadKey, path, err))
		return nil, err
	}
	sess.Record(cmd.Context(), oplog.Success(oplog.OpLoadKey, path, "loaded key"))
	return key, nil
}

// writeKey saves key to path, refusing to replace an existing file unless
// force is set.
func writeKey(path string, key *symkey.Key, force bool) error {
	if !force {
		if _, err := os.Lstat(path); err == nil {
			return fmt.Errorf("%w: %s: %w", crustyerr.ErrDestinationExists, path, fs.ErrExist)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %w", crustyerr.ErrIO, err)
		}
	}
	return key.SaveToFile(path)
}
