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

	"github.com/spf13/cobra"
)

// NewRootCommand builds the crusty command tree. Each call returns an
// independent tree with its own flag state.
func NewRootCommand() *cobra.Command {
	cfg := NewConfig()

	rootCmd := &cobra.Command{
		Use:   "crusty",
		Short: "crusty - file encryption with split-key recovery",
		Long: `crusty encrypts files at rest with AES-256-GCM, derives per-recipient
keys from a master key and splits keys into Shamir shares so that a
quorum of independently stored shares is needed to recover them.

Share renderings:
  - text:     checksummed Base32, grouped with hyphens
  - mnemonic: word phrase
  - binary:   base64 of the raw share
  - qr:       PNG image`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfg.ConfigFile, "config", "",
		"config file (default is $HOME/.crusty/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&cfg.OutputFormat, "output", "o", string(OutputFormatText),
		"output format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&cfg.Verbose, "verbose", "v", false,
		"verbose output")

	rootCmd.AddCommand(
		newVersionCommand(cfg),
		newKeyCommand(cfg),
		newEncryptCommand(cfg),
		newDecryptCommand(cfg),
		newSplitCommand(cfg),
		newCombineCommand(cfg),
		newProtectCommand(cfg),
		newRecoverCommand(cfg),
		newTransferCommand(cfg),
		newConfigCommand(cfg),
		newHistoryCommand(cfg),
	)
	return rootCmd
}

// Execute runs the root command and prints any error to stderr.
func Execute() error {
	rootCmd := NewRootCommand()
	cmd, err := rootCmd.ExecuteC()
	if err != nil {
		format := string(OutputFormatText)
		if cmd != nil {
			format, _ = cmd.Flags().GetString("output")
		}
		printer := NewPrinter(format, os.Stderr)
		_ = printer.PrintError(err) // Error printing to stderr is best-effort
	}
	return err
}

// printVerbose prints a message if verbose mode is enabled
func printVerbose(cmd *cobra.Command, cfg *Config, format string, args ...any) {
	if cfg.Verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "[VERBOSE] "+format+"\n", args...)
	}
}
