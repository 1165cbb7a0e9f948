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
	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-crusty/internal/config"
	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
)

func newConfigCommand(cfg *Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the crusty configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(cfg), newConfigShowCommand(cfg))
	return configCmd
}

func newConfigInitCommand(cfg *Config) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfg.ConfigFile
			if path == "" {
				path = config.DefaultPath()
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%w: %s: %w", crustyerr.ErrDestinationExists, path, fs.ErrExist)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return err
				}
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintSuccess(
				fmt.Sprintf("Wrote configuration: %s", path))
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	return cmd
}

func newConfigShowCommand(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := cfg.Load()
			if err != nil {
				return err
			}
			data, err := yaml.Marshal(loaded)
			if err != nil {
				return err
			}
			printer := NewPrinter(cfg.OutputFormat, cmd.OutOrStdout())
			if OutputFormat(cfg.OutputFormat) == OutputFormatJSON {
				var doc map[string]any
				if err := yaml.Unmarshal(data, &doc); err != nil {
					return err
				}
				return printer.printJSON(doc)
			}
			return printer.PrintRaw("config", string(data))
		},
	}
}
