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
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/jeremyhahn/go-crusty/pkg/oplog"
)

func newHistoryCommand(cfg *Config) *cobra.Command {
	var (
		limit    int
		failures bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded operations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := cfg.Load()
			if err != nil {
				return err
			}
			entries, err := oplog.ReadFile(loaded.OperationLog)
			if errors.Is(err, fs.ErrNotExist) {
				entries, err = nil, nil
			}
			if err != nil {
				return err
			}
			if failures {
				kept := entries[:0]
				for _, e := range entries {
					if !e.Success {
						kept = append(kept, e)
					}
				}
				entries = kept
			}
			if limit > 0 && len(entries) > limit {
				entries = entries[len(entries)-limit:]
			}
			return NewPrinter(cfg.OutputFormat, cmd.OutOrStdout()).PrintHistory(entries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "show at most this many recent entries (0 for all)")
	cmd.Flags().BoolVar(&failures, "failures", false, "show failed operations only")
	return cmd
}
