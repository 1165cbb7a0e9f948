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
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// progressSpinner shows a spinner with a percentage while a long operation
// runs. It stays silent in verbose or JSON mode.
type progressSpinner struct {
	s       *spinner.Spinner
	message string
	active  bool
}

func startSpinner(cmd *cobra.Command, cfg *Config, message string) *progressSpinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	s.Suffix = " " + message
	_ = s.Color("cyan") // continue without a colored spinner if it fails

	p := &progressSpinner{s: s, message: message}
	if !cfg.Verbose && OutputFormat(cfg.OutputFormat) == OutputFormatText {
		s.Start()
		p.active = true
	}
	return p
}

// Update shows fraction (0..1) next to the message.
func (p *progressSpinner) Update(fraction float64) {
	if !p.active {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" %s %3.0f%%", p.message, fraction*100)
	p.s.Unlock()
}

// UpdateItem shows batch progress for item index of total.
func (p *progressSpinner) UpdateItem(index, total int, fraction float64) {
	if !p.active {
		return
	}
	p.s.Lock()
	p.s.Suffix = fmt.Sprintf(" %s [%d/%d] %3.0f%%", p.message, index+1, total, fraction*100)
	p.s.Unlock()
}

func (p *progressSpinner) Stop() {
	if p.active {
		p.s.Stop()
		p.active = false
	}
}
