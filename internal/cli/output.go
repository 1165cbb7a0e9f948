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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	crustyerr "github.com/jeremyhahn/go-crusty/pkg/errors"
	"github.com/jeremyhahn/go-crusty/pkg/filecodec"
	"github.com/jeremyhahn/go-crusty/pkg/oplog"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// ShareOutput describes one written share.
type ShareOutput struct {
	Index int    `json:"index"`
	Path  string `json:"path,omitempty"`
	Text  string `json:"text,omitempty"`
}

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

func successMark() string { return color.GreenString("✓") }
func failureMark() string { return color.RedString("✗") }
func hintMark() string    { return color.CyanString("→") }

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"status":  "success",
			"message": message,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "%s %s\n", successMark(), message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message. Wrong-key failures get the
// user-facing hint in addition to the error chain.
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		out := map[string]any{
			"status": "error",
			"error":  err.Error(),
		}
		if crustyerr.IsWrongKey(err) {
			out["hint"] = crustyerr.WrongKeyMessage
		}
		return p.printJSON(out)
	default:
		fmt.Fprintf(p.writer, "%s Error: %v\n", failureMark(), err)
		if crustyerr.IsWrongKey(err) {
			fmt.Fprintf(p.writer, "%s %s\n", hintMark(), crustyerr.WrongKeyMessage)
		}
		return nil
	}
}

// PrintResults prints one line per batch item.
func (p *Printer) PrintResults(results []filecodec.Result) error {
	switch p.format {
	case OutputFormatJSON:
		items := make([]map[string]any, len(results))
		for i, r := range results {
			item := map[string]any{
				"source":      r.Source,
				"destination": r.Destination,
				"success":     r.OK(),
				"message":     r.Message(),
			}
			if r.Email != "" {
				item["email"] = r.Email
			}
			items[i] = item
		}
		return p.printJSON(map[string]any{
			"results": items,
			"failed":  len(filecodec.Failed(results)),
		})
	case OutputFormatText:
		for _, r := range results {
			mark := successMark()
			if !r.OK() {
				mark = failureMark()
			}
			fmt.Fprintf(p.writer, "%s %s\n", mark, r.Message())
			if r.OK() && r.Email != "" {
				fmt.Fprintf(p.writer, "  %s recipient: %s\n", hintMark(), r.Email)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintShares prints the shares written by split, protect and transfer.
func (p *Printer) PrintShares(title string, threshold int, shares []ShareOutput) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"message":   title,
			"threshold": threshold,
			"shares":    shares,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "%s %s (threshold %d of %d)\n", successMark(), title, threshold, len(shares))
		for _, s := range shares {
			switch {
			case s.Path != "" && s.Text != "":
				fmt.Fprintf(p.writer, "  share %d: %s\n    %s\n", s.Index, s.Path, s.Text)
			case s.Path != "":
				fmt.Fprintf(p.writer, "  share %d: %s\n", s.Index, s.Path)
			default:
				fmt.Fprintf(p.writer, "  share %d: %s\n", s.Index, s.Text)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintHistory prints operation log entries oldest first.
func (p *Printer) PrintHistory(entries []oplog.Entry) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"entries": entries,
		})
	case OutputFormatText:
		if len(entries) == 0 {
			fmt.Fprintln(p.writer, "No operations recorded")
			return nil
		}
		fmt.Fprintf(p.writer, "%-25s %-18s %-7s %s\n", "TIME", "OPERATION", "STATUS", "FILE")
		fmt.Fprintln(p.writer, strings.Repeat("-", 72))
		for _, e := range entries {
			status := "ok"
			if !e.Success {
				status = "failed"
			}
			fmt.Fprintf(p.writer, "%-25s %-18s %-7s %s\n",
				e.Timestamp.Format("2006-01-02T15:04:05Z07:00"), e.Operation, status, e.FilePath)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintFields prints a flat set of named values in the given order.
func (p *Printer) PrintFields(keys []string, values map[string]any) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(values)
	case OutputFormatText:
		for _, k := range keys {
			fmt.Fprintf(p.writer, "%s: %v\n", k, values[k])
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintRaw writes text verbatim in text mode and as {"<field>": text} in JSON.
func (p *Printer) PrintRaw(field, text string) error {
	if p.format == OutputFormatJSON {
		return p.printJSON(map[string]any{field: text})
	}
	_, err := io.WriteString(p.writer, text)
	return err
}

func (p *Printer) printJSON(v any) error {
	enc := json.NewEncoder(p.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
