// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

// Package check implements the decorate check command.
package check

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/innovationmech/decorate/internal/decorate/deps"
	"github.com/innovationmech/decorate/internal/decorate/ui"
	"github.com/innovationmech/decorate/pkg/decorate"
	"github.com/innovationmech/decorate/pkg/rewrite"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// CodeParse reports a file that is not valid Go.
const CodeParse decorate.Code = "PARSE_ERROR"

// Diagnostic is a rejected directive in a report.
type Diagnostic struct {
	File    string        `json:"file" yaml:"file"`
	Line    int           `json:"line" yaml:"line"`
	Column  int           `json:"column" yaml:"column"`
	Code    decorate.Code `json:"code" yaml:"code"`
	Message string        `json:"message" yaml:"message"`
	Details string        `json:"details,omitempty" yaml:"details,omitempty"`
}

// FileReport is the check outcome for one file.
type FileReport struct {
	File        string             `json:"file" yaml:"file"`
	Functions   []rewrite.Function `json:"functions,omitempty" yaml:"functions,omitempty"`
	Diagnostics []Diagnostic       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// Report is the outcome of a check run.
type Report struct {
	Files     []FileReport `json:"files" yaml:"files"`
	Functions int          `json:"functions" yaml:"functions"`
	Errors    int          `json:"errors" yaml:"errors"`
}

// ErrDiagnostics is returned when at least one directive was rejected.
var ErrDiagnostics = errors.New("directives rejected")

// NewCheckCommand creates the check command.
func NewCheckCommand(newDeps func(cmd *cobra.Command) (*deps.Container, error)) *cobra.Command {
	format := FormatText

	cmd := &cobra.Command{
		Use:   "check [flags] [paths...]",
		Short: "Validate decorator directives without rewriting",
		Long: `Parse every decorator directive under the given paths and report the
functions that would be rewritten together with any rejected directive.`,
		Example: `  # Check the current module
  decorate check ./...

  # Machine readable report
  decorate check --format json ./internal`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case FormatText, FormatJSON, FormatYAML:
			default:
				return fmt.Errorf("unsupported format %q (use text, json or yaml)", format)
			}

			c, err := newDeps(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			report, err := Run(cmd.Context(), c, args)
			if err != nil {
				return err
			}
			if err := Print(cmd.OutOrStdout(), c.UI, report, format); err != nil {
				return err
			}
			if report.Errors > 0 {
				return fmt.Errorf("%w: %d", ErrDiagnostics, report.Errors)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", format, "Output format (text, json, yaml)")
	cmd.Flags().BoolP("recursive", "r", true, "Descend into sub-directories")
	cmd.Flags().StringSlice("exclude", nil, "Glob patterns of files to skip")

	return cmd
}

// Run checks every Go file under paths.
func Run(ctx context.Context, c *deps.Container, paths []string) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	files, err := c.Collect(paths)
	if err != nil {
		return nil, err
	}

	reports := make([]FileReport, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if c.Config.Workers > 0 {
		g.SetLimit(c.Config.Workers)
	}
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := c.FS.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", file, err)
			}
			reports[i] = checkFile(c.Processor, file, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{Files: make([]FileReport, 0, len(reports))}
	for _, r := range reports {
		if len(r.Functions) == 0 && len(r.Diagnostics) == 0 {
			continue
		}
		report.Functions += len(r.Functions)
		report.Errors += len(r.Diagnostics)
		report.Files = append(report.Files, r)
	}
	return report, nil
}

func checkFile(p *rewrite.Processor, file string, src []byte) FileReport {
	r := FileReport{File: file}
	funcs, err := p.Check(file, src)
	r.Functions = funcs
	if err == nil {
		return r
	}

	var list decorate.ErrorList
	if !errors.As(err, &list) {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			File:    file,
			Code:    CodeParse,
			Message: err.Error(),
		})
		return r
	}
	for _, e := range list {
		r.Diagnostics = append(r.Diagnostics, Diagnostic{
			File:    e.Position.Filename,
			Line:    e.Position.Line,
			Column:  e.Position.Column,
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		})
	}
	return r
}

// Print writes report in format. Text output goes through term.
func Print(w io.Writer, term *ui.Terminal, report *Report, format string) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	for _, f := range report.Files {
		if term.Verbose() {
			term.ShowFunctions(f.File, f.Functions)
		}
		for _, d := range f.Diagnostics {
			e := &decorate.Error{Code: d.Code, Message: d.Message, Details: d.Details}
			e.Position.Filename, e.Position.Line, e.Position.Column = d.File, d.Line, d.Column
			term.ShowDiagnostic(e)
		}
	}
	term.ShowSummary(ui.Summary{
		Files:     len(report.Files),
		Functions: report.Functions,
		Failed:    failedFiles(report),
	}, "checked")
	return nil
}

func failedFiles(r *Report) int {
	n := 0
	for _, f := range r.Files {
		if len(f.Diagnostics) > 0 {
			n++
		}
	}
	return n
}
