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

// Package ui renders decorate results and diagnostics on the terminal.
package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/innovationmech/decorate/pkg/decorate"
	"github.com/innovationmech/decorate/pkg/rewrite"
)

// Style holds the colours used by Terminal.
type Style struct {
	Primary *color.Color
	Success *color.Color
	Warning *color.Color
	Error   *color.Color
	Info    *color.Color
	Muted   *color.Color
}

// DefaultStyle returns the default colour scheme.
func DefaultStyle() Style {
	return Style{
		Primary: color.New(color.FgCyan, color.Bold),
		Success: color.New(color.FgGreen, color.Bold),
		Warning: color.New(color.FgYellow, color.Bold),
		Error:   color.New(color.FgRed, color.Bold),
		Info:    color.New(color.FgBlue),
		Muted:   color.New(color.Faint),
	}
}

func (s Style) disable() {
	for _, c := range []*color.Color{s.Primary, s.Success, s.Warning, s.Error, s.Info, s.Muted} {
		c.DisableColor()
	}
}

// Terminal writes human readable output.
type Terminal struct {
	mu      sync.Mutex
	out     io.Writer
	style   Style
	verbose bool
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithOutput sets the output writer.
func WithOutput(w io.Writer) TerminalOption {
	return func(t *Terminal) {
		t.out = w
	}
}

// WithNoColor disables colour output.
func WithNoColor(noColor bool) TerminalOption {
	return func(t *Terminal) {
		if noColor {
			t.style.disable()
		}
	}
}

// WithVerbose enables per-function output.
func WithVerbose(verbose bool) TerminalOption {
	return func(t *Terminal) {
		t.verbose = verbose
	}
}

// NewTerminal creates a terminal writing to stdout.
func NewTerminal(opts ...TerminalOption) *Terminal {
	t := &Terminal{out: os.Stdout, style: DefaultStyle()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Verbose reports whether per-function output is enabled.
func (t *Terminal) Verbose() bool {
	return t.verbose
}

func (t *Terminal) printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

// ShowSuccess displays a success message.
func (t *Terminal) ShowSuccess(message string) {
	t.printf("%s %s\n", t.style.Success.Sprint("ok"), message)
}

// ShowInfo displays an informational message.
func (t *Terminal) ShowInfo(message string) {
	t.printf("%s\n", t.style.Info.Sprint(message))
}

// ShowWarning displays a warning message.
func (t *Terminal) ShowWarning(message string) {
	t.printf("%s %s\n", t.style.Warning.Sprint("warning:"), message)
}

// ShowError displays err. Decorate diagnostics are expanded one per line.
func (t *Terminal) ShowError(err error) {
	var list decorate.ErrorList
	if errors.As(err, &list) {
		for _, e := range list {
			t.ShowDiagnostic(e)
		}
		return
	}
	var de *decorate.Error
	if errors.As(err, &de) {
		t.ShowDiagnostic(de)
		return
	}
	t.printf("%s %s\n", t.style.Error.Sprint("error:"), err)
}

// ShowDiagnostic prints a diagnostic in the compiler style
// "file:line:col: error[CODE]: message" with an optional help line.
func (t *Terminal) ShowDiagnostic(e *decorate.Error) {
	var b strings.Builder
	if e.Position.IsValid() {
		b.WriteString(t.style.Primary.Sprint(e.Position.String()))
		b.WriteString(": ")
	}
	b.WriteString(t.style.Error.Sprintf("error[%s]:", e.Code))
	b.WriteString(" ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(string(e.Code))
	}
	b.WriteString("\n")
	if e.Details != "" {
		fmt.Fprintf(&b, "  %s %s\n", t.style.Muted.Sprint("help:"), e.Details)
	}
	t.printf("%s", b.String())
}

// ShowFunctions lists the decorated functions of one file.
func (t *Terminal) ShowFunctions(filename string, funcs []rewrite.Function) {
	for _, f := range funcs {
		line := fmt.Sprintf("%s:%d", filename, f.Position.Line)
		t.printf("  %s %s %s\n",
			t.style.Muted.Sprint(line),
			t.style.Primary.Sprint(f.Name),
			t.style.Muted.Sprintf("(%s)", plural(f.Layers, "layer")))
	}
}

// Summary holds the totals printed at the end of a run.
type Summary struct {
	Files     int
	Changed   int
	Functions int
	Failed    int
	// Rewrite reports changed files too.
	Rewrite bool
}

// ShowSummary prints the run totals.
func (t *Terminal) ShowSummary(s Summary, action string) {
	msg := fmt.Sprintf("%s %s in %s", plural(s.Functions, "function"), action, plural(s.Files, "file"))
	if s.Rewrite {
		msg += fmt.Sprintf(", %s changed", plural(s.Changed, "file"))
	}
	if s.Failed > 0 {
		t.printf("%s %s, %s\n", t.style.Error.Sprint("failed:"), msg, plural(s.Failed, "file")+" with errors")
		return
	}
	t.ShowSuccess(msg)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
