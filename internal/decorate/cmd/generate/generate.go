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

// Package generate implements the decorate generate command.
package generate

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/innovationmech/decorate/internal/decorate/deps"
	"github.com/innovationmech/decorate/internal/decorate/ui"
	"github.com/innovationmech/decorate/pkg/rewrite"
)

// ErrRejected is returned when directives in at least one file were
// rejected.
var ErrRejected = errors.New("directives rejected")

// Options holds the generate flags that are not configuration keys.
type Options struct {
	// Write replaces each input file with its rewritten form.
	Write bool
	// Output writes the result of a single input file to this path.
	Output string
	// Watch keeps running and regenerates files as they change.
	Watch bool
	// Deps builds the service container; tests replace it.
	Deps func(cmd *cobra.Command) (*deps.Container, error)
}

// Command runs one generate invocation.
type Command struct {
	opts   *Options
	c      *deps.Container
	stdout io.Writer
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(newDeps func(cmd *cobra.Command) (*deps.Container, error)) *cobra.Command {
	opts := &Options{Deps: newDeps}

	cmd := &cobra.Command{
		Use:   "generate [flags] [paths...]",
		Short: "Rewrite functions annotated with decorator directives",
		Long: `Rewrite every function carrying a //decorate:with(...) directive into a
function that runs its original body through the listed decorators.

Without -w or -o the rewritten source is printed to standard output.
Directories are expanded to the Go files they contain.`,
		Example: `  # Rewrite the file go generate is running for
  //go:generate decorate generate -w $GOFILE

  # Rewrite a package tree in place
  decorate generate -w -r ./...

  # Print the result for one file
  decorate generate service.go

  # Regenerate on every change
  decorate generate -w --watch ./internal`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Output != "" && opts.Write {
				return fmt.Errorf("--write and --output are mutually exclusive")
			}
			if opts.Watch && !opts.Write {
				return fmt.Errorf("--watch requires --write")
			}

			c, err := opts.Deps(cmd)
			if err != nil {
				return err
			}
			defer c.Close()

			g := &Command{opts: opts, c: c, stdout: cmd.OutOrStdout()}
			return g.Execute(cmd.Context(), args)
		},
	}

	cmd.Flags().BoolVarP(&opts.Write, "write", "w", false, "Write result to the source file instead of stdout")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Write result of a single input file to this path")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Watch inputs and regenerate on change (requires --write)")
	cmd.Flags().BoolP("recursive", "r", true, "Descend into sub-directories")
	cmd.Flags().Bool("format-only", false, "Format output without fixing imports")
	cmd.Flags().Int("workers", 0, "Files processed concurrently (0 uses the CPU count)")
	cmd.Flags().StringSlice("exclude", nil, "Glob patterns of files to skip")

	return cmd
}

// Execute processes paths once and, with --watch, keeps regenerating
// until ctx is cancelled.
func (g *Command) Execute(ctx context.Context, paths []string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	files, err := g.c.Collect(paths)
	if err != nil {
		return err
	}
	if g.opts.Output != "" && len(files) != 1 {
		return fmt.Errorf("--output needs exactly one input file, got %d", len(files))
	}
	if len(files) == 0 {
		g.c.UI.ShowWarning("no Go files found")
		return nil
	}

	summary, err := g.run(ctx, files)
	if err != nil {
		return err
	}
	if !g.opts.Watch {
		g.c.UI.ShowSummary(summary, "decorated")
		if summary.Failed > 0 {
			return fmt.Errorf("%w in %d of %d files", ErrRejected, summary.Failed, summary.Files)
		}
		return nil
	}

	w, err := newWatcher(g.c.Logger, func(ctx context.Context, changed []string) error {
		s, err := g.run(ctx, changed)
		if err == nil {
			g.c.UI.ShowSummary(s, "decorated")
		}
		return err
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(files); err != nil {
		return err
	}
	g.c.UI.ShowInfo(fmt.Sprintf("watching %d files, press Ctrl+C to stop", len(files)))
	return w.Run(ctx)
}

func (g *Command) run(ctx context.Context, files []string) (ui.Summary, error) {
	summary := ui.Summary{Files: len(files), Rewrite: g.opts.Write || g.opts.Output != ""}

	results, err := g.c.Processor.Files(ctx, files)
	if err != nil {
		return summary, err
	}
	for _, r := range results {
		if r.Err != nil {
			summary.Failed++
			g.c.UI.ShowError(r.Err)
			continue
		}
		summary.Functions += len(r.Functions)
		if g.c.UI.Verbose() {
			g.c.UI.ShowFunctions(r.Filename, r.Functions)
		}
		if err := g.emit(r); err != nil {
			return summary, err
		}
		if r.Changed {
			summary.Changed++
		}
	}
	return summary, nil
}

func (g *Command) emit(r *rewrite.Result) error {
	switch {
	case g.opts.Write:
		if !r.Changed {
			return nil
		}
		if err := g.c.FS.WriteFile(r.Filename, r.Output, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", r.Filename, err)
		}
		g.c.Logger.Debug("wrote file", zap.String("file", r.Filename))
	case g.opts.Output != "":
		if err := g.c.FS.WriteFile(g.opts.Output, r.Output, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", g.opts.Output, err)
		}
	default:
		if _, err := g.stdout.Write(r.Output); err != nil {
			return err
		}
	}
	return nil
}
