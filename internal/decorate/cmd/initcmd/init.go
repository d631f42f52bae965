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

// Package initcmd implements the decorate init command.
package initcmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/innovationmech/decorate/internal/decorate/config"
	"github.com/innovationmech/decorate/internal/decorate/ui"
)

// ErrExists is returned when the configuration file is already present
// and overwriting was not requested.
var ErrExists = errors.New("configuration file already exists")

// Options controls what Run writes.
type Options struct {
	// Dir is where the configuration file is created. Empty means the
	// current directory.
	Dir       string
	Force     bool
	Prefix    string
	Workers   int
	Exclude   []string
	FlatScan  bool
	LogLevel  string
	LogFormat string
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var opts Options

	cmd := &cobra.Command{
		Use:   "init [flags]",
		Short: "Write a starter .decorate.yaml",
		Long: `Create a .decorate.yaml holding the default settings, adjusted by the
given flags, in the working directory.`,
		Example: `  # Default settings
  decorate init

  # Custom directive name, replacing an existing file
  decorate init --prefix wrap:with --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			opts.Dir, _ = flags.GetString("dir")
			if opts.Prefix == "" {
				opts.Prefix, _ = flags.GetString("prefix")
			}
			if opts.LogLevel == "" {
				opts.LogLevel, _ = flags.GetString("log-level")
			}
			if opts.LogFormat == "" {
				opts.LogFormat, _ = flags.GetString("log-format")
			}
			noColor, _ := flags.GetBool("no-color")
			term := ui.NewTerminal(ui.WithOutput(cmd.ErrOrStderr()), ui.WithNoColor(noColor))

			path, err := Run(opts)
			if err != nil {
				return err
			}
			term.ShowSuccess(fmt.Sprintf("wrote %s", path))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVarP(&opts.Force, "force", "f", false, "Overwrite an existing configuration file")
	flags.IntVar(&opts.Workers, "workers", 0, "Concurrent files (0 uses the CPU count)")
	flags.StringSliceVar(&opts.Exclude, "exclude", nil, "Glob patterns of files to skip")
	flags.BoolVar(&opts.FlatScan, "no-recursive", false, "Do not descend into sub-directories")

	return cmd
}

// Run writes the configuration described by opts and returns the file path.
func Run(opts Options) (string, error) {
	dir := opts.Dir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}
	path := filepath.Join(dir, config.FileName)

	if !opts.Force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w: %s (use --force to overwrite)", ErrExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}

	cfg := config.Default()
	if opts.Prefix != "" {
		cfg.Prefix = opts.Prefix
	}
	cfg.Workers = opts.Workers
	cfg.Exclude = opts.Exclude
	cfg.Recursive = !opts.FlatScan
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.Log.Format = opts.LogFormat
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	if err := config.Write(path, cfg); err != nil {
		return "", err
	}
	return path, nil
}
