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

// Package deps wires the services shared by the decorate commands.
package deps

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/innovationmech/decorate/internal/decorate/config"
	"github.com/innovationmech/decorate/internal/decorate/filesystem"
	"github.com/innovationmech/decorate/internal/decorate/ui"
	"github.com/innovationmech/decorate/pkg/logger"
	"github.com/innovationmech/decorate/pkg/rewrite"
)

// Options controls how a Container is built.
type Options struct {
	// WorkDir is where .decorate.yaml is looked up and relative paths
	// are resolved. Empty means the current directory.
	WorkDir string
	// Flags are bound over configuration keys when set.
	Flags *pflag.FlagSet
	// Output receives terminal messages.
	Output  io.Writer
	NoColor bool
	Verbose bool
	// FileSystem overrides the OS filesystem, mainly for tests.
	FileSystem filesystem.FileSystem
	// Logger overrides the logger built from configuration.
	Logger *zap.Logger
}

// Container holds the services used by a command run.
type Container struct {
	Config     *config.Config
	ConfigFile string
	WorkDir    string
	FS         filesystem.FileSystem
	UI         *ui.Terminal
	Logger     *zap.Logger
	Processor  *rewrite.Processor
}

// New loads configuration and builds the services.
func New(opts Options) (*Container, error) {
	workDir := opts.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		workDir = wd
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	loader := config.NewLoader(workDir)
	if opts.Flags != nil {
		if err := loader.BindFlags(opts.Flags); err != nil {
			return nil, err
		}
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		if log, err = logger.New(cfg.Log); err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	logger.SetLogger(log)

	fs := opts.FileSystem
	if fs == nil {
		fs = filesystem.NewOSFileSystem(workDir)
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	c := &Container{
		Config:     cfg,
		ConfigFile: loader.ConfigFileUsed(),
		WorkDir:    workDir,
		FS:         fs,
		UI:         ui.NewTerminal(ui.WithOutput(output), ui.WithNoColor(opts.NoColor), ui.WithVerbose(opts.Verbose)),
		Logger:     log,
		Processor: rewrite.NewProcessor(
			rewrite.WithPrefix(cfg.Prefix),
			rewrite.WithFormatOnly(cfg.FormatOnly),
			rewrite.WithWorkers(cfg.Workers),
			rewrite.WithFileSystem(fs),
			rewrite.WithLogger(logger.NewSugar(log)),
		),
	}
	if c.ConfigFile != "" {
		log.Debug("loaded configuration", zap.String("file", c.ConfigFile))
	}
	return c, nil
}

// Collect expands paths into the Go files to process. Directories are
// walked (recursively when configured or when the path ends in "/..."), excluded files are dropped and the
// result is sorted without duplicates. Paths naming files are kept even
// when they match an exclude pattern.
func (c *Container) Collect(paths []string) ([]string, error) {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	seen := make(map[string]bool)
	var files []string
	for _, p := range paths {
		recursive := c.Config.Recursive
		if strings.HasSuffix(p, "...") {
			p = strings.TrimSuffix(strings.TrimSuffix(p, "..."), "/")
			if p == "" {
				p = "."
			}
			recursive = true
		}
		found, err := c.FS.GoFiles(p, recursive)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", p, err)
		}
		explicit := len(found) == 1 && filepath.Clean(found[0]) == filepath.Clean(c.resolve(p))
		for _, f := range found {
			if seen[f] || (!explicit && c.Config.Excluded(c.rel(f))) {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files, nil
}

func (c *Container) resolve(path string) string {
	if _, ok := c.FS.(*filesystem.OSFileSystem); ok && !filepath.IsAbs(path) {
		return filepath.Join(c.WorkDir, path)
	}
	return path
}

func (c *Container) rel(path string) string {
	if filepath.IsAbs(path) {
		if r, err := filepath.Rel(c.WorkDir, path); err == nil {
			return r
		}
	}
	return path
}

// Close flushes the logger.
func (c *Container) Close() {
	_ = c.Logger.Sync()
}
