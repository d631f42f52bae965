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

// Package cmd assembles the decorate command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/innovationmech/decorate/internal/decorate/cmd/check"
	"github.com/innovationmech/decorate/internal/decorate/cmd/generate"
	"github.com/innovationmech/decorate/internal/decorate/cmd/initcmd"
	"github.com/innovationmech/decorate/internal/decorate/cmd/version"
	"github.com/innovationmech/decorate/internal/decorate/deps"
)

// NewRootDecorateCommand creates the decorate root command.
func NewRootDecorateCommand() *cobra.Command {
	cmds := &cobra.Command{
		Use:   "decorate",
		Short: "decorate rewrites Go functions annotated with decorator directives",
		Long: `decorate is a source transformer run ahead of go build. A function documented
with

  //decorate:with(decorators.Trace("fetch"), decorators.Retry(3))

is rewritten so that its body runs inside the listed decorators, the first
one outermost. Settings are read from .decorate.yaml and DECORATE_*
environment variables.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmds.PersistentFlags()
	flags.StringP("dir", "C", "", "Run as if started in this directory")
	flags.String("prefix", "", "Directive name (default \"decorate:with\")")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console, json)")
	flags.Bool("no-color", false, "Disable colored output")
	flags.BoolP("verbose", "v", false, "List every decorated function")

	cmds.AddCommand(generate.NewGenerateCommand(newContainer))
	cmds.AddCommand(check.NewCheckCommand(newContainer))
	cmds.AddCommand(initcmd.NewInitCommand())
	cmds.AddCommand(version.NewVersionCommand())
	return cmds
}

// newContainer builds the services from the flags of cmd.
func newContainer(cmd *cobra.Command) (*deps.Container, error) {
	flags := cmd.Flags()
	dir, _ := flags.GetString("dir")
	noColor, _ := flags.GetBool("no-color")
	verbose, _ := flags.GetBool("verbose")

	return deps.New(deps.Options{
		WorkDir: dir,
		Flags:   flags,
		Output:  cmd.ErrOrStderr(),
		NoColor: noColor,
		Verbose: verbose,
	})
}
