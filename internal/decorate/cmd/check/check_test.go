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

package check

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/innovationmech/decorate/internal/decorate/deps"
	"github.com/innovationmech/decorate/internal/decorate/filesystem"
	"github.com/innovationmech/decorate/pkg/decorate"
)

var sources = map[string]string{
	"svc/good.go": `package svc

//decorate:with(trace, retry(3))
func Good(x int) int { return x }
`,
	"svc/dup.go": `package svc

//decorate:with(trace, pre = a(), pre = b())
func Dup() {}
`,
	"svc/plain.go": `package svc

func Plain() {}
`,
	"svc/syntax.go": `package svc

func {
`,
}

func newContainer(t *testing.T, files map[string]string, messages *bytes.Buffer, flags *cobra.Command) *deps.Container {
	t.Helper()
	fs := filesystem.NewInMemoryFileSystem()
	for name, content := range files {
		require.NoError(t, fs.WriteFile(name, []byte(content), 0644))
	}
	opts := deps.Options{
		WorkDir:    t.TempDir(),
		Output:     messages,
		NoColor:    true,
		FileSystem: fs,
		Logger:     zap.NewNop(),
	}
	if flags != nil {
		opts.Flags = flags.Flags()
	}
	c, err := deps.New(opts)
	require.NoError(t, err)
	return c
}

func TestRun(t *testing.T) {
	c := newContainer(t, sources, &bytes.Buffer{}, nil)

	report, err := Run(context.Background(), c, []string{"svc"})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Functions)
	assert.Equal(t, 2, report.Errors)
	require.Len(t, report.Files, 3, "files without directives are omitted")

	byFile := make(map[string]FileReport)
	for _, f := range report.Files {
		byFile[f.File] = f
	}

	good := byFile["svc/good.go"]
	require.Len(t, good.Functions, 1)
	assert.Equal(t, "Good", good.Functions[0].Name)
	assert.Equal(t, 2, good.Functions[0].Layers)
	assert.Empty(t, good.Diagnostics)

	dup := byFile["svc/dup.go"]
	require.Len(t, dup.Diagnostics, 1)
	assert.Equal(t, decorate.CodeDuplicateOption, dup.Diagnostics[0].Code)
	assert.Equal(t, 3, dup.Diagnostics[0].Line)
	assert.Contains(t, dup.Diagnostics[0].Message, "pre")

	syntax := byFile["svc/syntax.go"]
	require.Len(t, syntax.Diagnostics, 1)
	assert.Equal(t, CodeParse, syntax.Diagnostics[0].Code)
}

func TestPrint_Formats(t *testing.T) {
	c := newContainer(t, sources, &bytes.Buffer{}, nil)
	report, err := Run(context.Background(), c, []string{"svc/good.go"})
	require.NoError(t, err)

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, c.UI, report, FormatJSON))

		var decoded Report
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, 1, decoded.Functions)
		require.Len(t, decoded.Files, 1)
		assert.Equal(t, "trace, retry(3)", decoded.Files[0].Functions[0].Directive)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Print(&buf, c.UI, report, FormatYAML))

		var decoded map[string]interface{}
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, 1, decoded["functions"])
		assert.Equal(t, 0, decoded["errors"])
	})
}

func TestCheckCommand(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		args     []string
		wantErr  error
		contains []string
	}{
		{
			name:     "clean",
			files:    map[string]string{"svc/good.go": sources["svc/good.go"]},
			args:     []string{"svc"},
			contains: []string{"ok 1 function checked in 1 file"},
		},
		{
			name:    "rejected",
			files:   sources,
			args:    []string{"svc"},
			wantErr: ErrDiagnostics,
			contains: []string{
				"svc/dup.go:3:",
				"error[DUPLICATE_OPTION]",
				"error[PARSE_ERROR]",
				"failed: 1 function checked in 3 files, 2 files with errors",
			},
		},
		{
			name:     "excluded",
			files:    sources,
			args:     []string{"--exclude", "dup.go", "--exclude", "syntax.go", "svc"},
			contains: []string{"ok 1 function checked in 1 file"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			messages := &bytes.Buffer{}
			cmd := NewCheckCommand(func(cmd *cobra.Command) (*deps.Container, error) {
				return newContainer(t, tt.files, messages, cmd), nil
			})
			cmd.SetArgs(tt.args)
			cmd.SetOut(messages)
			cmd.SilenceUsage = true
			cmd.SilenceErrors = true

			err := cmd.Execute()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			for _, s := range tt.contains {
				assert.Contains(t, messages.String(), s)
			}
		})
	}
}

func TestCheckCommand_UnsupportedFormat(t *testing.T) {
	cmd := NewCheckCommand(func(cmd *cobra.Command) (*deps.Container, error) {
		t.Fatal("container must not be built")
		return nil, nil
	})
	cmd.SetArgs([]string{"--format", "xml"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()
	assert.EqualError(t, err, `unsupported format "xml" (use text, json or yaml)`)
}
