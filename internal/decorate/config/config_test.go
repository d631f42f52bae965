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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	loader := NewLoader(t.TempDir())

	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Empty(t, loader.ConfigFileUsed())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	content := `prefix: wrap:with
workers: 2
format_only: true
exclude:
  - "*_gen.go"
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	loader := NewLoader(dir)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "wrap:with", cfg.Prefix)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.FormatOnly)
	assert.True(t, cfg.Recursive)
	assert.Equal(t, []string{"*_gen.go"}, cfg.Exclude)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, filepath.Join(dir, FileName), loader.ConfigFileUsed())
}

func TestLoad_Env(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("workers: 2\n"), 0644))
	t.Setenv("DECORATE_WORKERS", "6")
	t.Setenv("DECORATE_LOG_LEVEL", "error")

	cfg, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestLoad_FlagsOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("workers: 2\nrecursive: true\n"), 0644))
	t.Setenv("DECORATE_WORKERS", "6")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("workers", 0, "")
	flags.BoolP("recursive", "r", false, "")
	flags.String("prefix", "", "")
	require.NoError(t, flags.Parse([]string{"--workers", "8"}))

	loader := NewLoader(dir)
	require.NoError(t, loader.BindFlags(flags))
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.Recursive, "unset flags keep file values")
	assert.Equal(t, Default().Prefix, cfg.Prefix, "unset flags keep defaults")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "bad yaml", content: "workers: [", wantErr: "failed to read"},
		{name: "negative workers", content: "workers: -1", wantErr: "Config.Workers"},
		{name: "prefix with slash", content: "prefix: //decorate", wantErr: "Config.Prefix"},
		{name: "prefix with space", content: "prefix: \"a b\"", wantErr: "whitespace"},
		{name: "bad log level", content: "log:\n  level: loud", wantErr: "Config.Log.Level"},
		{name: "bad exclude pattern", content: "exclude: [\"[\"]", wantErr: "exclude pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(tt.content), 0644))

			_, err := NewLoader(dir).Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Excluded(t *testing.T) {
	cfg := Default()
	cfg.Exclude = []string{"*_gen.go", "internal/legacy/*"}

	assert.True(t, cfg.Excluded("pkg/api/api_gen.go"))
	assert.True(t, cfg.Excluded("internal/legacy/old.go"))
	assert.False(t, cfg.Excluded("internal/legacy/sub/old.go"))
	assert.False(t, cfg.Excluded("pkg/api/api.go"))
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Workers = 3
	cfg.Exclude = []string{"*_gen.go"}

	require.NoError(t, Write(filepath.Join(dir, FileName), cfg))

	loaded, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
