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

package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

var tree = map[string]string{
	"main.go":              "package main",
	"main_test.go":         "package main",
	"README.md":            "# readme",
	"_skip.go":             "package main",
	"svc/svc.go":           "package svc",
	"svc/inner/inner.go":   "package inner",
	"vendor/dep/dep.go":    "package dep",
	"testdata/golden.go":   "package golden",
	".git/hooks/x.go":      "package hooks",
	"_examples/example.go": "package example",
}

func TestOSFileSystem_GoFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, tree)
	fs := NewOSFileSystem(root)

	files, err := fs.GoFiles(".", true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "main_test.go"),
		filepath.Join(root, "svc/inner/inner.go"),
		filepath.Join(root, "svc/svc.go"),
	}, files)

	files, err = fs.GoFiles(".", false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "main.go"),
		filepath.Join(root, "main_test.go"),
	}, files)

	files, err = fs.GoFiles("svc/svc.go", false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "svc/svc.go")}, files)

	_, err = fs.GoFiles("missing", true)
	assert.True(t, os.IsNotExist(err))
}

func TestOSFileSystem_ReadWrite(t *testing.T) {
	root := t.TempDir()
	fs := NewOSFileSystem(root)

	require.NoError(t, fs.WriteFile("pkg/a.go", []byte("package pkg\n"), 0644))
	assert.True(t, fs.Exists("pkg/a.go"))
	assert.False(t, fs.Exists("pkg/b.go"))

	content, err := fs.ReadFile(filepath.Join(root, "pkg/a.go"))
	require.NoError(t, err)
	assert.Equal(t, "package pkg\n", string(content))

	require.NoError(t, fs.WriteFile("pkg/a.go", []byte("package other\n"), 0600))
	content, err = fs.ReadFile("pkg/a.go")
	require.NoError(t, err)
	assert.Equal(t, "package other\n", string(content))

	info, err := os.Stat(filepath.Join(root, "pkg/a.go"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	entries, err := os.ReadDir(filepath.Join(root, "pkg"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestInMemoryFileSystem(t *testing.T) {
	fs := NewInMemoryFileSystem()
	for name, content := range tree {
		require.NoError(t, fs.WriteFile(name, []byte(content), 0644))
	}

	files, err := fs.GoFiles(".", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "main_test.go", "svc/inner/inner.go", "svc/svc.go"}, files)

	files, err = fs.GoFiles("svc", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"svc/svc.go"}, files)

	files, err = fs.GoFiles("./svc/svc.go", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"svc/svc.go"}, files)

	_, err = fs.GoFiles("missing", true)
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.True(t, fs.Exists("svc"))
	assert.False(t, fs.Exists("sv"))

	_, err = fs.ReadFile("nope.go")
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, fs.WriteFile("main.go", []byte("package x"), 0600))
	content, err := fs.ReadFile("main.go")
	require.NoError(t, err)
	assert.Equal(t, "package x", string(content))
	assert.Equal(t, os.FileMode(0600), fs.Mode("main.go"))
}
