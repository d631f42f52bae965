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

// Package filesystem provides the file access used by the decorate CLI.
package filesystem

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileSystem is the set of operations the CLI performs on source trees.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, content []byte, perm os.FileMode) error
	Exists(path string) bool
	// GoFiles lists the Go source files under root. Directories named
	// vendor or testdata and those starting with "." or "_" are skipped.
	GoFiles(root string, recursive bool) ([]string, error)
}

// OSFileSystem implements FileSystem on the operating system's filesystem.
// Relative paths are resolved against the base path.
type OSFileSystem struct {
	basePath string
}

// NewOSFileSystem creates a new OS-based filesystem implementation.
func NewOSFileSystem(basePath string) *OSFileSystem {
	return &OSFileSystem{basePath: basePath}
}

// ReadFile reads content from a file.
func (f *OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(f.resolvePath(path))
}

// WriteFile replaces a file atomically by writing a sibling temporary file
// and renaming it over the target.
func (f *OSFileSystem) WriteFile(path string, content []byte, perm os.FileMode) error {
	fullPath := f.resolvePath(path)
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set mode of %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), fullPath)
}

// Exists checks if a path exists.
func (f *OSFileSystem) Exists(path string) bool {
	_, err := os.Stat(f.resolvePath(path))
	return err == nil
}

// GoFiles implements FileSystem. A root naming a file returns that file.
func (f *OSFileSystem) GoFiles(root string, recursive bool) ([]string, error) {
	fullRoot := f.resolvePath(root)
	info, err := os.Stat(fullRoot)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{fullRoot}, nil
	}

	var files []string
	err = filepath.WalkDir(fullRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == fullRoot {
				return nil
			}
			if !recursive || skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isGoFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	return files, nil
}

func (f *OSFileSystem) resolvePath(path string) string {
	if filepath.IsAbs(path) || f.basePath == "" {
		return path
	}
	return filepath.Join(f.basePath, path)
}

func skipDir(name string) bool {
	return name == "vendor" || name == "testdata" ||
		strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

func isGoFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasPrefix(name, ".") && !strings.HasPrefix(name, "_")
}

// InMemoryFileSystem implements FileSystem in memory. Useful for testing.
type InMemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	modes map[string]os.FileMode
}

// NewInMemoryFileSystem creates a new in-memory filesystem implementation.
func NewInMemoryFileSystem() *InMemoryFileSystem {
	return &InMemoryFileSystem{
		files: make(map[string][]byte),
		modes: make(map[string]os.FileMode),
	}
}

// ReadFile reads content from a file in memory.
func (m *InMemoryFileSystem) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.files[normalizePath(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), content...), nil
}

// WriteFile writes content to a file in memory.
func (m *InMemoryFileSystem) WriteFile(path string, content []byte, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p := normalizePath(path)
	m.files[p] = append([]byte(nil), content...)
	m.modes[p] = perm
	return nil
}

// Exists checks if a file or a directory containing files exists.
func (m *InMemoryFileSystem) Exists(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p := normalizePath(path)
	if _, ok := m.files[p]; ok {
		return true
	}
	for name := range m.files {
		if strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}

// GoFiles implements FileSystem. The result is sorted.
func (m *InMemoryFileSystem) GoFiles(root string, recursive bool) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r := normalizePath(root)
	if _, ok := m.files[r]; ok {
		return []string{r}, nil
	}

	var files []string
	for name := range m.files {
		rel := strings.TrimPrefix(name, r+"/")
		if r == "." {
			rel = name
		} else if rel == name {
			continue
		}
		dirs := strings.Split(rel, "/")
		base := dirs[len(dirs)-1]
		dirs = dirs[:len(dirs)-1]
		if !recursive && len(dirs) > 0 {
			continue
		}
		skipped := false
		for _, d := range dirs {
			if skipDir(d) {
				skipped = true
				break
			}
		}
		if !skipped && isGoFile(base) {
			files = append(files, name)
		}
	}
	if len(files) == 0 && !m.existsLocked(r) {
		return nil, &fs.PathError{Op: "stat", Path: root, Err: fs.ErrNotExist}
	}
	sort.Strings(files)
	return files, nil
}

func (m *InMemoryFileSystem) existsLocked(p string) bool {
	if p == "." {
		return true
	}
	for name := range m.files {
		if strings.HasPrefix(name, p+"/") {
			return true
		}
	}
	return false
}

// Mode returns the permission bits a file was written with.
func (m *InMemoryFileSystem) Mode(path string) os.FileMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modes[normalizePath(path)]
}

func normalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}
