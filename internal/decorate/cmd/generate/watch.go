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

package generate

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceDelay collapses the burst of events editors emit on save.
const debounceDelay = 200 * time.Millisecond

// watcher reruns a callback for Go files changed on disk.
type watcher struct {
	fsw   *fsnotify.Watcher
	log   *zap.Logger
	run   func(ctx context.Context, changed []string) error
	delay time.Duration

	mu      sync.Mutex
	files   map[string]bool
	pending map[string]bool
}

func newWatcher(log *zap.Logger, run func(ctx context.Context, changed []string) error) (*watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &watcher{
		fsw:     fsw,
		log:     log,
		run:     run,
		delay:   debounceDelay,
		files:   make(map[string]bool),
		pending: make(map[string]bool),
	}, nil
}

// Add watches files through their parent directories, since editors
// commonly replace files on save.
func (w *watcher) Add(files []string) error {
	dirs := make(map[string]bool)
	w.mu.Lock()
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			w.mu.Unlock()
			return err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	w.mu.Unlock()

	for dir := range dirs {
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	return nil
}

// Run dispatches events until ctx is cancelled.
func (w *watcher) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.track(event) {
				timer.Reset(w.delay)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			changed := w.drain()
			if len(changed) == 0 {
				continue
			}
			w.log.Info("regenerating", zap.Strings("files", changed))
			if err := w.run(ctx, changed); err != nil {
				w.log.Error("regeneration failed", zap.Error(err))
			}
		}
	}
}

func (w *watcher) track(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	name, err := filepath.Abs(event.Name)
	if err != nil || !strings.HasSuffix(name, ".go") {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.files[name] {
		return false
	}
	w.pending[name] = true
	return true
}

func (w *watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := make([]string, 0, len(w.pending))
	for f := range w.pending {
		changed = append(changed, f)
	}
	w.pending = make(map[string]bool)
	sort.Strings(changed)
	return changed
}

// Close stops watching.
func (w *watcher) Close() error {
	return w.fsw.Close()
}
