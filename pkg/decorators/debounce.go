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

package decorators

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/innovationmech/decorate/pkg/logger"
)

var debounces = struct {
	sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}{
	last: make(map[string]time.Time),
	now:  time.Now,
}

// admit records a call for name and reports whether it is outside the
// window of the previous admitted call.
func admit(name string, window time.Duration) bool {
	debounces.Lock()
	now := debounces.now()
	last, seen := debounces.last[name]
	if seen && now.Sub(last) < window {
		debounces.Unlock()
		logger.GetLogger().Debug("call debounced",
			zap.String("func", name),
			zap.Duration("remaining", window-now.Sub(last)))
		return false
	}
	debounces.last[name] = now
	debounces.Unlock()
	return true
}

// Debounce runs next unless a call with the same name ran less than
// window ago. The first call of a burst runs synchronously; later calls
// inside the window are skipped and return the zero value and false.
func Debounce[T any](name string, window time.Duration, next func() T) (T, bool) {
	if !admit(name, window) {
		var zero T
		return zero, false
	}
	return next(), true
}

// DebounceOr is Debounce returning fallback for skipped calls.
func DebounceOr[T any](name string, window time.Duration, fallback T, next func() T) T {
	if out, ok := Debounce(name, window, next); ok {
		return out
	}
	return fallback
}

// DebounceFunc debounces a function without results and reports whether
// it ran.
func DebounceFunc(name string, window time.Duration, next func()) bool {
	_, ran := Debounce(name, window, func() struct{} {
		next()
		return struct{}{}
	})
	return ran
}

// ResetDebounce forgets the last call for name, so the next call runs.
func ResetDebounce(name string) {
	debounces.Lock()
	delete(debounces.last, name)
	debounces.Unlock()
}

// ClearDebounce forgets every debounced name.
func ClearDebounce() {
	debounces.Lock()
	debounces.last = make(map[string]time.Time)
	debounces.Unlock()
}
