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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

// withDebounceClock replaces the debounce clock for one test.
func withDebounceClock(t *testing.T) *fakeClock {
	t.Helper()
	clock := newFakeClock()
	debounces.Lock()
	prev := debounces.now
	debounces.now = clock.Now
	debounces.Unlock()
	t.Cleanup(func() {
		debounces.Lock()
		debounces.now = prev
		debounces.Unlock()
		ClearDebounce()
	})
	return clock
}

func TestDebounce(t *testing.T) {
	clock := withDebounceClock(t)
	logs := withObservedLogger(t, zapcore.DebugLevel)

	runs := 0
	next := func() int {
		runs++
		return runs
	}

	out, ok := Debounce("save", 50*time.Millisecond, next)
	assert.True(t, ok)
	assert.Equal(t, 1, out)
	assert.Equal(t, 1, runs, "the first call runs before Debounce returns")

	clock.Advance(10 * time.Millisecond)
	out, ok = Debounce("save", 50*time.Millisecond, next)
	assert.False(t, ok)
	assert.Zero(t, out)
	assert.Equal(t, 1, runs, "calls inside the window are skipped")
	assert.Equal(t, 1, logs.FilterMessage("call debounced").Len())

	clock.Advance(50 * time.Millisecond)
	out, ok = Debounce("save", 50*time.Millisecond, next)
	assert.True(t, ok)
	assert.Equal(t, 2, out)
}

func TestDebounce_WindowStartsAtLastRun(t *testing.T) {
	clock := withDebounceClock(t)

	runs := 0
	next := func() int { runs++; return runs }

	for i := 0; i < 5; i++ {
		Debounce("burst", 30*time.Millisecond, next)
		clock.Advance(10 * time.Millisecond)
	}
	// runs at 0ms and 30ms; skipped calls do not extend the window
	assert.Equal(t, 2, runs)
}

func TestDebounce_SeparateNames(t *testing.T) {
	withDebounceClock(t)

	runs := 0
	inc := func() { runs++ }

	assert.True(t, DebounceFunc("a", time.Hour, inc))
	assert.True(t, DebounceFunc("b", time.Hour, inc))
	assert.False(t, DebounceFunc("a", time.Hour, inc))
	assert.Equal(t, 2, runs)
}

func TestDebounceOr(t *testing.T) {
	withDebounceClock(t)

	next := func() string { return "fresh" }
	assert.Equal(t, "fresh", DebounceOr("report", time.Minute, "cached", next))
	assert.Equal(t, "cached", DebounceOr("report", time.Minute, "cached", next))
}

func TestResetDebounce(t *testing.T) {
	withDebounceClock(t)

	runs := 0
	inc := func() { runs++ }

	DebounceFunc("reset", time.Hour, inc)
	DebounceFunc("other", time.Hour, inc)
	ResetDebounce("reset")
	assert.True(t, DebounceFunc("reset", time.Hour, inc))
	assert.False(t, DebounceFunc("other", time.Hour, inc))

	ClearDebounce()
	assert.True(t, DebounceFunc("reset", time.Hour, inc))
	assert.True(t, DebounceFunc("other", time.Hour, inc))
	assert.Equal(t, 5, runs)
}
