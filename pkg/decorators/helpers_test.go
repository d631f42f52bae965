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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/innovationmech/decorate/pkg/logger"
)

var errBoom = errors.New("boom")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// withMetrics installs collectors on a private registry for one test.
func withMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)
	prev := metrics.Load()
	SetMetrics(m)
	t.Cleanup(func() { metrics.Store(prev) })
	return m, reg
}

// withObservedLogger routes the global logger into an observer.
func withObservedLogger(t *testing.T, level zapcore.Level) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(level)
	logger.SetLogger(zap.New(core))
	t.Cleanup(logger.ResetLogger)
	return logs
}

type MockReporter struct {
	mock.Mock
}

func (m *MockReporter) CaptureError(name string, err error) {
	m.Called(name, err)
}

func (m *MockReporter) CapturePanic(name string, value interface{}) {
	m.Called(name, value)
}

func withReporter(t *testing.T, r Reporter) {
	t.Helper()
	prev := currentReporter()
	SetReporter(r)
	t.Cleanup(func() { SetReporter(prev) })
}

// counter returns a continuation that fails the first failures calls.
func counter(failures int, value string) (func() (string, error), *int) {
	calls := 0
	return func() (string, error) {
		calls++
		if calls <= failures {
			return "", errBoom
		}
		return value, nil
	}, &calls
}
