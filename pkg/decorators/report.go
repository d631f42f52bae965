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
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/innovationmech/decorate/pkg/logger"
)

// Reporter forwards errors and panics to an error tracker.
type Reporter interface {
	CaptureError(name string, err error)
	CapturePanic(name string, value interface{})
}

// SentryReporter reports through a Sentry hub. A nil Hub uses the current
// hub, which drops events until sentry.Init has been called.
type SentryReporter struct {
	Hub *sentry.Hub
}

func (r SentryReporter) hub() *sentry.Hub {
	if r.Hub != nil {
		return r.Hub
	}
	return sentry.CurrentHub()
}

// CaptureError implements Reporter.
func (r SentryReporter) CaptureError(name string, err error) {
	r.hub().WithScope(func(scope *sentry.Scope) {
		scope.SetTag("function", name)
		r.hub().CaptureException(err)
	})
}

// CapturePanic implements Reporter.
func (r SentryReporter) CapturePanic(name string, value interface{}) {
	r.hub().WithScope(func(scope *sentry.Scope) {
		scope.SetTag("function", name)
		scope.SetLevel(sentry.LevelFatal)
		r.hub().Recover(value)
	})
}

type reporterBox struct{ Reporter }

var reporter atomic.Pointer[reporterBox]

func init() {
	SetReporter(SentryReporter{})
}

// SetReporter replaces the reporter used by LogErrors and Recover. Nil
// disables reporting.
func SetReporter(r Reporter) {
	reporter.Store(&reporterBox{r})
}

func currentReporter() Reporter {
	return reporter.Load().Reporter
}

// LogErrors logs a returned error at error level and forwards it to the
// reporter. The result is passed through unchanged.
func LogErrors[T any](name string, next func() (T, error)) (T, error) {
	out, err := next()
	if err != nil {
		logger.GetLogger().Error("call failed", zap.String("func", name), zap.Error(err))
		if r := currentReporter(); r != nil {
			r.CaptureError(name, err)
		}
	}
	return out, err
}

// PanicError is the error Recover returns for a recovered panic.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Recover turns a panic in next into a *PanicError, logs it with its stack
// and forwards it to the reporter.
func Recover[T any](name string, next func() (T, error)) (out T, err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		pe := &PanicError{Value: p, Stack: debug.Stack()}
		currentMetrics().Panics.WithLabelValues(name).Inc()
		logger.GetLogger().Error("recovered panic",
			zap.String("func", name),
			zap.Any("panic", p),
			zap.ByteString("stack", pe.Stack))
		if r := currentReporter(); r != nil {
			r.CapturePanic(name, p)
		}
		var zero T
		out, err = zero, pe
	}()
	return next()
}
