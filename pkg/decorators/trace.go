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
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/innovationmech/decorate/pkg/logger"
)

// Trace logs entry and exit of the decorated call at debug level. Both
// lines share a call_id so concurrent calls can be told apart.
func Trace[T any](name string, next func() T) T {
	log, start := enter(name)
	out := next()
	log.Debug("exit", zap.Duration("elapsed", time.Since(start)))
	return out
}

// TraceErr is Trace for fallible calls; a returned error is logged at
// warn level.
func TraceErr[T any](name string, next func() (T, error)) (T, error) {
	log, start := enter(name)
	out, err := next()
	if err != nil {
		log.Warn("exit with error", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return out, err
	}
	log.Debug("exit", zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

func enter(name string) (*zap.Logger, time.Time) {
	log := logger.GetLogger().With(
		zap.String("func", name),
		zap.String("call_id", uuid.NewString()),
	)
	log.Debug("enter")
	return log, time.Now()
}
