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

package logger

import "go.uber.org/zap"

// Sugar adapts a zap logger to the message plus key/value pairs logging
// interface accepted by the rewrite package.
type Sugar struct {
	s *zap.SugaredLogger
}

// NewSugar wraps l. A nil logger falls back to the global logger.
func NewSugar(l *zap.Logger) *Sugar {
	if l == nil {
		l = GetLogger()
	}
	return &Sugar{s: l.Sugar()}
}

// Nop returns an adapter that discards everything.
func Nop() *Sugar {
	return &Sugar{s: zap.NewNop().Sugar()}
}

// Debug logs msg with key/value pairs at debug level.
func (l *Sugar) Debug(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

// Info logs msg with key/value pairs at info level.
func (l *Sugar) Info(msg string, keysAndValues ...interface{}) {
	l.s.Infow(msg, keysAndValues...)
}

// Warn logs msg with key/value pairs at warn level.
func (l *Sugar) Warn(msg string, keysAndValues ...interface{}) {
	l.s.Warnw(msg, keysAndValues...)
}

// Error logs msg with key/value pairs at error level.
func (l *Sugar) Error(msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, keysAndValues...)
}

// With returns an adapter that adds the key/value pairs to every entry.
func (l *Sugar) With(keysAndValues ...interface{}) *Sugar {
	return &Sugar{s: l.s.With(keysAndValues...)}
}
