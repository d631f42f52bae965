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

// Package decorators provides ready-made decorators for functions rewritten
// by the decorate tool.
//
// Every decorator takes its own arguments followed by the continuation that
// runs the rest of the chain. A directive such as
//
//	//decorate:with(decorators.TraceErr("load"), decorators.Retry(3))
//	func Load(id string) (*Item, error) { ... }
//
// expands into
//
//	return decorators.TraceErr("load", func() (*Item, error) {
//		return decorators.Retry(3, func() (*Item, error) {
//			return func(id string) (*Item, error) { ... }(id)
//		})
//	})
//
// Decorators come in two shapes. Functions named X wrap continuations with
// a single result, XErr variants wrap (T, error) continuations. Decorators
// that only make sense for fallible calls (Retry, Timeout, CircuitBreaker,
// RateLimit, Cache, Recover, Validate, LogErrors) only exist in the
// (T, error) form. DebounceOr and DebounceFunc skip calls made within a
// window of the last run, returning a fallback or nothing.
//
// Metrics are registered with Prometheus through SetMetrics, spans go to the
// global OpenTelemetry tracer provider and logs to the global zap logger of
// pkg/logger.
package decorators
