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
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name used for spans.
const TracerName = "github.com/innovationmech/decorate/pkg/decorators"

// Span runs next inside an OpenTelemetry span named name. The span is a
// root span; use SpanCtx to attach it to a caller's trace.
func Span[T any](name string, next func() T) T {
	return SpanCtx(context.Background(), name, next)
}

// SpanCtx is Span with an explicit parent context.
func SpanCtx[T any](ctx context.Context, name string, next func() T) T {
	_, span := startSpan(ctx, name)
	defer span.End()
	return next()
}

// SpanErr runs next inside a span and records a returned error on it.
func SpanErr[T any](name string, next func() (T, error)) (T, error) {
	return SpanErrCtx(context.Background(), name, next)
}

// SpanErrCtx is SpanErr with an explicit parent context.
func SpanErrCtx[T any](ctx context.Context, name string, next func() (T, error)) (T, error) {
	_, span := startSpan(ctx, name)
	defer span.End()

	out, err := next()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return out, err
	}
	span.SetStatus(codes.Ok, "")
	return out, nil
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("code.function", name)),
	)
}
