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
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by RateLimit when no token is available.
var ErrRateLimited = errors.New("decorators: rate limit exceeded")

// TokenBucket allows bursts of up to capacity calls while limiting the
// average rate to refill tokens per second.
type TokenBucket struct {
	capacity float64
	refill   float64
	now      func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(capacity int64, refillPerSecond float64) *TokenBucket {
	return newTokenBucket(capacity, refillPerSecond, time.Now)
}

func newTokenBucket(capacity int64, refill float64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity: float64(capacity),
		refill:   refill,
		now:      now,
		tokens:   float64(capacity),
		last:     now(),
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.fill()
	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Tokens returns the number of available tokens.
func (tb *TokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.fill()
	return tb.tokens
}

func (tb *TokenBucket) fill() {
	now := tb.now()
	tb.tokens += now.Sub(tb.last).Seconds() * tb.refill
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.last = now
}

var buckets = struct {
	sync.RWMutex
	byName map[string]*TokenBucket
	now    func() time.Time
}{
	byName: make(map[string]*TokenBucket),
	now:    time.Now,
}

func bucket(name string, perSecond float64, burst int64) *TokenBucket {
	buckets.RLock()
	b, ok := buckets.byName[name]
	buckets.RUnlock()
	if ok {
		return b
	}

	buckets.Lock()
	defer buckets.Unlock()
	if b, ok = buckets.byName[name]; ok {
		return b
	}
	b = newTokenBucket(burst, perSecond, buckets.now)
	buckets.byName[name] = b
	return b
}

// RateLimit lets next run at most perSecond times per second on average
// with bursts of up to burst calls. Rejected calls return ErrRateLimited
// without running next. The bucket is keyed by name and created with the
// parameters of its first use.
func RateLimit[T any](name string, perSecond float64, burst int64, next func() (T, error)) (T, error) {
	if !bucket(name, perSecond, burst).Allow() {
		currentMetrics().RateLimited.WithLabelValues(name).Inc()
		var zero T
		return zero, fmt.Errorf("%s: %w", name, ErrRateLimited)
	}
	return next()
}
