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
	"math"
	"math/rand"
	"sync"
	"time"
)

// Strategy selects how the delay between retries grows.
type Strategy string

const (
	// StrategyFixed waits InitialDelay between attempts.
	StrategyFixed Strategy = "FIXED"
	// StrategyLinear waits InitialDelay*attempt.
	StrategyLinear Strategy = "LINEAR"
	// StrategyExponential waits InitialDelay*Multiplier^attempt.
	StrategyExponential Strategy = "EXPONENTIAL"
	// StrategyJittered is exponential with random jitter.
	StrategyJittered Strategy = "JITTERED"
	// StrategyNone retries immediately.
	StrategyNone Strategy = "NONE"
)

// RetryConfig configures RetryWith.
type RetryConfig struct {
	// Name labels retry metrics and log lines.
	Name string `json:"name" yaml:"name"`
	// MaxAttempts counts the first call, so 1 means no retry.
	MaxAttempts   int           `json:"max_attempts" yaml:"max_attempts"`
	InitialDelay  time.Duration `json:"initial_delay" yaml:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay" yaml:"max_delay"`
	Multiplier    float64       `json:"multiplier" yaml:"multiplier"`
	Strategy      Strategy      `json:"strategy" yaml:"strategy"`
	JitterPercent float64       `json:"jitter_percent" yaml:"jitter_percent"`
	// RetryIf reports whether err is worth another attempt. Nil retries
	// every error except those wrapped with Permanent.
	RetryIf func(err error) bool `json:"-" yaml:"-"`
}

// DefaultRetryConfig returns a three attempt exponential policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Strategy:     StrategyExponential,
	}
}

// Validate checks the configuration.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be non-negative")
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("max_delay must be non-negative")
	}
	switch c.Strategy {
	case "", StrategyFixed, StrategyLinear, StrategyNone:
	case StrategyExponential, StrategyJittered:
		if c.Multiplier < 1 {
			return fmt.Errorf("multiplier must be at least 1 for %s backoff", c.Strategy)
		}
	default:
		return fmt.Errorf("unknown backoff strategy %q", c.Strategy)
	}
	if c.JitterPercent < 0 || c.JitterPercent > 100 {
		return fmt.Errorf("jitter_percent must be between 0 and 100")
	}
	return nil
}

// Backoff computes the delay before each retry.
type Backoff struct {
	cfg RetryConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// NewBackoff creates a delay calculator for cfg.
func NewBackoff(cfg RetryConfig) *Backoff {
	return &Backoff{
		cfg: cfg,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Delay returns the wait before retry number attempt (1 for the first
// retry). It never exceeds MaxDelay when one is set.
func (b *Backoff) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	d := b.cfg.InitialDelay
	switch b.cfg.Strategy {
	case StrategyNone:
		return 0
	case StrategyLinear:
		d = time.Duration(float64(d) * float64(attempt))
	case StrategyExponential, StrategyJittered:
		d = time.Duration(float64(d) * math.Pow(b.cfg.Multiplier, float64(attempt-1)))
	}

	d = b.clamp(d)
	if b.cfg.Strategy == StrategyJittered || b.cfg.JitterPercent > 0 {
		d = b.clamp(b.jitter(d))
	}
	return d
}

func (b *Backoff) clamp(d time.Duration) time.Duration {
	if b.cfg.MaxDelay > 0 && d > b.cfg.MaxDelay {
		d = b.cfg.MaxDelay
	}
	if d < 0 {
		d = 0
	}
	return d
}

// jitter scales d by a random factor in [1-p%, 1+p%].
func (b *Backoff) jitter(d time.Duration) time.Duration {
	p := b.cfg.JitterPercent
	if p <= 0 {
		if b.cfg.Strategy != StrategyJittered {
			return d
		}
		p = 20
	}
	if p > 100 {
		p = 100
	}
	lo, hi := 1-p/100, 1+p/100

	b.mu.Lock()
	f := lo + (hi-lo)*b.rng.Float64()
	b.mu.Unlock()
	return time.Duration(float64(d) * f)
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable under the default RetryIf.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// sleep is replaced in tests.
var sleep = time.Sleep

// Retry calls next up to attempts times with the default exponential
// backoff, returning the first success or the last error.
func Retry[T any](attempts int, next func() (T, error)) (T, error) {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = attempts
	return RetryWith(cfg, next)
}

// RetryWith is Retry with a full policy. An invalid policy fails without
// calling next.
func RetryWith[T any](cfg RetryConfig, next func() (T, error)) (T, error) {
	var zero T
	if err := cfg.Validate(); err != nil {
		return zero, fmt.Errorf("decorators: retry: %w", err)
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = func(err error) bool { return !IsPermanent(err) }
	}

	backoff := NewBackoff(cfg)
	var (
		out T
		err error
	)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			currentMetrics().Retries.WithLabelValues(cfg.Name).Inc()
			sleep(backoff.Delay(attempt - 1))
		}
		out, err = next()
		if err == nil || !retryIf(err) {
			return out, err
		}
	}
	return out, err
}
