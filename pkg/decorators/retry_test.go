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
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	prev := sleep
	sleep = func(d time.Duration) { slept = append(slept, d) }
	t.Cleanup(func() { sleep = prev })
	return &slept
}

func TestBackoff_Delay(t *testing.T) {
	tests := []struct {
		name string
		cfg  RetryConfig
		want []time.Duration
	}{
		{
			name: "fixed",
			cfg:  RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: StrategyFixed},
			want: []time.Duration{10 * time.Millisecond, 10 * time.Millisecond, 10 * time.Millisecond},
		},
		{
			name: "linear",
			cfg:  RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: StrategyLinear},
			want: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond},
		},
		{
			name: "exponential",
			cfg:  RetryConfig{InitialDelay: 10 * time.Millisecond, Multiplier: 2, Strategy: StrategyExponential},
			want: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond},
		},
		{
			name: "capped",
			cfg:  RetryConfig{InitialDelay: 10 * time.Millisecond, MaxDelay: 25 * time.Millisecond, Multiplier: 2, Strategy: StrategyExponential},
			want: []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond},
		},
		{
			name: "none",
			cfg:  RetryConfig{InitialDelay: 10 * time.Millisecond, Strategy: StrategyNone},
			want: []time.Duration{0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackoff(tt.cfg)
			assert.Equal(t, time.Duration(0), b.Delay(0))
			for i, want := range tt.want {
				assert.Equal(t, want, b.Delay(i+1), "attempt %d", i+1)
			}
		})
	}
}

func TestBackoff_Jitter(t *testing.T) {
	b := NewBackoff(RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		Strategy:      StrategyFixed,
		JitterPercent: 10,
	})
	for i := 0; i < 50; i++ {
		d := b.Delay(1)
		assert.GreaterOrEqual(t, d, 90*time.Millisecond)
		assert.LessOrEqual(t, d, 110*time.Millisecond)
	}
}

func TestRetryConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*RetryConfig)
		wantErr string
	}{
		{name: "default", mutate: func(*RetryConfig) {}},
		{name: "zero attempts", mutate: func(c *RetryConfig) { c.MaxAttempts = 0 }, wantErr: "max_attempts"},
		{name: "negative delay", mutate: func(c *RetryConfig) { c.InitialDelay = -1 }, wantErr: "initial_delay"},
		{name: "small multiplier", mutate: func(c *RetryConfig) { c.Multiplier = 0.5 }, wantErr: "multiplier"},
		{name: "unknown strategy", mutate: func(c *RetryConfig) { c.Strategy = "RANDOM" }, wantErr: "unknown backoff strategy"},
		{name: "jitter out of range", mutate: func(c *RetryConfig) { c.JitterPercent = 150 }, wantErr: "jitter_percent"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRetryConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRetry(t *testing.T) {
	slept := noSleep(t)

	next, calls := counter(2, "ok")
	out, err := Retry(3, next)

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, *slept)
}

func TestRetry_Exhausted(t *testing.T) {
	noSleep(t)

	next, calls := counter(5, "ok")
	_, err := Retry(3, next)

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 3, *calls)
}

func TestRetry_Permanent(t *testing.T) {
	noSleep(t)

	calls := 0
	_, err := Retry(5, func() (int, error) {
		calls++
		return 0, Permanent(errBoom)
	})

	assert.ErrorIs(t, err, errBoom)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestRetryWith_RetryIf(t *testing.T) {
	noSleep(t)
	errRetry := errors.New("retry me")

	calls := 0
	cfg := RetryConfig{
		Name:        "lookup",
		MaxAttempts: 4,
		Strategy:    StrategyNone,
		RetryIf:     func(err error) bool { return errors.Is(err, errRetry) },
	}
	_, err := RetryWith(cfg, func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errRetry
		}
		return 0, errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
}

func TestRetryWith_InvalidConfig(t *testing.T) {
	called := false
	_, err := RetryWith(RetryConfig{}, func() (int, error) {
		called = true
		return 1, nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
	assert.False(t, called)
}

func TestRetry_Metrics(t *testing.T) {
	noSleep(t)
	m, _ := withMetrics(t)

	next, _ := counter(2, "ok")
	cfg := DefaultRetryConfig()
	cfg.Name = "fetch"
	_, err := RetryWith(cfg, next)

	require.NoError(t, err)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Retries.WithLabelValues("fetch")))
}
