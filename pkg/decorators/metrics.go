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
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by the decorators.
type Metrics struct {
	CallDuration      *prometheus.HistogramVec
	Retries           *prometheus.CounterVec
	Timeouts          *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec
	BreakerRejections *prometheus.CounterVec
	RateLimited       *prometheus.CounterVec
	CacheRequests     *prometheus.CounterVec
	CacheEvictions    prometheus.Counter
	Panics            *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "decorate"
	}
	factory := promauto.With(reg)

	return &Metrics{
		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "call_duration_seconds",
			Help:      "Duration of decorated calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),

		Retries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Total number of retried attempts",
		}, []string{"name"}),

		Timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "timeouts_total",
			Help:      "Total number of calls abandoned after their deadline",
		}, []string{"name"}),

		BreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "state",
			Help:      "Current state of the circuit breaker (0=closed, 1=half-open, 2=open)",
		}, []string{"name"}),

		BreakerRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuit_breaker",
			Name:      "rejections_total",
			Help:      "Total number of calls rejected by an open circuit",
		}, []string{"name"}),

		RateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Total number of calls rejected by a rate limiter",
		}, []string{"name"}),

		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total number of cache lookups by result",
		}, []string{"result"}),

		CacheEvictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of entries evicted from in-memory caches",
		}),

		Panics: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "panics_total",
			Help:      "Total number of panics recovered",
		}, []string{"name"}),
	}
}

var metrics atomic.Pointer[Metrics]

// SetMetrics replaces the collectors used by every decorator. Passing nil
// falls back to a fresh set of unregistered collectors.
func SetMetrics(m *Metrics) {
	metrics.Store(m)
}

// currentMetrics returns the installed collectors, creating unregistered
// ones on first use.
func currentMetrics() *Metrics {
	if m := metrics.Load(); m != nil {
		return m
	}
	metrics.CompareAndSwap(nil, NewMetrics("", nil))
	return metrics.Load()
}
