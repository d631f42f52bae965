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

	"go.uber.org/zap"

	"github.com/innovationmech/decorate/pkg/logger"
)

var (
	// ErrCircuitOpen is returned while a circuit rejects calls.
	ErrCircuitOpen = errors.New("decorators: circuit breaker is open")
	// ErrTooManyRequests is returned when a half-open circuit already has
	// its trial calls in flight.
	ErrTooManyRequests = errors.New("decorators: too many requests in half-open state")
)

// State is the state of a circuit.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return fmt.Sprintf("unknown state: %d", s)
	}
}

// Counts holds the call statistics of the current generation.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// FailureRate returns failures over requests, 0 without requests.
func (c Counts) FailureRate() float64 {
	if c.Requests == 0 {
		return 0
	}
	return float64(c.TotalFailures) / float64(c.Requests)
}

func (c *Counts) success() {
	c.Requests++
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.Requests++
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// BreakerConfig configures a named circuit.
type BreakerConfig struct {
	// MaxRequests is the number of calls let through while half-open.
	MaxRequests uint32 `json:"max_requests" yaml:"max_requests"`
	// Interval is the closed-state window after which counts reset.
	Interval time.Duration `json:"interval" yaml:"interval"`
	// OpenTimeout is how long the circuit stays open before letting trial calls through.
	OpenTimeout          time.Duration `json:"open_timeout" yaml:"open_timeout"`
	FailureThreshold     uint32        `json:"failure_threshold" yaml:"failure_threshold"`
	FailureRateThreshold float64       `json:"failure_rate_threshold" yaml:"failure_rate_threshold"`
	MinimumRequests      uint32        `json:"minimum_requests" yaml:"minimum_requests"`
	// ReadyToTrip overrides the threshold check.
	ReadyToTrip func(Counts) bool `json:"-" yaml:"-"`
	// IsFailure overrides err != nil as the failure test.
	IsFailure     func(error) bool                      `json:"-" yaml:"-"`
	OnStateChange func(name string, from State, to State) `json:"-" yaml:"-"`
}

// DefaultBreakerConfig returns the configuration used for circuits that
// were never configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:          1,
		Interval:             60 * time.Second,
		OpenTimeout:          30 * time.Second,
		FailureThreshold:     5,
		FailureRateThreshold: 0.5,
		MinimumRequests:      5,
	}
}

// Validate checks the configuration.
func (c BreakerConfig) Validate() error {
	if c.MaxRequests == 0 {
		return fmt.Errorf("max_requests must be greater than 0")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.OpenTimeout <= 0 {
		return fmt.Errorf("open_timeout must be positive")
	}
	if c.FailureRateThreshold < 0 || c.FailureRateThreshold > 1 {
		return fmt.Errorf("failure_rate_threshold must be between 0 and 1")
	}
	if c.MinimumRequests == 0 {
		return fmt.Errorf("minimum_requests must be greater than 0")
	}
	return nil
}

type breaker struct {
	name string
	cfg  BreakerConfig
	now  func() time.Time

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	expiry     time.Time
	halfOpen   uint32
}

func newBreaker(name string, cfg BreakerConfig, now func() time.Time) *breaker {
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = func(c Counts) bool {
			if c.Requests < cfg.MinimumRequests {
				return false
			}
			return c.TotalFailures >= cfg.FailureThreshold || c.FailureRate() >= cfg.FailureRateThreshold
		}
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	return &breaker{
		name:   name,
		cfg:    cfg,
		now:    now,
		expiry: now().Add(cfg.Interval),
	}
}

func (b *breaker) before() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, gen := b.current(b.now())
	switch {
	case state == StateOpen:
		return gen, ErrCircuitOpen
	case state == StateHalfOpen && b.halfOpen >= b.cfg.MaxRequests:
		return gen, ErrTooManyRequests
	case state == StateHalfOpen:
		b.halfOpen++
	}
	return gen, nil
}

func (b *breaker) after(gen uint64, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	state, current := b.current(now)
	if gen != current {
		return
	}

	if !failed {
		b.counts.success()
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.cfg.MaxRequests {
			b.transition(now, StateClosed)
		}
		return
	}

	b.counts.failure()
	switch state {
	case StateClosed:
		if b.cfg.ReadyToTrip(b.counts) {
			b.transition(now, StateOpen)
		}
	case StateHalfOpen:
		b.transition(now, StateOpen)
	}
}

// current advances expired generations and must be called with mu held.
func (b *breaker) current(now time.Time) (State, uint64) {
	if b.expiry.Before(now) {
		switch b.state {
		case StateClosed:
			b.transition(now, StateClosed)
		case StateOpen:
			b.transition(now, StateHalfOpen)
		}
	}
	return b.state, b.generation
}

func (b *breaker) transition(now time.Time, to State) {
	from := b.state
	b.generation++
	b.counts = Counts{}
	b.halfOpen = 0
	b.state = to

	switch to {
	case StateClosed:
		b.expiry = now.Add(b.cfg.Interval)
	default:
		b.expiry = now.Add(b.cfg.OpenTimeout)
	}

	if from == to {
		return
	}
	currentMetrics().BreakerState.WithLabelValues(b.name).Set(float64(to))
	logger.GetLogger().Info("circuit state changed",
		zap.String("circuit", b.name),
		zap.Stringer("from", from),
		zap.Stringer("to", to))
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

func (b *breaker) snapshot() (State, Counts) {
	b.mu.Lock()
	defer b.mu.Unlock()
	state, _ := b.current(b.now())
	return state, b.counts
}

func (b *breaker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transition(b.now(), StateClosed)
}

var circuits = struct {
	sync.Mutex
	byName  map[string]*breaker
	configs map[string]BreakerConfig
	now     func() time.Time
}{
	byName:  make(map[string]*breaker),
	configs: make(map[string]BreakerConfig),
	now:     time.Now,
}

// ConfigureCircuit sets the configuration of the circuit called name and
// resets it. Circuits never configured use DefaultBreakerConfig.
func ConfigureCircuit(name string, cfg BreakerConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("decorators: circuit %q: %w", name, err)
	}
	circuits.Lock()
	defer circuits.Unlock()
	circuits.configs[name] = cfg
	delete(circuits.byName, name)
	return nil
}

func circuit(name string) *breaker {
	circuits.Lock()
	defer circuits.Unlock()

	if b, ok := circuits.byName[name]; ok {
		return b
	}
	cfg, ok := circuits.configs[name]
	if !ok {
		cfg = DefaultBreakerConfig()
	}
	b := newBreaker(name, cfg, circuits.now)
	circuits.byName[name] = b
	return b
}

// CircuitState returns the current state and counts of the circuit called
// name.
func CircuitState(name string) (State, Counts) {
	return circuit(name).snapshot()
}

// ResetCircuit closes the circuit called name and clears its counts.
func ResetCircuit(name string) {
	circuit(name).reset()
}

// CircuitBreaker guards next with the circuit called name. While the
// circuit is open next is not called and ErrCircuitOpen is returned.
// Functions sharing a name share a circuit.
func CircuitBreaker[T any](name string, next func() (T, error)) (out T, err error) {
	b := circuit(name)
	gen, err := b.before()
	if err != nil {
		currentMetrics().BreakerRejections.WithLabelValues(name).Inc()
		var zero T
		return zero, fmt.Errorf("%s: %w", name, err)
	}

	defer func() {
		if p := recover(); p != nil {
			b.after(gen, true)
			panic(p)
		}
	}()

	out, err = next()
	b.after(gen, b.cfg.IsFailure(err))
	return out, err
}
