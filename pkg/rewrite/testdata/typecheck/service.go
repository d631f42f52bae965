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

// Package typecheck declares functions decorated with the bundled
// decorators. The rewritten file must compile against them.
package typecheck

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/innovationmech/decorate/pkg/decorators"
)

// User is a stored account.
type User struct {
	ID   int    `json:"id" validate:"gte=0"`
	Name string `json:"name" validate:"required"`
}

var errNotFound = errors.New("user not found")

var store = decorators.NewMemoryStoreSize(16)

// Service keeps users in memory.
type Service struct {
	users map[int]User
	log   []string
}

func (s *Service) record(op string) {
	s.log = append(s.log, op)
}

func (s *Service) audit(op string, next func() (User, error)) (User, error) {
	s.record(op)
	return next()
}

// Find looks a user up.
//
//decorate:with(decorators.TraceErr("find"), decorators.Retry(3))
//decorate:with(decorators.Timeout(time.Second), decorators.SpanErrCtx(ctx, "find"), "self.audit"("find"))
func (s *Service) Find(ctx context.Context, id int) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, decorators.Permanent(errNotFound)
	}
	return u, nil
}

// Save stores u.
//
//decorate:with(decorators.CircuitBreaker[User]("save"), decorators.RateLimit("save", 10, 5), decorators.Validate(u))
//decorate:with(pre = s.record("save"), post = s.record("saved"))
func (s *Service) Save(u User) (User, error) {
	s.users[u.ID] = u
	return u, nil
}

//decorate:with(decorators.Cache(store, "users", time.Minute))
func (s *Service) All() ([]User, error) {
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

// First returns the first element of xs.
//
//decorate:with(decorators.LogErrors[T]("first"), decorators.Recover[T]("first"))
func First[T any](xs []T) (T, error) {
	if len(xs) == 0 {
		var zero T
		return zero, errors.New("empty slice")
	}
	return xs[0], nil
}

//decorate:with(decorators.Trace("greet"), decorators.Span("greet"), decorators.MeasureTime("greet"))
//decorate:with(transform_params = normalize, transform_result = strings.TrimSpace)
func Greeting(prefix string, names ...string) string {
	return prefix + " " + strings.Join(names, ", ")
}

func normalize(prefix string, names ...string) (string, []string) {
	return strings.TrimSpace(prefix), names
}

var ticks int

//decorate:with(decorators.DebounceOr("tick", time.Second, 0))
func Tick() int {
	ticks++
	return ticks
}

//decorate:with(decorators.DebounceFunc("reset", time.Second))
func Reset() {
	ticks = 0
}

// Answer resolves once.
//
//decorate:with(decorators.Trace("answer"))
//decorate:async
func Answer() <-chan int {
	ch := make(chan int, 1)
	ch <- 42
	close(ch)
	return ch
}

// Numbers streams 0 to n-1.
//
//decorate:with(decorators.Trace("numbers"))
func Numbers(n int) <-chan int {
	ch := make(chan int)
	go func() {
		defer close(ch)
		for i := 0; i < n; i++ {
			ch <- i
		}
	}()
	return ch
}
