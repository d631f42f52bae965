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

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogErrors(t *testing.T) {
	logs := withObservedLogger(t, zapcore.DebugLevel)
	rep := new(MockReporter)
	rep.On("CaptureError", "save", errBoom).Return()
	withReporter(t, rep)

	_, err := LogErrors("save", fail)

	assert.ErrorIs(t, err, errBoom)
	rep.AssertExpectations(t)
	entries := logs.FilterMessage("call failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "save", entries[0].ContextMap()["func"])
}

func TestLogErrors_Success(t *testing.T) {
	logs := withObservedLogger(t, zapcore.DebugLevel)
	rep := new(MockReporter)
	withReporter(t, rep)

	out, err := LogErrors("save", succeed)

	require.NoError(t, err)
	assert.Equal(t, 1, out)
	rep.AssertNotCalled(t, "CaptureError", mock.Anything, mock.Anything)
	assert.Zero(t, logs.Len())
}

func TestLogErrors_NilReporter(t *testing.T) {
	withObservedLogger(t, zapcore.DebugLevel)
	withReporter(t, nil)

	_, err := LogErrors("save", fail)
	assert.ErrorIs(t, err, errBoom)
}

func TestRecover(t *testing.T) {
	logs := withObservedLogger(t, zapcore.DebugLevel)
	m, _ := withMetrics(t)
	rep := new(MockReporter)
	rep.On("CapturePanic", "parse", "bad input").Return()
	withReporter(t, rep)

	out, err := Recover("parse", func() (int, error) {
		panic("bad input")
	})

	assert.Zero(t, out)
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "bad input", pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.Equal(t, "panic: bad input", err.Error())
	rep.AssertExpectations(t)
	assert.Equal(t, 1, logs.FilterMessage("recovered panic").Len())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Panics.WithLabelValues("parse")))
}

func TestRecover_ErrorValue(t *testing.T) {
	withObservedLogger(t, zapcore.DebugLevel)
	withReporter(t, nil)

	_, err := Recover("parse", func() (int, error) {
		panic(errBoom)
	})

	assert.ErrorIs(t, err, errBoom)
}

func TestRecover_PassThrough(t *testing.T) {
	out, err := Recover("parse", func() (string, error) { return "x", errBoom })
	assert.Equal(t, "x", out)
	assert.True(t, errors.Is(err, errBoom))
}

func TestSentryReporter(t *testing.T) {
	var events []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		SampleRate: 1,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			events = append(events, event)
			return nil
		},
	})
	require.NoError(t, err)
	hub := sentry.NewHub(client, sentry.NewScope())
	rep := SentryReporter{Hub: hub}

	rep.CaptureError("save", errBoom)
	rep.CapturePanic("parse", "bad input")

	require.Len(t, events, 2)
	assert.Equal(t, "save", events[0].Tags["function"])
	assert.Equal(t, "parse", events[1].Tags["function"])
	assert.Equal(t, sentry.LevelFatal, events[1].Level)
}
