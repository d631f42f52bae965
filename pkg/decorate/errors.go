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

package decorate

import (
	"fmt"
	"go/token"
	"sort"
	"strings"
)

// Code identifies the category of a decorate diagnostic.
type Code string

// Diagnostic codes.
const (
	// CodeGrammar reports a malformed directive: unexpected token,
	// unterminated argument list, unknown option key.
	CodeGrammar Code = "GRAMMAR_ERROR"
	// CodeDuplicateOption reports a configuration key given twice.
	CodeDuplicateOption Code = "DUPLICATE_OPTION"
	// CodeEmptyPipeline reports a directive without decorator calls.
	CodeEmptyPipeline Code = "EMPTY_PIPELINE"
	// CodeInvalidSelfPath reports a string reference not rooted at self.
	CodeInvalidSelfPath Code = "INVALID_SELF_PATH"
	// CodeUnsupportedItem reports a directive on something that cannot be decorated.
	CodeUnsupportedItem Code = "UNSUPPORTED_ITEM"
)

// Sentinel errors for use with errors.Is.
var (
	ErrGrammar         = &Error{Code: CodeGrammar}
	ErrDuplicateOption = &Error{Code: CodeDuplicateOption}
	ErrEmptyPipeline   = &Error{Code: CodeEmptyPipeline}
	ErrInvalidSelfPath = &Error{Code: CodeInvalidSelfPath}
	ErrUnsupportedItem = &Error{Code: CodeUnsupportedItem}
)

// Span is a half-open range of positions in the annotated file.
type Span struct {
	Pos token.Pos
	End token.Pos
}

// IsValid reports whether the span points into a file.
func (s Span) IsValid() bool {
	return s.Pos.IsValid()
}

// Error is a single diagnostic produced while processing one annotated item.
type Error struct {
	Code     Code           `json:"code"`
	Message  string         `json:"message"`
	Details  string         `json:"details,omitempty"`
	Span     Span           `json:"-"`
	Position token.Position `json:"position"`
	Cause    error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Details != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Details)
	}
	if e.Position.IsValid() {
		return fmt.Sprintf("%s: %s", e.Position, msg)
	}
	return msg
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches errors by code, so errors.Is(err, ErrGrammar) holds for
// every grammar diagnostic.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// resolve fills in Position from the span when a file set is available.
func (e *Error) resolve(fset *token.FileSet) *Error {
	if fset != nil && e.Span.IsValid() && !e.Position.IsValid() {
		if f := fset.File(e.Span.Pos); f != nil {
			e.Position = f.Position(e.Span.Pos)
		}
	}
	return e
}

func newError(code Code, span Span, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Span:    span,
	}
}

func grammarError(span Span, format string, args ...interface{}) *Error {
	return newError(CodeGrammar, span, format, args...)
}

// WithDetails attaches a help text to the diagnostic.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// ErrorList is the set of diagnostics produced for one source file, at
// most one per annotated item.
type ErrorList []*Error

// Add appends a diagnostic.
func (l *ErrorList) Add(err *Error) {
	*l = append(*l, err)
}

// Sort orders the diagnostics by file position.
func (l ErrorList) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		a, b := l[i].Position, l[j].Position
		if a.Filename != b.Filename {
			return a.Filename < b.Filename
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}

// Error implements the error interface.
func (l ErrorList) Error() string {
	switch len(l) {
	case 0:
		return "no errors"
	case 1:
		return l[0].Error()
	}
	msgs := make([]string, 0, len(l))
	for _, e := range l {
		msgs = append(msgs, e.Error())
	}
	return fmt.Sprintf("%d errors:\n\t%s", len(l), strings.Join(msgs, "\n\t"))
}

// Unwrap exposes the diagnostics to errors.Is and errors.As.
func (l ErrorList) Unwrap() []error {
	errs := make([]error, len(l))
	for i, e := range l {
		errs[i] = e
	}
	return errs
}

// Err returns nil for an empty list and the list itself otherwise.
func (l ErrorList) Err() error {
	if len(l) == 0 {
		return nil
	}
	return l
}

// AsError converts err into a *Error when it is one, resolving its
// position with fset.
func AsError(fset *token.FileSet, err error) (*Error, bool) {
	de, ok := err.(*Error)
	if !ok {
		return nil, false
	}
	return de.resolve(fset), true
}
