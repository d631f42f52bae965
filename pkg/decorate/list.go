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
	"bytes"
	"go/ast"
	"go/printer"
	"go/token"
	"strings"
)

// RefKind discriminates the two forms of a decorator reference.
type RefKind int

const (
	// PathRef is a static path such as log.Trace or pkg.Retry[T].
	PathRef RefKind = iota
	// SelfRef is a string literal resolved relative to the receiver.
	SelfRef
)

func (k RefKind) String() string {
	switch k {
	case PathRef:
		return "path"
	case SelfRef:
		return "self"
	default:
		return "unknown"
	}
}

// Reference identifies the callable a decorator layer invokes.
// Exactly one of Path and Self is set, according to Kind.
type Reference struct {
	Kind RefKind
	Path ast.Expr
	Self *SelfPath
	Span Span
}

// Expr returns the call target expression. Self references are still
// rooted at the identifier self.
func (r Reference) Expr() ast.Expr {
	switch r.Kind {
	case SelfRef:
		return r.Self.Expr
	default:
		return r.Path
	}
}

func (r Reference) String() string {
	switch r.Kind {
	case SelfRef:
		return r.Self.Literal
	default:
		return exprString(r.Path)
	}
}

// Entry is one element of a decorator list: a *Call or an *Option.
type Entry interface {
	EntrySpan() Span
	String() string
	entry()
}

// Call is a single decorator layer.
type Call struct {
	Ref  Reference
	Args []ast.Expr
	Span Span
}

func (*Call) entry() {}

// EntrySpan returns the source span of the whole call.
func (c *Call) EntrySpan() Span { return c.Span }

func (c *Call) String() string {
	if len(c.Args) == 0 {
		return c.Ref.String()
	}
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, exprString(a))
	}
	return c.Ref.String() + "(" + strings.Join(args, ", ") + ")"
}

// OptionKey names a pipeline-wide configuration option.
type OptionKey string

// Recognized option keys.
const (
	OptionPre             OptionKey = "pre"
	OptionPost            OptionKey = "post"
	OptionTransformParams OptionKey = "transform_params"
	OptionTransformResult OptionKey = "transform_result"
)

// OptionKeys lists the recognized keys in canonical order.
var OptionKeys = []OptionKey{
	OptionPre,
	OptionPost,
	OptionTransformParams,
	OptionTransformResult,
}

// ParseOptionKey reports whether name is a recognized option key.
func ParseOptionKey(name string) (OptionKey, bool) {
	for _, k := range OptionKeys {
		if string(k) == name {
			return k, true
		}
	}
	return "", false
}

// takesCode reports whether the option value is code rather than a path.
func (k OptionKey) takesCode() bool {
	return k == OptionPre || k == OptionPost
}

// Option is a configuration entry such as pre = log.Println("x").
//
// For pre and post, Stmts always holds the statements to emit. Expr is
// set when the value was written as an expression rather than a string
// literal. For the transforms, Expr holds the path.
type Option struct {
	Key     OptionKey
	Expr    ast.Expr
	Stmts   []ast.Stmt
	Source  string
	Span    Span
	KeySpan Span
}

func (*Option) entry() {}

// EntrySpan returns the source span of the whole option.
func (o *Option) EntrySpan() Span { return o.Span }

func (o *Option) String() string {
	return string(o.Key) + " = " + o.Source
}

// List is a parsed decorator list in source order.
type List struct {
	Entries []Entry
	Span    Span
}

// Append adds the entries of other to l, as when several directive
// lines annotate the same function.
func (l *List) Append(other *List) {
	if other == nil {
		return
	}
	if len(l.Entries) == 0 && !l.Span.IsValid() {
		l.Span = other.Span
	} else if other.Span.End > l.Span.End {
		l.Span.End = other.Span.End
	}
	l.Entries = append(l.Entries, other.Entries...)
}

// String renders the list in canonical directive syntax. Parsing the
// result yields an equivalent list.
func (l *List) String() string {
	parts := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, ", ")
}

func exprString(x ast.Expr) string {
	if x == nil {
		return ""
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, token.NewFileSet(), x); err != nil {
		return "<invalid>"
	}
	return buf.String()
}
