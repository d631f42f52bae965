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

package rewrite

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/innovationmech/decorate/pkg/decorate"
)

// DefaultPrefix is the directive name recognized after "//".
const DefaultPrefix = "decorate:with"

// directive is one annotation comment line.
type directive struct {
	comment *ast.Comment
	group   *ast.CommentGroup
}

// target is a function declaration with its directives in source order.
type target struct {
	decl       *ast.FuncDecl
	directives []*ast.Comment
	// async is the marker line declaring the function a future.
	async *ast.Comment
}

// AsyncMarker returns the companion line that marks a decorated function
// as returning a future: "decorate:async" for the default prefix, the
// prefix namespace followed by ":async" otherwise.
func AsyncMarker(prefix string) string {
	if i := strings.LastIndexByte(prefix, ':'); i >= 0 {
		return prefix[:i] + ":async"
	}
	return prefix + ":async"
}

func isAsyncMarker(text, prefix string) bool {
	return strings.TrimRight(text, " \t") == "//"+AsyncMarker(prefix)
}

// isDirective reports whether text is a directive comment for prefix.
// "//decorate:without" is not.
func isDirective(text, prefix string) bool {
	rest, ok := strings.CutPrefix(text, "//"+prefix)
	if !ok {
		return false
	}
	return rest == "" || rest[0] == '(' || rest[0] == ' ' || rest[0] == '\t'
}

// directives returns every directive comment in file in source order.
func directives(file *ast.File, prefix string) []directive {
	var out []directive
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			if isDirective(c.Text, prefix) {
				out = append(out, directive{comment: c, group: cg})
			}
		}
	}
	return out
}

// attach groups directives by the function declaration they document.
// Directives that document anything else are reported.
func attach(file *ast.File, prefix string) ([]*target, decorate.ErrorList) {
	owners := make(map[*ast.CommentGroup]*target)
	var targets []*target
	for _, d := range file.Decls {
		fd, ok := d.(*ast.FuncDecl)
		if !ok || fd.Doc == nil {
			continue
		}
		t := &target{decl: fd}
		owners[fd.Doc] = t
		targets = append(targets, t)
	}

	var errs decorate.ErrorList
	for _, cg := range file.Comments {
		for _, c := range cg.List {
			if !isAsyncMarker(c.Text, prefix) {
				continue
			}
			if t, ok := owners[cg]; ok {
				t.async = c
				continue
			}
			errs.Add(&decorate.Error{
				Code:    decorate.CodeUnsupportedItem,
				Message: "//" + AsyncMarker(prefix) + " must document a function or method declaration",
				Span:    decorate.Span{Pos: c.Slash, End: c.End()},
			})
		}
	}

	reported := make(map[*ast.CommentGroup]bool)
	for _, d := range directives(file, prefix) {
		t, ok := owners[d.group]
		if !ok {
			if !reported[d.group] {
				reported[d.group] = true
				errs.Add(&decorate.Error{
					Code:    decorate.CodeUnsupportedItem,
					Message: "directive must document a function or method declaration",
					Span:    decorate.Span{Pos: d.comment.Slash, End: d.comment.End()},
				})
			}
			continue
		}
		t.directives = append(t.directives, d.comment)
	}

	out := targets[:0]
	for _, t := range targets {
		switch {
		case len(t.directives) > 0:
			out = append(out, t)
		case t.async != nil:
			errs.Add(&decorate.Error{
				Code:    decorate.CodeUnsupportedItem,
				Message: "//" + AsyncMarker(prefix) + " requires a //" + prefix + "(...) directive",
				Span:    decorate.Span{Pos: t.async.Slash, End: t.async.End()},
			})
		}
	}
	return out, errs
}

// parseDirectives parses and concatenates the decorator lists of t.
func parseDirectives(fset *token.FileSet, t *target, prefix string) (*decorate.List, error) {
	list := &decorate.List{}
	for _, c := range t.directives {
		head := len("//" + prefix)
		rest := strings.TrimRight(c.Text[head:], " \t")
		trimmed := strings.TrimLeft(rest, " \t")
		head += len(rest) - len(trimmed)
		rest = trimmed
		if !strings.HasPrefix(rest, "(") || !strings.HasSuffix(rest, ")") {
			return nil, &decorate.Error{
				Code:    decorate.CodeGrammar,
				Message: "malformed directive, expected //" + prefix + "(...)",
				Span:    decorate.Span{Pos: c.Slash, End: c.End()},
			}
		}
		body := rest[1 : len(rest)-1]
		base := c.Slash + token.Pos(head+1)
		l, err := decorate.ParseList(fset, base, body)
		if err != nil {
			return nil, err
		}
		list.Append(l)
	}
	return list, nil
}
