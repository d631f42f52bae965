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
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"reflect"
)

var (
	posType          = reflect.TypeOf(token.NoPos)
	commentGroupType = reflect.TypeOf((*ast.CommentGroup)(nil))
)

// marker is the position given to tokens whose presence is encoded by a
// valid position, such as the "..." of a spread call.
const marker = token.Pos(1)

// stripPositions clears every position and attached comment under n so
// the node can be printed inside a tree from another file set.
func stripPositions(n ast.Node) {
	if n == nil {
		return
	}
	ast.Inspect(n, func(node ast.Node) bool {
		if node == nil {
			return false
		}
		switch x := node.(type) {
		case *ast.CallExpr:
			if x.Ellipsis.IsValid() {
				defer func() { x.Ellipsis = marker }()
			}
		case *ast.TypeSpec:
			if x.Assign.IsValid() {
				defer func() { x.Assign = marker }()
			}
		}
		v := reflect.ValueOf(node)
		if v.Kind() != reflect.Ptr || v.IsNil() {
			return true
		}
		e := v.Elem()
		if e.Kind() != reflect.Struct {
			return true
		}
		for i := 0; i < e.NumField(); i++ {
			f := e.Field(i)
			if !f.CanSet() {
				continue
			}
			switch f.Type() {
			case posType:
				f.SetInt(int64(token.NoPos))
			case commentGroupType:
				f.Set(reflect.Zero(commentGroupType))
			}
		}
		return true
	})
}

// parseExpr parses src as a Go expression and strips its positions.
func parseExpr(src string) (ast.Expr, error) {
	x, err := parser.ParseExprFrom(token.NewFileSet(), "", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	stripPositions(x)
	return x, nil
}

// parseStmts parses src as a statement list.
func parseStmts(src string) ([]ast.Stmt, error) {
	const prefix = "package p; func _() {\n"
	f, err := parser.ParseFile(token.NewFileSet(), "", prefix+src+"\n}", parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	body := f.Decls[0].(*ast.FuncDecl).Body
	for _, s := range body.List {
		stripPositions(s)
	}
	return body.List, nil
}

// cloneExpr deep-copies x by printing it with fset and parsing it back.
// The copy carries no positions.
func cloneExpr(fset *token.FileSet, x ast.Expr) (ast.Expr, error) {
	if fset == nil {
		fset = token.NewFileSet()
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, x); err != nil {
		return nil, err
	}
	c, err := parseExpr(buf.String())
	if err != nil {
		return nil, fmt.Errorf("clone %q: %w", buf.String(), err)
	}
	return c, nil
}

func cloneStmts(stmts []ast.Stmt) ([]ast.Stmt, error) {
	if len(stmts) == 0 {
		return nil, nil
	}
	var buf bytes.Buffer
	fset := token.NewFileSet()
	for _, s := range stmts {
		if err := printer.Fprint(&buf, fset, s); err != nil {
			return nil, err
		}
		buf.WriteByte('\n')
	}
	return parseStmts(buf.String())
}

// identSet records every identifier name used under the given nodes.
type identSet map[string]struct{}

func (s identSet) add(nodes ...ast.Node) {
	for _, n := range nodes {
		if n == nil || reflect.ValueOf(n).IsNil() {
			continue
		}
		ast.Inspect(n, func(node ast.Node) bool {
			if id, ok := node.(*ast.Ident); ok {
				s[id.Name] = struct{}{}
			}
			return true
		})
	}
}

// fresh returns base, or base with the smallest numeric suffix, that is
// not yet in the set, and reserves it.
func (s identSet) fresh(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, used := s[name]; !used {
			break
		}
		name = fmt.Sprintf("%s%d", base, i)
	}
	s[name] = struct{}{}
	return name
}
