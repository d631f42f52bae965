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
	"go/ast"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

// SelfKeyword is the root identifier of receiver-relative references.
const SelfKeyword = "self"

// SelfPath is a decorator reference written as a string literal such as
// "self.logger.Trace". Expr is rooted at the identifier self until the
// generator binds it to the receiver.
type SelfPath struct {
	// Literal is the string literal as written, quotes included.
	Literal string
	// Chain is the part after the self keyword, e.g. ".logger.Trace".
	Chain string
	Expr  ast.Expr
}

// ResolveSelfPath turns a Go string literal into a receiver-relative
// expression. The literal content must be "self" alone or start with
// "self.".
func ResolveSelfPath(lit string) (*SelfPath, error) {
	content, err := strconv.Unquote(lit)
	if err != nil {
		return nil, newError(CodeInvalidSelfPath, Span{}, "invalid self path %s: not a valid string literal", lit)
	}
	if content != SelfKeyword && !strings.HasPrefix(content, SelfKeyword+".") {
		return nil, newError(CodeInvalidSelfPath, Span{},
			"invalid self path %s: must be %q or start with %q", lit, SelfKeyword, SelfKeyword+".")
	}

	x, err := parseExpr(content)
	if err != nil {
		return nil, newError(CodeInvalidSelfPath, Span{}, "invalid self path %s: %v", lit, err)
	}
	root := chainRoot(x)
	if root == nil || root.Name != SelfKeyword {
		return nil, newError(CodeInvalidSelfPath, Span{},
			"invalid self path %s: expected a field or method chain rooted at %s", lit, SelfKeyword)
	}

	return &SelfPath{
		Literal: lit,
		Chain:   strings.TrimPrefix(content, SelfKeyword),
		Expr:    x,
	}, nil
}

// chainRoot walks selector, index and call expressions down to the root
// identifier. It returns nil for any other shape.
func chainRoot(x ast.Expr) *ast.Ident {
	for {
		switch e := x.(type) {
		case *ast.Ident:
			return e
		case *ast.SelectorExpr:
			x = e.X
		case *ast.IndexExpr:
			x = e.X
		case *ast.IndexListExpr:
			x = e.X
		case *ast.CallExpr:
			x = e.Fun
		default:
			return nil
		}
	}
}

// Bind returns a copy of the self expression with every reference to
// the self keyword replaced by recv.
func (s *SelfPath) Bind(recv string) (ast.Expr, error) {
	x, err := cloneExpr(nil, s.Expr)
	if err != nil {
		return nil, err
	}
	if recv == SelfKeyword {
		return x, nil
	}
	out := astutil.Apply(x, func(c *astutil.Cursor) bool {
		id, ok := c.Node().(*ast.Ident)
		if !ok || id.Name != SelfKeyword {
			return true
		}
		if _, isSel := c.Parent().(*ast.SelectorExpr); isSel && c.Name() == "Sel" {
			return true
		}
		c.Replace(ast.NewIdent(recv))
		return true
	}, nil)
	return out.(ast.Expr), nil
}
