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
	"go/token"
)

// Receiver describes the receiver of a method.
type Receiver struct {
	Name    string
	Type    ast.Expr
	Pointer bool
}

// Param is a single parameter after expanding grouped names.
type Param struct {
	Name     string
	Type     ast.Expr
	Variadic bool
}

// Result is a single result after expanding grouped names.
type Result struct {
	Name string
	Type ast.Expr
}

// FuncView is the structured view of an annotated function or method
// the generator works from.
type FuncView struct {
	Decl       *ast.FuncDecl
	Name       string
	Exported   bool
	Recv       *Receiver
	TypeParams *ast.FieldList
	Params     []Param
	Results    []Result
	Variadic   bool

	// Async is set by MarkAsync. AsyncElem is then the element type of
	// the receive-only channel the function returns.
	Async     bool
	AsyncElem ast.Expr

	Body *ast.BlockStmt
}

// NewFuncView builds the view of decl. Declarations without a body
// cannot be decorated.
func NewFuncView(decl *ast.FuncDecl) (*FuncView, error) {
	if decl == nil {
		return nil, newError(CodeUnsupportedItem, Span{}, "nothing to decorate")
	}
	span := Span{Pos: decl.Pos(), End: decl.End()}
	if decl.Body == nil {
		return nil, newError(CodeUnsupportedItem, span,
			"cannot decorate %s: function has no body", decl.Name.Name)
	}

	v := &FuncView{
		Decl:       decl,
		Name:       decl.Name.Name,
		Exported:   decl.Name.IsExported(),
		TypeParams: decl.Type.TypeParams,
		Body:       decl.Body,
	}

	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		f := decl.Recv.List[0]
		r := &Receiver{Type: f.Type}
		if len(f.Names) > 0 {
			r.Name = f.Names[0].Name
		}
		_, r.Pointer = f.Type.(*ast.StarExpr)
		v.Recv = r
	}

	for _, f := range fields(decl.Type.Params) {
		typ := f.Type
		variadic := false
		if e, ok := typ.(*ast.Ellipsis); ok {
			typ, variadic = e.Elt, true
			v.Variadic = true
		}
		for _, name := range fieldNames(f) {
			v.Params = append(v.Params, Param{Name: name, Type: typ, Variadic: variadic})
		}
	}

	for _, f := range fields(decl.Type.Results) {
		for _, name := range fieldNames(f) {
			v.Results = append(v.Results, Result{Name: name, Type: f.Type})
		}
	}

	return v, nil
}

// MarkAsync declares that the function returns a future: a receive-only
// channel delivering exactly one value. Decorators then see the element
// type. Functions returning <-chan T that are not marked keep the
// channel as an ordinary result, so streams pass through unchanged.
func (v *FuncView) MarkAsync() error {
	if len(v.Results) == 1 {
		if ch, ok := v.Results[0].Type.(*ast.ChanType); ok && ch.Dir == ast.RECV {
			v.Async = true
			v.AsyncElem = ch.Value
			return nil
		}
	}
	return newError(CodeUnsupportedItem, v.Span(),
		"cannot mark %s as async: its only result must be a receive-only channel", v.Name)
}

// Span returns the source span of the whole declaration.
func (v *FuncView) Span() Span {
	return Span{Pos: v.Decl.Pos(), End: v.Decl.End()}
}

// Position returns the position of the function name.
func (v *FuncView) Position(fset *token.FileSet) token.Position {
	return fset.Position(v.Decl.Name.Pos())
}

// QualifiedName returns Name, or Recv.Name for methods with the
// receiver type printed without the pointer.
func (v *FuncView) QualifiedName() string {
	if v.Recv == nil {
		return v.Name
	}
	t := v.Recv.Type
	if s, ok := t.(*ast.StarExpr); ok {
		t = s.X
	}
	switch x := t.(type) {
	case *ast.IndexExpr:
		t = x.X
	case *ast.IndexListExpr:
		t = x.X
	}
	return exprString(t) + "." + v.Name
}

func fields(l *ast.FieldList) []*ast.Field {
	if l == nil {
		return nil
	}
	return l.List
}

// fieldNames returns one name per declared entity, "" for unnamed ones.
func fieldNames(f *ast.Field) []string {
	if len(f.Names) == 0 {
		return []string{""}
	}
	names := make([]string, len(f.Names))
	for i, n := range f.Names {
		names[i] = n.Name
	}
	return names
}
