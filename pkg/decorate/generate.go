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
	"go/ast"
	"go/token"
)

// Generate builds the replacement declaration for the function described
// by view. The result keeps the name, receiver, type parameters,
// parameter types and results of the original. Its body runs the
// original body as the innermost continuation of the decorator chain:
//
//	func F(x int) int {
//		return a(func() int {
//			return b(func() int {
//				<pre>
//				return func(x int) int { <original body> }(x)
//			})
//		})
//	}
//
// The first decorator listed is the outermost layer.
func Generate(fset *token.FileSet, p *Pipeline, view *FuncView) (*ast.FuncDecl, error) {
	g := &generator{
		fset:  fset,
		p:     p,
		v:     view,
		names: identSet{},
	}
	decl, err := g.generate()
	if err != nil {
		if de, ok := AsError(fset, err); ok {
			return nil, de
		}
		return nil, err
	}
	return decl, nil
}

type generator struct {
	fset  *token.FileSet
	p     *Pipeline
	v     *FuncView
	names identSet

	// recv is the receiver name self paths are bound to.
	recv string
	// args are the outer parameter names in declaration order.
	args []string
	// results are the result types every layer returns.
	results []ast.Expr
}

func (g *generator) generate() (*ast.FuncDecl, error) {
	if g.v == nil || g.v.Decl == nil {
		return nil, newError(CodeUnsupportedItem, Span{}, "nothing to decorate")
	}
	if g.v.Body == nil {
		return nil, newError(CodeUnsupportedItem, g.v.Span(),
			"cannot decorate %s: function has no body", g.v.Name)
	}
	if g.p == nil || len(g.p.Decorators) == 0 {
		return nil, newError(CodeEmptyPipeline, g.v.Span(), "no decorator paths provided")
	}

	g.reserveNames()

	recv, err := g.receiver()
	if err != nil {
		return nil, err
	}
	params := g.outerParams()
	if err := g.layerResults(); err != nil {
		return nil, err
	}

	inner, err := g.innermost()
	if err != nil {
		return nil, err
	}
	stmts, err := g.fold(inner)
	if err != nil {
		return nil, err
	}

	d := g.v.Decl
	return &ast.FuncDecl{
		Doc:  d.Doc,
		Recv: recv,
		Name: d.Name,
		Type: &ast.FuncType{
			Func:       d.Type.Func,
			TypeParams: d.Type.TypeParams,
			Params:     params,
			Results:    d.Type.Results,
		},
		Body: &ast.BlockStmt{
			Lbrace: d.Body.Lbrace,
			List:   stmts,
			Rbrace: d.Body.Rbrace,
		},
	}, nil
}

// reserveNames records every identifier of the function and the pipeline
// so generated names never capture or shadow them.
func (g *generator) reserveNames() {
	g.names.add(g.v.Decl)
	for _, d := range g.p.Decorators {
		g.names.add(d.Ref.Expr())
		for _, a := range d.Args {
			g.names.add(a)
		}
	}
	for _, o := range g.p.Options() {
		if o.Expr != nil {
			g.names.add(o.Expr)
		}
		for _, s := range o.Stmts {
			g.names.add(s)
		}
	}
}

func (g *generator) receiver() (*ast.FieldList, error) {
	d := g.v.Decl
	self := g.p.firstSelf()
	if self == nil {
		return d.Recv, nil
	}
	if g.v.Recv == nil {
		return nil, newError(CodeInvalidSelfPath, self.Ref.Span,
			"self path %s used on %s, which has no receiver", self.Ref.Self.Literal, g.v.Name)
	}
	if name := g.v.Recv.Name; name != "" && name != "_" {
		g.recv = name
		return d.Recv, nil
	}

	g.recv = g.names.fresh("recv")
	f := d.Recv.List[0]
	return &ast.FieldList{
		Opening: d.Recv.Opening,
		List: []*ast.Field{{
			Names: []*ast.Ident{ast.NewIdent(g.recv)},
			Type:  f.Type,
		}},
		Closing: d.Recv.Closing,
	}, nil
}

// outerParams returns the parameter list of the replacement, naming
// every unnamed or blank parameter so it can be forwarded to the core.
func (g *generator) outerParams() *ast.FieldList {
	orig := g.v.Decl.Type.Params
	out := &ast.FieldList{Opening: orig.Opening, Closing: orig.Closing}
	i := 0
	for _, f := range orig.List {
		nf := &ast.Field{Type: f.Type}
		for j, name := range fieldNames(f) {
			if name == "" || name == "_" {
				name = g.names.fresh(fmt.Sprintf("p%d", i))
				nf.Names = append(nf.Names, ast.NewIdent(name))
			} else {
				nf.Names = append(nf.Names, f.Names[j])
			}
			g.args = append(g.args, name)
			i++
		}
		out.List = append(out.List, nf)
	}
	return out
}

func (g *generator) layerResults() error {
	if g.v.Async {
		t, err := cloneExpr(g.fset, g.v.AsyncElem)
		if err != nil {
			return err
		}
		g.results = []ast.Expr{t}
		return nil
	}
	for _, r := range g.v.Results {
		t, err := cloneExpr(g.fset, r.Type)
		if err != nil {
			return err
		}
		g.results = append(g.results, t)
	}
	return nil
}

// continuation returns the type of every continuation literal.
func (g *generator) continuation() *ast.FuncType {
	ft := &ast.FuncType{Params: &ast.FieldList{}}
	if len(g.results) == 0 {
		return ft
	}
	ft.Results = &ast.FieldList{}
	for _, r := range g.results {
		ft.Results.List = append(ft.Results.List, &ast.Field{Type: r})
	}
	return ft
}

// coreLiteral wraps the original body in a function literal with the
// original parameters and results, so return statements, named results,
// defer and recover behave as before.
func (g *generator) coreLiteral() (*ast.FuncLit, error) {
	ft := g.v.Decl.Type
	params := &ast.FieldList{}
	for _, f := range ft.Params.List {
		typ := f.Type
		if e, ok := typ.(*ast.Ellipsis); ok {
			elt, err := cloneExpr(g.fset, e.Elt)
			if err != nil {
				return nil, err
			}
			typ = &ast.ArrayType{Elt: elt}
		} else {
			t, err := cloneExpr(g.fset, typ)
			if err != nil {
				return nil, err
			}
			typ = t
		}
		params.List = append(params.List, &ast.Field{Names: copyIdents(f.Names), Type: typ})
	}

	var results *ast.FieldList
	if ft.Results != nil {
		results = &ast.FieldList{}
		for _, f := range ft.Results.List {
			t, err := cloneExpr(g.fset, f.Type)
			if err != nil {
				return nil, err
			}
			results.List = append(results.List, &ast.Field{Names: copyIdents(f.Names), Type: t})
		}
	}

	return &ast.FuncLit{
		Type: &ast.FuncType{Params: params, Results: results},
		Body: g.v.Body,
	}, nil
}

func copyIdents(ids []*ast.Ident) []*ast.Ident {
	if len(ids) == 0 {
		return nil
	}
	out := make([]*ast.Ident, len(ids))
	for i, id := range ids {
		out[i] = ast.NewIdent(id.Name)
	}
	return out
}

// argIdents returns fresh identifiers for the forwarded parameters.
func (g *generator) argIdents() []ast.Expr {
	args := make([]ast.Expr, len(g.args))
	for i, name := range g.args {
		args[i] = ast.NewIdent(name)
	}
	return args
}

// innermost builds the statements of the continuation closest to the
// original body: pre code, the parameter transform, the core call, post
// code and the result transform.
func (g *generator) innermost() ([]ast.Stmt, error) {
	core, err := g.coreLiteral()
	if err != nil {
		return nil, err
	}

	var stmts []ast.Stmt
	if g.p.Pre != nil {
		pre, err := cloneStmts(g.p.Pre.Stmts)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, pre...)
	}

	coreArgs := g.argIdents()
	if tp := g.p.TransformParams; tp != nil {
		fun, err := cloneExpr(nil, tp.Expr)
		if err != nil {
			return nil, err
		}
		call := &ast.CallExpr{Fun: fun, Args: g.argIdents()}
		if g.v.Variadic {
			call.Ellipsis = marker
		}
		if len(coreArgs) == 0 {
			stmts = append(stmts, &ast.ExprStmt{X: call})
		} else {
			coreArgs = []ast.Expr{call}
		}
	}

	var value ast.Expr = &ast.CallExpr{Fun: core, Args: coreArgs}
	if g.v.Async {
		value = &ast.UnaryExpr{Op: token.ARROW, X: value}
	}

	var tr ast.Expr
	if g.p.TransformResult != nil {
		if tr, err = cloneExpr(nil, g.p.TransformResult.Expr); err != nil {
			return nil, err
		}
	}

	var post []ast.Stmt
	if g.p.Post != nil {
		if post, err = cloneStmts(g.p.Post.Stmts); err != nil {
			return nil, err
		}
	}

	switch {
	case len(g.results) == 0:
		stmts = append(stmts, &ast.ExprStmt{X: value})
		stmts = append(stmts, post...)
		if tr != nil {
			stmts = append(stmts, &ast.ExprStmt{X: &ast.CallExpr{Fun: tr}})
		}
	case post == nil:
		if tr != nil {
			value = &ast.CallExpr{Fun: tr, Args: []ast.Expr{value}}
		}
		stmts = append(stmts, &ast.ReturnStmt{Results: []ast.Expr{value}})
	default:
		temps := make([]ast.Expr, len(g.results))
		for i := range temps {
			temps[i] = ast.NewIdent(g.names.fresh(fmt.Sprintf("ret%d", i)))
		}
		stmts = append(stmts, &ast.AssignStmt{Lhs: temps, Tok: token.DEFINE, Rhs: []ast.Expr{value}})
		stmts = append(stmts, post...)
		ret := temps
		if tr != nil {
			ret = []ast.Expr{&ast.CallExpr{Fun: tr, Args: temps}}
		}
		stmts = append(stmts, &ast.ReturnStmt{Results: ret})
	}
	return stmts, nil
}

// fold wraps inner in the decorator layers, last listed innermost, and
// returns the statements of the replacement body.
func (g *generator) fold(inner []ast.Stmt) ([]ast.Stmt, error) {
	stmts := inner
	var outer *ast.CallExpr
	for i := len(g.p.Decorators) - 1; i >= 0; i-- {
		d := g.p.Decorators[i]
		fun, err := g.target(d)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Expr, 0, len(d.Args)+1)
		for _, a := range d.Args {
			c, err := cloneExpr(nil, a)
			if err != nil {
				return nil, err
			}
			args = append(args, c)
		}
		args = append(args, &ast.FuncLit{
			Type: g.continuation(),
			Body: &ast.BlockStmt{List: stmts},
		})
		outer = &ast.CallExpr{Fun: fun, Args: args}
		stmts = []ast.Stmt{g.yield(outer)}
	}

	if !g.v.Async {
		return stmts, nil
	}
	return g.future(outer)
}

// yield returns or evaluates call depending on the result count.
func (g *generator) yield(call ast.Expr) ast.Stmt {
	if len(g.results) == 0 {
		return &ast.ExprStmt{X: call}
	}
	return &ast.ReturnStmt{Results: []ast.Expr{call}}
}

// future runs the chain in a goroutine and returns a channel carrying
// its single result.
func (g *generator) future(chain ast.Expr) ([]ast.Stmt, error) {
	elem, err := cloneExpr(g.fset, g.v.AsyncElem)
	if err != nil {
		return nil, err
	}
	fut := g.names.fresh("fut")
	return []ast.Stmt{
		&ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent(fut)},
			Tok: token.DEFINE,
			Rhs: []ast.Expr{&ast.CallExpr{
				Fun: ast.NewIdent("make"),
				Args: []ast.Expr{
					&ast.ChanType{Dir: ast.SEND | ast.RECV, Value: elem},
					&ast.BasicLit{Kind: token.INT, Value: "1"},
				},
			}},
		},
		&ast.GoStmt{Call: &ast.CallExpr{
			Fun: &ast.FuncLit{
				Type: &ast.FuncType{Params: &ast.FieldList{}},
				Body: &ast.BlockStmt{List: []ast.Stmt{
					&ast.DeferStmt{Call: &ast.CallExpr{
						Fun:  ast.NewIdent("close"),
						Args: []ast.Expr{ast.NewIdent(fut)},
					}},
					&ast.SendStmt{Chan: ast.NewIdent(fut), Value: chain},
				}},
			},
		}},
		&ast.ReturnStmt{Results: []ast.Expr{ast.NewIdent(fut)}},
	}, nil
}

// target returns the call target of a decorator layer, with self paths
// bound to the receiver.
func (g *generator) target(d *Call) (ast.Expr, error) {
	switch d.Ref.Kind {
	case PathRef:
		return cloneExpr(nil, d.Ref.Path)
	case SelfRef:
		return d.Ref.Self.Bind(g.recv)
	default:
		return nil, newError(CodeGrammar, d.Ref.Span, "unknown reference kind %s", d.Ref.Kind)
	}
}
