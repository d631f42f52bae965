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
	"errors"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
)

// lexeme is a scanned token with byte offsets into the directive text.
type lexeme struct {
	tok token.Token
	lit string
	off int
	end int
}

func (l lexeme) text() string {
	if l.lit != "" {
		return l.lit
	}
	return l.tok.String()
}

// listParser parses the text between the parentheses of one directive.
type listParser struct {
	base token.Pos
	src  string
}

// ParseList parses a decorator list. src is the text inside the
// directive parentheses and base is the position of its first byte in
// fset, so diagnostics point into the annotated file. base may be
// token.NoPos when positions are not needed.
//
//	entry          = option | call .
//	option         = key "=" ( Expression | path ) .
//	call           = ( path | string_lit ) [ "(" [ ExpressionList [ "," ] ] ")" ] .
//	path           = identifier { "." identifier } [ TypeArgs ] .
func ParseList(fset *token.FileSet, base token.Pos, src string) (*List, error) {
	p := &listParser{base: base, src: src}
	list, err := p.parse()
	if err != nil {
		var de *Error
		if errors.As(err, &de) {
			return nil, de.resolve(fset)
		}
		return nil, err
	}
	return list, nil
}

func (p *listParser) pos(off int) token.Pos {
	if !p.base.IsValid() {
		return token.NoPos
	}
	return p.base + token.Pos(off)
}

func (p *listParser) span(from, to int) Span {
	return Span{Pos: p.pos(from), End: p.pos(to)}
}

func (p *listParser) lexSpan(l lexeme) Span {
	return p.span(l.off, l.end)
}

func (p *listParser) rangeSpan(ls []lexeme) Span {
	return p.span(ls[0].off, ls[len(ls)-1].end)
}

func (p *listParser) parse() (*List, error) {
	lexemes, err := p.scan()
	if err != nil {
		return nil, err
	}
	groups, err := p.split(lexemes)
	if err != nil {
		return nil, err
	}

	list := &List{Span: p.span(0, len(p.src))}
	for _, g := range groups {
		e, err := p.parseEntry(g)
		if err != nil {
			return nil, err
		}
		list.Entries = append(list.Entries, e)
	}
	return list, nil
}

func (p *listParser) scan() ([]lexeme, error) {
	file := token.NewFileSet().AddFile("", -1, len(p.src))

	var scanErr *Error
	var s scanner.Scanner
	s.Init(file, []byte(p.src), func(pos token.Position, msg string) {
		if scanErr == nil {
			scanErr = grammarError(p.span(pos.Offset, pos.Offset+1), "%s", msg)
		}
	}, 0)

	var out []lexeme
	for {
		pos, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		// automatically inserted at line ends
		if tok == token.SEMICOLON && lit == "\n" {
			continue
		}
		l := lexeme{tok: tok, lit: lit, off: file.Offset(pos)}
		l.end = l.off + len(l.text())
		out = append(out, l)
	}
	if scanErr != nil {
		return nil, scanErr
	}
	return out, nil
}

func closerFor(t token.Token) token.Token {
	switch t {
	case token.LPAREN:
		return token.RPAREN
	case token.LBRACK:
		return token.RBRACK
	case token.LBRACE:
		return token.RBRACE
	}
	return token.ILLEGAL
}

// split breaks the lexemes into entries at commas outside any brackets.
func (p *listParser) split(ls []lexeme) ([][]lexeme, error) {
	var (
		groups [][]lexeme
		cur    []lexeme
		open   []lexeme
	)
	for _, l := range ls {
		switch l.tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			open = append(open, l)
		case token.RPAREN, token.RBRACK, token.RBRACE:
			if len(open) == 0 || closerFor(open[len(open)-1].tok) != l.tok {
				return nil, grammarError(p.lexSpan(l), "unexpected %s", l.text())
			}
			open = open[:len(open)-1]
		case token.COMMA:
			if len(open) > 0 {
				break
			}
			if len(cur) == 0 {
				return nil, grammarError(p.lexSpan(l), "unexpected %s, expected decorator or option", l.text())
			}
			groups = append(groups, cur)
			cur = nil
			continue
		case token.SEMICOLON:
			if len(open) == 0 {
				return nil, grammarError(p.lexSpan(l), "unexpected %s, entries are separated by commas", l.text())
			}
		}
		cur = append(cur, l)
	}
	if len(open) > 0 {
		l := open[len(open)-1]
		return nil, grammarError(p.lexSpan(l), "unterminated argument list, missing %s", closerFor(l.tok))
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups, nil
}

// matchClose returns the index of the bracket closing ls[i].
func matchClose(ls []lexeme, i int) int {
	depth := 0
	for j := i; j < len(ls); j++ {
		switch ls[j].tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return len(ls) - 1
}

func (p *listParser) parseEntry(ls []lexeme) (Entry, error) {
	if len(ls) >= 2 && ls[0].tok == token.IDENT && ls[1].tok == token.ASSIGN {
		return p.parseOption(ls)
	}
	return p.parseCall(ls)
}

func validKeys() string {
	keys := make([]string, 0, len(OptionKeys))
	for _, k := range OptionKeys {
		keys = append(keys, string(k))
	}
	return strings.Join(keys, ", ")
}

func (p *listParser) parseOption(ls []lexeme) (*Option, error) {
	keyLex := ls[0]
	key, ok := ParseOptionKey(keyLex.lit)
	if !ok {
		return nil, grammarError(p.lexSpan(keyLex), "unknown option %q", keyLex.lit).
			WithDetails("valid options are " + validKeys())
	}
	if len(ls) == 2 {
		return nil, grammarError(p.lexSpan(ls[1]), "missing value for option %q", key)
	}

	opt := &Option{
		Key:     key,
		Span:    p.rangeSpan(ls),
		KeySpan: p.lexSpan(keyLex),
	}
	value := ls[2:]

	if !key.takesCode() {
		x, err := p.parsePath(value, "option "+string(key))
		if err != nil {
			return nil, err
		}
		opt.Expr = x
		opt.Source = exprString(x)
		return opt, nil
	}

	if len(value) == 1 && value[0].tok == token.STRING {
		lit := value[0]
		code, err := strconv.Unquote(lit.lit)
		if err != nil {
			return nil, grammarError(p.lexSpan(lit), "invalid string literal %s", lit.lit)
		}
		stmts, err := parseStmts(code)
		if err != nil {
			return nil, grammarError(p.lexSpan(lit), "invalid %s code %s: %s", key, lit.lit, firstMessage(err))
		}
		opt.Stmts = stmts
		opt.Source = lit.lit
		return opt, nil
	}

	x, err := p.parseRange(value)
	if err != nil {
		return nil, err
	}
	opt.Expr = x
	opt.Stmts = []ast.Stmt{&ast.ExprStmt{X: x}}
	opt.Source = exprString(x)
	return opt, nil
}

func (p *listParser) parseCall(ls []lexeme) (*Call, error) {
	first := ls[0]
	call := &Call{Span: p.rangeSpan(ls)}
	var rest []lexeme

	switch first.tok {
	case token.STRING:
		sp, err := ResolveSelfPath(first.lit)
		if err != nil {
			var de *Error
			if errors.As(err, &de) {
				de.Span = p.lexSpan(first)
			}
			return nil, err
		}
		call.Ref = Reference{Kind: SelfRef, Self: sp, Span: p.lexSpan(first)}
		rest = ls[1:]
	case token.IDENT:
		end := len(ls)
		depth := 0
	scan:
		for j, l := range ls {
			switch l.tok {
			case token.LBRACK, token.LBRACE:
				depth++
			case token.RBRACK, token.RBRACE:
				depth--
			case token.LPAREN:
				if depth == 0 {
					end = j
					break scan
				}
				depth++
			case token.RPAREN:
				depth--
			}
		}
		x, err := p.parsePath(ls[:end], "decorator path")
		if err != nil {
			return nil, err
		}
		call.Ref = Reference{Kind: PathRef, Path: x, Span: p.rangeSpan(ls[:end])}
		rest = ls[end:]
	default:
		return nil, grammarError(p.lexSpan(first), "expected decorator path or string literal, found %s", first.text())
	}

	if len(rest) == 0 {
		return call, nil
	}
	if rest[0].tok != token.LPAREN {
		return nil, grammarError(p.lexSpan(rest[0]), "unexpected %s after decorator reference", rest[0].text())
	}
	closing := matchClose(rest, 0)
	if closing != len(rest)-1 {
		extra := rest[closing+1]
		return nil, grammarError(p.lexSpan(extra), "unexpected %s after decorator call", extra.text())
	}
	if closing == 1 {
		return call, nil
	}

	// Parse "_(args)" so the argument list gets Go's own grammar,
	// trailing comma included.
	open, cl := rest[0], rest[closing]
	x, err := p.parseText("_"+p.src[open.off:cl.end], open.off-1)
	if err != nil {
		return nil, err
	}
	ce, ok := x.(*ast.CallExpr)
	if !ok {
		return nil, grammarError(p.lexSpan(open), "invalid argument list")
	}
	depth := 0
	for _, l := range rest[1:closing] {
		switch l.tok {
		case token.LPAREN, token.LBRACK, token.LBRACE:
			depth++
		case token.RPAREN, token.RBRACK, token.RBRACE:
			depth--
		case token.ELLIPSIS:
			if depth == 0 {
				return nil, grammarError(p.lexSpan(l), "spread arguments are not supported in decorator calls")
			}
		}
	}
	call.Args = ce.Args
	return call, nil
}

// parsePath accepts identifier { "." identifier } with an optional
// trailing type argument list.
func (p *listParser) parsePath(ls []lexeme, what string) (ast.Expr, error) {
	i := 0
	wantIdent := true
	for i < len(ls) {
		l := ls[i]
		if wantIdent {
			if l.tok != token.IDENT {
				return nil, grammarError(p.lexSpan(l), "expected identifier in %s, found %s", what, l.text())
			}
			wantIdent = false
			i++
			continue
		}
		if l.tok != token.PERIOD {
			break
		}
		wantIdent = true
		i++
	}
	if wantIdent {
		if len(ls) == 0 {
			return nil, grammarError(Span{}, "empty %s", what)
		}
		last := ls[len(ls)-1]
		return nil, grammarError(p.lexSpan(last), "incomplete %s, expected identifier after %s", what, last.text())
	}
	if i < len(ls) {
		if ls[i].tok != token.LBRACK {
			return nil, grammarError(p.lexSpan(ls[i]), "unexpected %s in %s", ls[i].text(), what)
		}
		if closing := matchClose(ls, i); closing != len(ls)-1 {
			extra := ls[closing+1]
			return nil, grammarError(p.lexSpan(extra), "unexpected %s in %s", extra.text(), what)
		}
	}
	return p.parseRange(ls)
}

func (p *listParser) parseRange(ls []lexeme) (ast.Expr, error) {
	from, to := ls[0].off, ls[len(ls)-1].end
	return p.parseText(p.src[from:to], from)
}

// parseText parses a Go expression whose first byte sits at offset off
// of the directive text. Syntax errors are mapped back to that text.
func (p *listParser) parseText(text string, off int) (ast.Expr, error) {
	x, err := parser.ParseExprFrom(token.NewFileSet(), "", text, parser.SkipObjectResolution)
	if err != nil {
		at := off
		var list scanner.ErrorList
		if errors.As(err, &list) && len(list) > 0 {
			at = off + list[0].Pos.Offset
		}
		if at < 0 {
			at = 0
		}
		if at > len(p.src) {
			at = len(p.src)
		}
		return nil, grammarError(p.span(at, at+1), "%s", firstMessage(err))
	}
	stripPositions(x)
	return x, nil
}

func firstMessage(err error) string {
	var list scanner.ErrorList
	if errors.As(err, &list) && len(list) > 0 {
		return list[0].Msg
	}
	return err.Error()
}
