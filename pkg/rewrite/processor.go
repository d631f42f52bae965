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
	"bytes"
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"os"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/imports"

	"github.com/innovationmech/decorate/pkg/decorate"
	"github.com/innovationmech/decorate/pkg/logger"
)

// Logger defines the interface for logging operations. Arguments after
// the message are key/value pairs.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// FileSystem reads the files handed to Processor.Files.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
}

type osFileSystem struct{}

func (osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Function describes one decorated function.
type Function struct {
	Name      string         `json:"name" yaml:"name"`
	Position  token.Position `json:"position" yaml:"position"`
	Layers    int            `json:"layers" yaml:"layers"`
	Options   []string       `json:"options,omitempty" yaml:"options,omitempty"`
	Async     bool           `json:"async,omitempty" yaml:"async,omitempty"`
	Directive string         `json:"directive" yaml:"directive"`
}

// Result is the outcome of processing one file.
type Result struct {
	Filename  string
	Output    []byte
	Functions []Function
	Changed   bool
	// Err holds the diagnostics of a file processed by Files. It is a
	// decorate.ErrorList when directives were rejected.
	Err error
}

// Processor finds directives in Go source files and replaces each
// annotated function with its decorated form.
type Processor struct {
	prefix     string
	formatOnly bool
	workers    int
	fs         FileSystem
	logger     Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithPrefix sets the directive name, "decorate:with" by default.
func WithPrefix(prefix string) ProcessorOption {
	return func(p *Processor) {
		if prefix != "" {
			p.prefix = prefix
		}
	}
}

// WithFormatOnly disables import insertion and removal; output is only
// gofmt-formatted.
func WithFormatOnly(enable bool) ProcessorOption {
	return func(p *Processor) {
		p.formatOnly = enable
	}
}

// WithWorkers bounds the number of files processed concurrently.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithFileSystem sets the filesystem Files reads from.
func WithFileSystem(fs FileSystem) ProcessorOption {
	return func(p *Processor) {
		if fs != nil {
			p.fs = fs
		}
	}
}

// WithLogger sets the logger for the processor.
func WithLogger(log Logger) ProcessorOption {
	return func(p *Processor) {
		if log != nil {
			p.logger = log
		}
	}
}

// NewProcessor creates a processor with the given options.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		prefix:  DefaultPrefix,
		workers: runtime.NumCPU(),
		fs:      osFileSystem{},
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// decorated is an annotated function together with its replacement.
type decorated struct {
	target    *target
	pipeline  *decorate.Pipeline
	view      *decorate.FuncView
	generated *ast.FuncDecl
}

// analysis is a parsed file with every annotated function generated.
type analysis struct {
	fset  *token.FileSet
	file  *ast.File
	funcs []*decorated
}

func (p *Processor) analyze(filename string, src []byte) (*analysis, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	a := &analysis{fset: fset, file: file}
	targets, errs := attach(file, p.prefix)
	for _, t := range targets {
		d, err := p.decorate(fset, t)
		if err != nil {
			var de *decorate.Error
			if !errors.As(err, &de) {
				return nil, fmt.Errorf("failed to decorate %s in %s: %w", t.decl.Name.Name, filename, err)
			}
			errs.Add(de)
			continue
		}
		a.funcs = append(a.funcs, d)
	}

	if len(errs) > 0 {
		for _, e := range errs {
			decorate.AsError(fset, e)
		}
		errs.Sort()
		return a, errs
	}
	return a, nil
}

func (p *Processor) decorate(fset *token.FileSet, t *target) (*decorated, error) {
	list, err := parseDirectives(fset, t, p.prefix)
	if err != nil {
		return nil, err
	}
	pipeline, err := decorate.Build(list)
	if err != nil {
		return nil, err
	}
	view, err := decorate.NewFuncView(t.decl)
	if err != nil {
		return nil, err
	}
	if t.async != nil {
		if err := view.MarkAsync(); err != nil {
			var de *decorate.Error
			if errors.As(err, &de) {
				de.Span = decorate.Span{Pos: t.async.Slash, End: t.async.End()}
			}
			return nil, err
		}
	}
	gen, err := decorate.Generate(fset, pipeline, view)
	if err != nil {
		return nil, err
	}
	return &decorated{target: t, pipeline: pipeline, view: view, generated: gen}, nil
}

func (a *analysis) functions() []Function {
	out := make([]Function, 0, len(a.funcs))
	for _, d := range a.funcs {
		f := Function{
			Name:      d.view.QualifiedName(),
			Position:  d.view.Position(a.fset),
			Layers:    len(d.pipeline.Decorators),
			Async:     d.view.Async,
			Directive: d.pipeline.String(),
		}
		for _, o := range d.pipeline.Options() {
			f.Options = append(f.Options, string(o.Key))
		}
		out = append(out, f)
	}
	return out
}

// Check parses src and validates every directive without rendering
// output. It returns the functions that would be decorated.
func (p *Processor) Check(filename string, src []byte) ([]Function, error) {
	a, err := p.analyze(filename, src)
	if a == nil {
		return nil, err
	}
	return a.functions(), err
}

// Source rewrites one file. When any directive in the file is rejected
// the returned error is a decorate.ErrorList and Output is src
// unchanged. Files without directives are returned as is.
func (p *Processor) Source(filename string, src []byte) (*Result, error) {
	res := &Result{Filename: filename, Output: src}

	a, err := p.analyze(filename, src)
	if a == nil {
		return nil, err
	}
	res.Functions = a.functions()
	if err != nil {
		p.logger.Warn("directives rejected", "file", filename, "error", err)
		return res, err
	}
	if len(a.funcs) == 0 {
		return res, nil
	}

	out, err := a.splice(src, p.prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", filename, err)
	}
	out, err = imports.Process(filename, out, &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: p.formatOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to format %s: %w", filename, err)
	}

	for _, f := range res.Functions {
		p.logger.Debug("decorated function", "file", filename, "function", f.Name, "layers", f.Layers)
	}
	res.Output = out
	res.Changed = !bytes.Equal(out, src)
	return res, nil
}

// splice replaces every decorated declaration, doc comment included, in
// src. Directive lines are dropped from the doc comment.
func (a *analysis) splice(src []byte, prefix string) ([]byte, error) {
	funcs := append([]*decorated(nil), a.funcs...)
	sort.Slice(funcs, func(i, j int) bool {
		return funcs[i].target.decl.Pos() > funcs[j].target.decl.Pos()
	})

	tf := a.fset.File(a.file.Pos())
	out := append([]byte(nil), src...)
	for _, d := range funcs {
		decl := d.target.decl
		start := decl.Pos()
		if decl.Doc != nil {
			start = decl.Doc.Pos()
		}
		from, to := tf.Offset(start), tf.Offset(decl.End())

		text, err := a.render(d, src)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		buf.Write(out[:from])
		buf.WriteString(docText(decl.Doc, prefix))
		buf.Write(text)
		buf.Write(out[to:])
		out = buf.Bytes()
	}
	return out, nil
}

// render prints the generated declaration. The original body is copied
// verbatim from src so its comments survive; the final gofmt pass fixes
// its indentation.
func (a *analysis) render(d *decorated, src []byte) ([]byte, error) {
	body := d.view.Body
	placeholder := "decorateBody"
	for i := 0; bytes.Contains(src, []byte(placeholder)); i++ {
		placeholder = fmt.Sprintf("decorateBody%d", i)
	}

	var core *ast.FuncLit
	ast.Inspect(d.generated.Body, func(n ast.Node) bool {
		if lit, ok := n.(*ast.FuncLit); ok && lit.Body == body {
			core = lit
			return false
		}
		return core == nil
	})
	if core == nil {
		return nil, fmt.Errorf("generated %s does not contain the original body", d.view.Name)
	}

	core.Body = &ast.BlockStmt{List: []ast.Stmt{&ast.ExprStmt{X: ast.NewIdent(placeholder)}}}
	defer func() { core.Body = body }()

	gen := *d.generated
	gen.Doc = nil
	var buf bytes.Buffer
	if err := format.Node(&buf, a.fset, &gen); err != nil {
		return nil, err
	}
	out := buf.Bytes()

	at := bytes.Index(out, []byte(placeholder))
	if at < 0 {
		return nil, fmt.Errorf("cannot locate body of %s in generated code", d.view.Name)
	}
	open := bytes.LastIndexByte(out[:at], '{')
	closing := bytes.IndexByte(out[at:], '}')
	if open < 0 || closing < 0 {
		return nil, fmt.Errorf("cannot locate body of %s in generated code", d.view.Name)
	}
	closing += at

	tf := a.fset.File(body.Lbrace)
	orig := src[tf.Offset(body.Lbrace) : tf.Offset(body.Rbrace)+1]

	var res bytes.Buffer
	res.Write(out[:open])
	res.Write(orig)
	res.Write(out[closing+1:])
	return tightenClose(res.Bytes()), nil
}

// tightenClose drops blank lines before the closing brace of the
// declaration. The generated body keeps the original closing position,
// which leaves a gap when the body has fewer lines than the original.
func tightenClose(decl []byte) []byte {
	end := bytes.LastIndexByte(decl, '}')
	if end < 0 {
		return decl
	}
	head := bytes.TrimRight(decl[:end], " \t\n")
	if len(head) == 0 || head[len(head)-1] == '{' {
		return decl
	}
	out := make([]byte, 0, len(decl))
	out = append(out, head...)
	out = append(out, '\n')
	return append(out, decl[end:]...)
}

// docText returns the doc comment without directive and async marker
// lines.
func docText(doc *ast.CommentGroup, prefix string) string {
	if doc == nil {
		return ""
	}
	var lines []string
	for _, c := range doc.List {
		if isDirective(c.Text, prefix) || isAsyncMarker(c.Text, prefix) {
			continue
		}
		lines = append(lines, c.Text)
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "//" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// Files processes paths concurrently. Per-file diagnostics are reported
// in Result.Err; the returned error is set only when the context is
// cancelled or a file cannot be read. Results keep the order of paths.
func (p *Processor) Files(ctx context.Context, paths []string) ([]*Result, error) {
	results := make([]*Result, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := p.fs.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}
			res, err := p.Source(path, src)
			if res == nil {
				res = &Result{Filename: path, Output: src}
			}
			res.Err = err
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}

	changed := 0
	for _, r := range results {
		if r.Changed {
			changed++
		}
	}
	p.logger.Info("processed files", "files", len(paths), "changed", changed)
	return results, nil
}
