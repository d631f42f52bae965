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

// Package decorate implements the core of the decorate source transformer:
// the directive grammar, the pipeline model and the code generator that
// wraps a function body in a chain of decorator calls.
//
// # Overview
//
// A decorator is an ordinary Go function that takes its own arguments
// followed by a continuation and returns what the continuation returns:
//
//	func Retry[T any](attempts int, next func() (T, error)) (T, error)
//
// A function annotated with
//
//	//decorate:with(Trace("fetch"), Retry(3), pre = log.Println("fetch", id))
//	func Fetch(id int) (*User, error) { ... }
//
// is rewritten so that calling Fetch calls Trace, which calls Retry,
// which runs the pre code and then the original body.
//
// # Directive Grammar
//
//	decorator_list = entry { "," entry } [ "," ] .
//	entry          = option | call .
//	option         = key "=" ( Expression | path ) .
//	key            = "pre" | "post" | "transform_params" | "transform_result" .
//	call           = reference [ "(" [ ExpressionList [ "," ] ] ")" ] .
//	reference      = path | string_lit .
//
// A string literal reference such as "self.log.Trace" is resolved
// relative to the method receiver. The pre and post options take an
// expression or a string literal holding statements. The transform
// options take a path.
//
// # Basic Usage
//
//	list, err := decorate.ParseList(fset, base, "Trace(\"fetch\"), Retry(3)")
//	if err != nil {
//		return err
//	}
//	pipeline, err := decorate.Build(list)
//	if err != nil {
//		return err
//	}
//	view, err := decorate.NewFuncView(decl)
//	if err != nil {
//		return err
//	}
//	replacement, err := decorate.Generate(fset, pipeline, view)
//
// # Asynchronous Functions
//
// A function whose only result is a receive-only channel may be marked
// as returning a future with FuncView.MarkAsync. Decorators then see the
// element type: the generated body receives one value from the original
// channel inside the innermost layer and runs the chain in a goroutine
// that delivers the result on a new channel. Unmarked channel results,
// streams included, are passed through as ordinary values.
//
// # Errors
//
// All failures are reported as *Error values carrying a Code and the
// span of the offending token. Use errors.Is with ErrGrammar,
// ErrDuplicateOption, ErrEmptyPipeline, ErrInvalidSelfPath or
// ErrUnsupportedItem to classify them.
package decorate
