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

import "fmt"

// Pipeline is a validated decorator list: the decorator calls in source
// order plus at most one of each option.
type Pipeline struct {
	Decorators      []*Call
	Pre             *Option
	Post            *Option
	TransformParams *Option
	TransformResult *Option
}

// Build folds a parsed list into a Pipeline. Options may appear anywhere
// in the list; only the relative order of decorator calls matters.
func Build(list *List) (*Pipeline, error) {
	p := &Pipeline{}
	var span Span
	if list != nil {
		span = list.Span
		for _, e := range list.Entries {
			switch e := e.(type) {
			case *Call:
				p.Decorators = append(p.Decorators, e)
			case *Option:
				if err := p.setOption(e); err != nil {
					return nil, err
				}
			default:
				panic(fmt.Sprintf("decorate: unexpected entry type %T", e))
			}
		}
	}
	if len(p.Decorators) == 0 {
		return nil, newError(CodeEmptyPipeline, span, "no decorator paths provided")
	}
	return p, nil
}

func (p *Pipeline) slot(key OptionKey) **Option {
	switch key {
	case OptionPre:
		return &p.Pre
	case OptionPost:
		return &p.Post
	case OptionTransformParams:
		return &p.TransformParams
	case OptionTransformResult:
		return &p.TransformResult
	}
	return nil
}

func (p *Pipeline) setOption(o *Option) error {
	slot := p.slot(o.Key)
	if slot == nil {
		return newError(CodeGrammar, o.KeySpan, "unknown option %q", o.Key)
	}
	if *slot != nil {
		return newError(CodeDuplicateOption, o.KeySpan, "duplicate option %q", o.Key).
			WithDetails(fmt.Sprintf("%s may be given at most once", o.Key))
	}
	*slot = o
	return nil
}

// Option returns the option recorded for key, or nil.
func (p *Pipeline) Option(key OptionKey) *Option {
	if s := p.slot(key); s != nil {
		return *s
	}
	return nil
}

// Options returns the options that are set, in canonical key order.
func (p *Pipeline) Options() []*Option {
	var out []*Option
	for _, k := range OptionKeys {
		if o := p.Option(k); o != nil {
			out = append(out, o)
		}
	}
	return out
}

// UsesSelf reports whether any decorator is referenced through a self
// path.
func (p *Pipeline) UsesSelf() bool {
	return p.firstSelf() != nil
}

func (p *Pipeline) firstSelf() *Call {
	for _, d := range p.Decorators {
		if d.Ref.Kind == SelfRef {
			return d
		}
	}
	return nil
}

// List returns the canonical decorator list for the pipeline: decorator
// calls in order followed by the options.
func (p *Pipeline) List() *List {
	l := &List{}
	for _, d := range p.Decorators {
		l.Entries = append(l.Entries, d)
	}
	for _, o := range p.Options() {
		l.Entries = append(l.Entries, o)
	}
	return l
}

func (p *Pipeline) String() string {
	return p.List().String()
}
