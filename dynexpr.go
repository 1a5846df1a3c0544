// Package dynexpr evaluates small expressions over Go values.
//
// An Evaluator parses source text, compiles it against a shared
// binding.Registry and returns a Program that can be run any number of times
// with different parameter values:
//
//	ev := dynexpr.New(dynexpr.WithTypes(reflect.TypeFor[Money]()))
//	p, err := ev.Compile("price * qty", dynexpr.P("price", reflect.TypeFor[Money]()), dynexpr.P("qty", reflect.TypeFor[int64]()))
//	...
//	v, err := p.Run(Money{250}, int64(3))
package dynexpr

import (
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/debug"
	"github.com/signadot/dynexpr/execution"
	"github.com/signadot/dynexpr/expression"
	"github.com/signadot/dynexpr/frontend"
)

// Param declares one parameter of a Program.
type Param struct {
	Name string
	Type reflect.Type
}

func P(name string, t reflect.Type) Param {
	return Param{Name: name, Type: t}
}

// Evaluator compiles source text. Types names the types source text may
// refer to for static members, constructors and casts.
type Evaluator struct {
	Registry *binding.Registry
	Types    map[string]reflect.Type
}

type Option func(*Evaluator)

// WithRegistry shares reg between evaluators.
func WithRegistry(reg *binding.Registry) Option {
	return func(e *Evaluator) {
		e.Registry = reg
	}
}

// WithTypes makes each type available under its Go name.
func WithTypes(ts ...reflect.Type) Option {
	return func(e *Evaluator) {
		for _, t := range ts {
			e.Types[t.Name()] = t
		}
	}
}

// WithType makes t available under name.
func WithType(name string, t reflect.Type) Option {
	return func(e *Evaluator) {
		e.Types[name] = t
	}
}

func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		Types: map[string]reflect.Type{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.Registry == nil {
		e.Registry = binding.NewRegistry()
	}
	return e
}

// Program is a compiled expression. It is safe for concurrent use.
type Program struct {
	src    string
	params []Param
	node   execution.Node
}

func (e *Evaluator) Compile(src string, params ...Param) (*Program, error) {
	ps := make([]*expression.Parameter, len(params))
	for i, p := range params {
		if p.Type == nil {
			return nil, fmt.Errorf("%w: parameter %q has no type", binding.ErrInvalidArgument, p.Name)
		}
		ps[i] = expression.Param(p.Name, p.Type)
	}
	tree, err := frontend.Parse(src, &frontend.Env{Parameters: ps, Types: e.Types})
	if err != nil {
		return nil, err
	}
	node, err := execution.Compile(e.Registry, tree, nil, ps)
	if err != nil {
		return nil, fmt.Errorf("error compiling %q: %w", src, err)
	}
	return &Program{src: src, params: params, node: node}, nil
}

// Run evaluates the program with one argument per parameter, in the order
// the parameters were given to Compile.
func (p *Program) Run(args ...any) (any, error) {
	if len(args) != len(p.params) {
		return nil, fmt.Errorf("%w: %q takes %d arguments, got %d", binding.ErrInvalidArgument, p.src, len(p.params), len(args))
	}
	res, err := p.node.Run(execution.NewClosure(nil, args...))
	if debug.Run() {
		debug.Logf("run %s with %v: %v (err=%v)\n", p.node, args, res, err)
	}
	return res, err
}

// Type is the static type of the values Run produces.
func (p *Program) Type() reflect.Type { return p.node.Type().Reflect() }

func (p *Program) Params() []Param { return slices.Clone(p.params) }

func (p *Program) String() string { return p.node.String() }

// Eval compiles and runs src once. Each variable becomes a parameter typed
// by its value; nil values are typed any.
func (e *Evaluator) Eval(src string, vars map[string]any) (any, error) {
	names := slices.Sorted(maps.Keys(vars))
	params := make([]Param, len(names))
	args := make([]any, len(names))
	for i, name := range names {
		v := vars[name]
		t := reflect.TypeOf(v)
		if t == nil {
			t = reflect.TypeFor[any]()
		}
		params[i] = P(name, t)
		args[i] = v
	}
	p, err := e.Compile(src, params...)
	if err != nil {
		return nil, err
	}
	return p.Run(args...)
}

// Eval evaluates src with a fresh Evaluator.
func Eval(src string, vars map[string]any) (any, error) {
	return New().Eval(src, vars)
}
