// Package execution turns expression trees into trees of executable nodes.
//
// Compile resolves every member, operator and conversion once against a
// binding.Registry. The resulting Node runs any number of times, from any
// number of goroutines, against closures that supply parameter values and
// captured constants; no lookup happens while running.
package execution

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/signadot/dynexpr/binding"
)

// Node is one compiled expression node.
type Node interface {
	// Run evaluates the node against c.
	Run(c *Closure) (any, error)

	// Type is the static type of the values Run produces.
	Type() *binding.Type

	String() string
}

// Closure is the run-time environment of a compiled tree. Constants and
// Parameters are indexed like the constant and parameter lists given to
// Compile.
type Closure struct {
	Constants  []any
	Parameters []any
}

func NewClosure(constants []any, parameters ...any) *Closure {
	return &Closure{Constants: constants, Parameters: parameters}
}

// typed holds the static type shared by all nodes.
type typed struct {
	t *binding.Type
}

func (n typed) Type() *binding.Type { return n.t }

// reflectValue turns a run-time value into a reflect.Value of static type t,
// boxing into interfaces and producing zero values for nil.
func reflectValue(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == t {
		return rv
	}
	if t.Kind() == reflect.Interface {
		res := reflect.New(t).Elem()
		res.Set(rv)
		return res
	}
	return rv
}

// result turns a reflect.Value back into a run-time value. Invalid values are
// nil.
func result(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	return v.Interface()
}

// isNil reports whether v is nil or holds a nil pointer, map, slice, func,
// chan or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func runtimeError(op fmt.Stringer, err error) error {
	var re *binding.RuntimeError
	if errors.As(err, &re) {
		return err
	}
	return &binding.RuntimeError{Op: op.String(), Err: err}
}

func runAll(c *Closure, nodes []Node, types []reflect.Type) ([]reflect.Value, error) {
	res := make([]reflect.Value, len(nodes))
	for i, n := range nodes {
		v, err := n.Run(c)
		if err != nil {
			return nil, err
		}
		res[i] = reflectValue(v, types[i])
	}
	return res, nil
}
