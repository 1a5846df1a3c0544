package execution

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/signadot/dynexpr/binding"
)

type constantNode struct {
	typed
	value any
}

func (n *constantNode) Run(*Closure) (any, error) { return n.value, nil }

func (n *constantNode) String() string {
	switch v := n.value.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	}
	return fmt.Sprint(n.value)
}

// closureConstantNode reads a constant captured by the closure.
type closureConstantNode struct {
	typed
	index int
	name  string
}

func (n *closureConstantNode) Run(c *Closure) (any, error) {
	if n.index >= len(c.Constants) {
		return nil, &binding.RuntimeError{Op: n.String(), Err: fmt.Errorf("%w: closure has %d constant(s)", binding.ErrInvalidArgument, len(c.Constants))}
	}
	return c.Constants[n.index], nil
}

func (n *closureConstantNode) String() string { return n.name }

type parameterNode struct {
	typed
	index int
	name  string
}

func (n *parameterNode) Run(c *Closure) (any, error) {
	if n.index >= len(c.Parameters) {
		return nil, &binding.RuntimeError{Op: n.name, Err: fmt.Errorf("%w: closure has %d parameter(s)", binding.ErrInvalidArgument, len(c.Parameters))}
	}
	v := c.Parameters[n.index]
	if v == nil {
		if !n.t.CanBeNull() {
			return nil, &binding.RuntimeError{Op: n.name, Err: fmt.Errorf("%w: nil for %s", binding.ErrInvalidCast, n.t)}
		}
		return nil, nil
	}
	if rt := reflect.TypeOf(v); rt != n.t.Reflect() && !rt.AssignableTo(n.t.Reflect()) {
		return nil, &binding.RuntimeError{Op: n.name, Err: fmt.Errorf("%w: %s is not %s", binding.ErrInvalidCast, rt, n.t)}
	}
	return v, nil
}

func (n *parameterNode) String() string { return n.name }
