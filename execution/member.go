package execution

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/signadot/dynexpr/binding"
)

// invoker evaluates the arguments of a resolved member and calls it.
type invoker struct {
	m     *binding.Member
	args  []Node
	types []reflect.Type // static type of each argument value
	// spread expands a slice passed in the variadic position
	spread bool
}

func (iv *invoker) values(c *Closure) ([]reflect.Value, error) {
	vals, err := runAll(c, iv.args, iv.types)
	if err != nil {
		return nil, err
	}
	if iv.spread && len(vals) > 0 {
		last := vals[len(vals)-1]
		vals = vals[:len(vals)-1]
		for i := range last.Len() {
			vals = append(vals, last.Index(i))
		}
	}
	return vals, nil
}

func (iv *invoker) call(c *Closure, recv reflect.Value, op fmt.Stringer) (any, error) {
	args, err := iv.values(c)
	if err != nil {
		return nil, err
	}
	out, err := iv.m.Invoke(recv, args)
	if err != nil {
		return nil, runtimeError(op, err)
	}
	return result(out), nil
}

func argString(args []Node) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

type methodCallNode struct {
	typed
	invoker
	recv     Node
	recvType reflect.Type
}

func (n *methodCallNode) Run(c *Closure) (any, error) {
	r, err := n.recv.Run(c)
	if err != nil {
		return nil, err
	}
	if r == nil && n.recvType.Kind() != reflect.Pointer {
		return nil, &binding.RuntimeError{Op: n.String(), Err: binding.ErrNilReference}
	}
	return n.call(c, reflectValue(r, n.recvType), n)
}

func (n *methodCallNode) String() string {
	return n.recv.String() + "." + n.m.Name() + "(" + argString(n.args) + ")"
}

type staticCallNode struct {
	typed
	invoker
}

func (n *staticCallNode) Run(c *Closure) (any, error) {
	return n.call(c, reflect.Value{}, n)
}

func (n *staticCallNode) String() string {
	return n.m.DeclaringType().Name() + "." + n.m.Name() + "(" + argString(n.args) + ")"
}

// operatorCallNode calls a declared operator overload.
type operatorCallNode struct {
	typed
	invoker
	symbol string
}

func (n *operatorCallNode) Run(c *Closure) (any, error) {
	return n.call(c, reflect.Value{}, n)
}

func (n *operatorCallNode) String() string {
	if len(n.args) == 1 {
		return n.symbol + n.args[0].String()
	}
	return "(" + n.args[0].String() + " " + n.symbol + " " + n.args[1].String() + ")"
}

type constructorNode struct {
	typed
	invoker
}

func (n *constructorNode) Run(c *Closure) (any, error) {
	return n.call(c, reflect.Value{}, n)
}

func (n *constructorNode) String() string {
	return "new " + n.m.DeclaringType().Name() + "(" + argString(n.args) + ")"
}

type indexerNode struct {
	typed
	invoker
	recv     Node
	recvType reflect.Type
}

func (n *indexerNode) Run(c *Closure) (any, error) {
	r, err := n.recv.Run(c)
	if err != nil {
		return nil, err
	}
	return n.call(c, reflectValue(r, n.recvType), n)
}

func (n *indexerNode) String() string {
	return n.recv.String() + "[" + argString(n.args) + "]"
}

type fieldNode struct {
	typed
	m        *binding.Member
	recv     Node
	recvType reflect.Type
}

func (n *fieldNode) Run(c *Closure) (any, error) {
	r, err := n.recv.Run(c)
	if err != nil {
		return nil, err
	}
	v, err := n.m.Get(reflectValue(r, n.recvType))
	if err != nil {
		return nil, runtimeError(n, err)
	}
	return result(v), nil
}

func (n *fieldNode) String() string { return n.recv.String() + "." + n.m.Name() }

type staticFieldNode struct {
	typed
	m *binding.Member
}

func (n *staticFieldNode) Run(*Closure) (any, error) {
	v, err := n.m.Get(reflect.Value{})
	if err != nil {
		return nil, runtimeError(n, err)
	}
	return result(v), nil
}

func (n *staticFieldNode) String() string {
	return n.m.DeclaringType().Name() + "." + n.m.Name()
}

// funcInvokeNode calls a func value.
type funcInvokeNode struct {
	typed
	fn           Node
	fnType       reflect.Type
	args         []Node
	types        []reflect.Type
	returnsError bool
	// spread passes the last argument as the variadic slice
	spread bool
}

func (n *funcInvokeNode) Run(c *Closure) (res any, err error) {
	f, err := n.fn.Run(c)
	if err != nil {
		return nil, err
	}
	if isNil(f) {
		return nil, &binding.RuntimeError{Op: n.String(), Err: binding.ErrNilReference}
	}
	args, err := runAll(c, n.args, n.types)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, &binding.RuntimeError{Op: n.String(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	fv := reflectValue(f, n.fnType)
	var out []reflect.Value
	if n.spread {
		out = fv.CallSlice(args)
	} else {
		out = fv.Call(args)
	}
	if n.returnsError {
		if e := out[len(out)-1]; !e.IsNil() {
			return nil, runtimeError(n, e.Interface().(error))
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return nil, nil
	}
	return result(out[0]), nil
}

func (n *funcInvokeNode) String() string {
	return n.fn.String() + "(" + argString(n.args) + ")"
}

// indexNode indexes slices, arrays, strings and maps.
type indexNode struct {
	typed
	recv     Node
	index    Node
	recvType reflect.Type
	keyType  reflect.Type
}

func (n *indexNode) Run(c *Closure) (any, error) {
	r, err := n.recv.Run(c)
	if err != nil {
		return nil, err
	}
	k, err := n.index.Run(c)
	if err != nil {
		return nil, err
	}
	rv := reflectValue(r, n.recvType)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, &binding.RuntimeError{Op: n.String(), Err: binding.ErrNilReference}
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map {
		v := rv.MapIndex(reflectValue(k, n.keyType))
		if !v.IsValid() {
			return result(reflect.Zero(n.t.Reflect())), nil
		}
		return result(v), nil
	}
	i := reflect.ValueOf(k).Int()
	if i < 0 || int(i) >= rv.Len() {
		return nil, &binding.RuntimeError{Op: n.String(), Err: fmt.Errorf("%w: index %d out of range [0:%d]", binding.ErrInvalidOperation, i, rv.Len())}
	}
	return result(rv.Index(int(i))), nil
}

func (n *indexNode) String() string {
	return n.recv.String() + "[" + n.index.String() + "]"
}
