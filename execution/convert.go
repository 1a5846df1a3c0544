package execution

import (
	"fmt"
	"reflect"

	"github.com/signadot/dynexpr/binding"
)

// converter applies one resolved conversion to a run-time value.
type converter func(v any) (any, error)

// converterFor turns a conversion plan into a converter. Identity and
// interface conversions leave values untouched.
func converterFor(c *binding.Conversion) (converter, error) {
	from, to := c.From.Reflect(), c.To.Reflect()
	switch c.Kind {
	case binding.ConvIdentity, binding.ConvInterface:
		return func(v any) (any, error) { return v, nil }, nil

	case binding.ConvNil:
		return func(any) (any, error) { return nil, nil }, nil

	case binding.ConvNumeric, binding.ConvReflect:
		return func(v any) (res any, err error) {
			if v == nil {
				if c.To.CanBeNull() {
					return nil, nil
				}
				return nil, fmt.Errorf("%w: nil to %s", binding.ErrInvalidCast, c.To)
			}
			defer func() {
				if r := recover(); r != nil {
					res, err = nil, fmt.Errorf("%w: %v", binding.ErrInvalidCast, r)
				}
			}()
			return reflectValue(v, from).Convert(to).Interface(), nil
		}, nil

	case binding.ConvUpcast:
		return func(v any) (any, error) {
			if isNil(v) {
				return nil, nil
			}
			res, err := c.From.Upcast(reflectValue(v, from), c.To)
			if err != nil {
				return nil, err
			}
			return result(res), nil
		}, nil

	case binding.ConvWrap:
		return func(v any) (any, error) {
			if v == nil {
				return nil, nil
			}
			p := reflect.New(from)
			p.Elem().Set(reflectValue(v, from))
			return p.Interface(), nil
		}, nil

	case binding.ConvUnwrap:
		return func(v any) (any, error) {
			if isNil(v) {
				return nil, fmt.Errorf("%w: %s has no value", binding.ErrNilReference, c.From)
			}
			return reflect.ValueOf(v).Elem().Interface(), nil
		}, nil

	case binding.ConvAssert:
		return func(v any) (any, error) {
			if isNil(v) {
				if c.To.CanBeNull() {
					return nil, nil
				}
				return nil, fmt.Errorf("%w: nil is not %s", binding.ErrInvalidCast, c.To)
			}
			if rt := reflect.TypeOf(v); !rt.AssignableTo(to) {
				return nil, fmt.Errorf("%w: %s is not %s", binding.ErrInvalidCast, rt, c.To)
			}
			return v, nil
		}, nil

	case binding.ConvUser:
		var in, out converter
		var err error
		if c.In != nil {
			if in, err = converterFor(c.In); err != nil {
				return nil, err
			}
		}
		if c.Out != nil {
			if out, err = converterFor(c.Out); err != nil {
				return nil, err
			}
		}
		m := c.Member
		param := m.Params()[0]
		return func(v any) (any, error) {
			var err error
			if in != nil {
				if v, err = in(v); err != nil {
					return nil, err
				}
			}
			res, err := m.Invoke(reflect.Value{}, []reflect.Value{reflectValue(v, param)})
			if err != nil {
				return nil, err
			}
			v = result(res)
			if out != nil {
				return out(v)
			}
			return v, nil
		}, nil
	}
	return nil, fmt.Errorf("%w: conversion %s", binding.ErrInvalidOperation, c)
}

// convertNode converts its operand according to a resolved plan. Explicit
// nodes come from casts in the source tree; implicit ones are inserted for
// arguments, receivers and operands.
type convertNode struct {
	typed
	operand  Node
	plan     *binding.Conversion
	conv     converter
	explicit bool
}

func (n *convertNode) Run(c *Closure) (any, error) {
	v, err := n.operand.Run(c)
	if err != nil {
		return nil, err
	}
	res, err := n.conv(v)
	if err != nil {
		return nil, runtimeError(n, err)
	}
	return res, nil
}

func (n *convertNode) String() string {
	if !n.explicit {
		return n.operand.String()
	}
	return n.t.String() + "(" + n.operand.String() + ")"
}

// typeAsNode yields its operand as the target type, or nil. The operand's
// dynamic type is walked along its embedding chain, so a value of a derived
// type converts to its base. Value type targets produce a *T; when the
// dynamic type does not extend the target the explicit conversion plan, if
// any, is tried and a failure yields nil.
type typeAsNode struct {
	typed
	operand Node
	target  *binding.Type
	conv    converter
}

func (n *typeAsNode) Run(c *Closure) (any, error) {
	v, err := n.operand.Run(c)
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return nil, nil
	}
	rt := n.target.Reflect()
	rv, ok := binding.UpcastValue(reflect.ValueOf(v), rt)
	if !n.target.IsValueType() {
		if !ok {
			return nil, nil
		}
		return result(rv), nil
	}
	if !ok {
		if n.conv == nil {
			return nil, nil
		}
		res, err := n.conv(v)
		if err != nil || res == nil {
			return nil, nil
		}
		rv = reflectValue(res, rt)
	}
	p := reflect.New(rt)
	p.Elem().Set(rv)
	return p.Interface(), nil
}

func (n *typeAsNode) String() string {
	return "(" + n.operand.String() + " as " + n.target.String() + ")"
}

// typeIsNode reports whether the operand is non-nil and its dynamic type is
// or extends the target.
type typeIsNode struct {
	typed
	operand Node
	target  reflect.Type
}

func (n *typeIsNode) Run(c *Closure) (any, error) {
	v, err := n.operand.Run(c)
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return false, nil
	}
	return binding.Extends(reflect.TypeOf(v), n.target), nil
}

func (n *typeIsNode) String() string {
	return "(" + n.operand.String() + " is " + n.target.String() + ")"
}
