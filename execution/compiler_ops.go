package execution

import (
	"fmt"

	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/expression"
)

var unaryOperators = map[expression.UnaryOp]binding.OperatorKind{
	expression.Negate:    binding.OpUnaryNegation,
	expression.UnaryPlus: binding.OpUnaryPlus,
}

var binaryOperators = map[expression.BinaryOp]binding.OperatorKind{
	expression.Add:                binding.OpAddition,
	expression.Subtract:           binding.OpSubtraction,
	expression.Multiply:           binding.OpMultiply,
	expression.Divide:             binding.OpDivision,
	expression.Modulo:             binding.OpModulus,
	expression.Equal:              binding.OpEquality,
	expression.NotEqual:           binding.OpInequality,
	expression.GreaterThan:        binding.OpGreaterThan,
	expression.GreaterThanOrEqual: binding.OpGreaterThanOrEqual,
	expression.LessThan:           binding.OpLessThan,
	expression.LessThanOrEqual:    binding.OpLessThanOrEqual,
	expression.And:                binding.OpBitwiseAnd,
	expression.Or:                 binding.OpBitwiseOr,
}

// declares reports whether any operand type, or one of its ancestors,
// declares overloads of kind. Declared overloads replace the intrinsic
// operator for such operands.
func declares(kind binding.OperatorKind, args ...binding.Arg) bool {
	for _, a := range args {
		if a.Type == nil {
			continue
		}
		for _, b := range a.Type.BaseTypes() {
			if len(b.Operators(kind)) > 0 {
				return true
			}
		}
	}
	return false
}

func (c *compiler) operatorCall(m *binding.Member, symbol string, ops []operand) (operand, error) {
	iv, err := c.bindArgs(m, ops, false)
	if err != nil {
		return operand{}, err
	}
	t, err := c.resultType(m)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&operatorCallNode{typed: typed{t}, invoker: iv, symbol: symbol})
}

// fold evaluates a node whose operands are all untyped literals. The result
// stays untyped.
func (c *compiler) fold(n Node) (operand, error) {
	v, err := n.Run(&Closure{})
	if err != nil {
		return operand{}, err
	}
	t := n.Type()
	return operand{
		node: &constantNode{typed: typed{t}, value: v},
		arg:  binding.Arg{Type: t, Literal: v, Untyped: true},
	}, nil
}

func invalidOperator(op fmt.Stringer, ts ...*binding.Type) error {
	if len(ts) == 1 {
		return fmt.Errorf("%w: operator %s not defined on %s", binding.ErrInvalidOperation, op, ts[0])
	}
	return fmt.Errorf("%w: operator %s not defined on %s and %s", binding.ErrInvalidOperation, op, ts[0], ts[1])
}

func (c *compiler) unary(x *expression.Unary) (operand, error) {
	op, err := c.compile(x.Operand)
	if err != nil {
		return operand{}, err
	}
	if op.arg.Type == nil {
		return operand{}, fmt.Errorf("%w: operator %s on nil", binding.ErrInvalidOperation, x.Op)
	}
	if kind, ok := unaryOperators[x.Op]; ok && declares(kind, op.arg) {
		m, err := c.reg.ResolveOperator(kind, op.arg)
		if err != nil {
			return operand{}, err
		}
		return c.operatorCall(m, x.Op.String(), []operand{op})
	}
	t := op.arg.Type
	fn := unaryFunc(x.Op, t)
	if fn == nil {
		return operand{}, invalidOperator(x.Op, t)
	}
	n := &unaryNode{typed: typed{t}, op: x.Op, operand: op.node, fn: fn}
	if op.arg.Untyped {
		return c.fold(n)
	}
	return typedOperand(n)
}

func (c *compiler) binary(x *expression.Binary) (operand, error) {
	l, err := c.compile(x.Left)
	if err != nil {
		return operand{}, err
	}
	r, err := c.compile(x.Right)
	if err != nil {
		return operand{}, err
	}
	switch x.Op {
	case expression.AndAlso, expression.OrElse:
		ln, err := c.convert(l, c.boolType, false)
		if err != nil {
			return operand{}, err
		}
		rn, err := c.convert(r, c.boolType, false)
		if err != nil {
			return operand{}, err
		}
		return typedOperand(&logicalNode{typed: typed{c.boolType}, and: x.Op == expression.AndAlso, left: ln, right: rn})
	case expression.Coalesce:
		return c.coalesce(l, r)
	}
	if kind, ok := binaryOperators[x.Op]; ok && declares(kind, l.arg, r.arg) {
		m, err := c.reg.ResolveOperator(kind, l.arg, r.arg)
		if err != nil {
			return operand{}, err
		}
		return c.operatorCall(m, x.Op.String(), []operand{l, r})
	}
	res, err := c.intrinsic(x.Op, l, r)
	if err != nil {
		return operand{}, err
	}
	if l.arg.Untyped && r.arg.Untyped && !x.Op.IsComparison() {
		return c.fold(res.node)
	}
	return res, nil
}

// adapt gives an untyped literal the type of the other, typed, operand when
// the literal fits it.
func (c *compiler) adapt(l, r operand) (operand, operand) {
	switch {
	case l.arg.Untyped && !r.arg.Untyped && r.arg.Type != nil:
		l = retype(l, r.arg.Type)
	case r.arg.Untyped && !l.arg.Untyped && l.arg.Type != nil:
		r = retype(r, l.arg.Type)
	}
	return l, r
}

func retype(op operand, t *binding.Type) operand {
	if t.IsInterface() {
		return op
	}
	v, ok := binding.ConvertLiteral(op.arg.Literal, t.Reflect())
	if !ok {
		return op
	}
	return operand{node: &constantNode{typed: typed{t}, value: v.Interface()}, arg: binding.ArgOf(t)}
}

// numeric converts both operands to their promoted numeric type.
func (c *compiler) numeric(l, r operand) (*binding.Type, Node, Node, error) {
	lt, rt := l.arg.Type, r.arg.Type
	if !lt.IsNumber() || !rt.IsNumber() {
		return nil, nil, nil, fmt.Errorf("%w: %s and %s are not both numeric", binding.ErrInvalidOperation, lt, rt)
	}
	t, err := promote(c.reg, lt, rt)
	if err != nil {
		return nil, nil, nil, err
	}
	return c.both(t, l, r)
}

// same converts one operand to the type of the other, whichever way
// converts implicitly.
func (c *compiler) same(l, r operand) (*binding.Type, Node, Node, error) {
	lt, rt := l.arg.Type, r.arg.Type
	switch {
	case lt == rt:
		return lt, l.node, r.node, nil
	case c.reg.ConversionCost(lt, rt, false).Implicit():
		return c.both(rt, l, r)
	case c.reg.ConversionCost(rt, lt, false).Implicit():
		return c.both(lt, l, r)
	}
	return nil, nil, nil, fmt.Errorf("%w: mismatched types %s and %s", binding.ErrInvalidOperation, lt, rt)
}

func (c *compiler) both(t *binding.Type, l, r operand) (*binding.Type, Node, Node, error) {
	ln, err := c.convert(l, t, false)
	if err != nil {
		return nil, nil, nil, err
	}
	rn, err := c.convert(r, t, false)
	if err != nil {
		return nil, nil, nil, err
	}
	return t, ln, rn, nil
}

func (c *compiler) intrinsic(op expression.BinaryOp, l, r operand) (operand, error) {
	if op == expression.Equal || op == expression.NotEqual {
		return c.equality(op, l, r)
	}
	if l.arg.Type == nil || r.arg.Type == nil {
		return operand{}, fmt.Errorf("%w: operator %s on nil", binding.ErrInvalidOperation, op)
	}
	l, r = c.adapt(l, r)
	lt, rt := l.arg.Type, r.arg.Type
	switch op {
	case expression.Add, expression.Subtract, expression.Multiply, expression.Divide, expression.Modulo:
		if op == expression.Add && (lt.Code() == binding.CodeString || rt.Code() == binding.CodeString) {
			return typedOperand(&concatNode{typed: typed{c.stringType}, left: l.node, right: r.node})
		}
		return c.arith(op, l, r)

	case expression.Power:
		if !lt.IsNumber() || !rt.IsNumber() {
			return operand{}, invalidOperator(op, lt, rt)
		}
		ln, err := c.convert(l, c.float64Type, true)
		if err != nil {
			return operand{}, err
		}
		rn, err := c.convert(r, c.float64Type, true)
		if err != nil {
			return operand{}, err
		}
		return typedOperand(&powerNode{typed: typed{c.float64Type}, left: ln, right: rn})

	case expression.And, expression.Or, expression.ExclusiveOr:
		if lt.Code() == binding.CodeBool && rt.Code() == binding.CodeBool {
			t, ln, rn, err := c.same(l, r)
			if err != nil {
				return operand{}, err
			}
			return typedOperand(&boolNode{typed: typed{t}, op: op, left: ln, right: rn})
		}
		return c.arith(op, l, r)

	case expression.LeftShift, expression.RightShift:
		if !lt.Code().IsInteger() || !rt.Code().IsInteger() {
			return operand{}, invalidOperator(op, lt, rt)
		}
		return typedOperand(&shiftNode{typed: typed{lt}, op: op, left: l.node, right: r.node, signedCount: rt.Code().IsSigned()})

	case expression.LessThan, expression.LessThanOrEqual, expression.GreaterThan, expression.GreaterThanOrEqual:
		var (
			t      *binding.Type
			ln, rn Node
			err    error
		)
		if lt.IsNumber() && rt.IsNumber() {
			t, ln, rn, err = c.numeric(l, r)
		} else {
			t, ln, rn, err = c.same(l, r)
		}
		if err != nil {
			return operand{}, err
		}
		cmp := comparer(t)
		if cmp == nil {
			return operand{}, invalidOperator(op, t)
		}
		return typedOperand(&compareNode{typed: typed{c.boolType}, op: op, left: ln, right: rn, operand: t.Reflect(), cmp: cmp})
	}
	return operand{}, invalidOperator(op, lt, rt)
}

func (c *compiler) arith(op expression.BinaryOp, l, r operand) (operand, error) {
	t, ln, rn, err := c.numeric(l, r)
	if err != nil {
		return operand{}, err
	}
	fn := arithmetic(op, t.Code())
	if fn == nil {
		return operand{}, invalidOperator(op, t)
	}
	return typedOperand(&arithNode{typed: typed{t}, op: op, left: ln, right: rn, fn: fn})
}

func (c *compiler) equality(op expression.BinaryOp, l, r operand) (operand, error) {
	switch lt, rt := l.arg.Type, r.arg.Type; {
	case lt == nil && rt == nil:
	case lt == nil:
		if !rt.CanBeNull() {
			return operand{}, invalidOperator(op, c.anyType, rt)
		}
	case rt == nil:
		if !lt.CanBeNull() {
			return operand{}, invalidOperator(op, lt, c.anyType)
		}
	default:
		l, r = c.adapt(l, r)
		var err error
		if l.arg.Type.IsNumber() && r.arg.Type.IsNumber() {
			_, l.node, r.node, err = c.numeric(l, r)
		} else {
			_, l.node, r.node, err = c.same(l, r)
		}
		if err != nil {
			return operand{}, err
		}
	}
	return typedOperand(&equalNode{typed: typed{c.boolType}, negate: op == expression.NotEqual, left: l.node, right: r.node})
}

// coalesce compiles l ?? r. A nullable *T on the left with a T on the right
// yields T.
func (c *compiler) coalesce(l, r operand) (operand, error) {
	lt := l.arg.Type
	if lt == nil {
		return r, nil
	}
	if !lt.CanBeNull() {
		return operand{}, fmt.Errorf("%w: left operand of ?? cannot be nil: %s", binding.ErrInvalidOperation, lt)
	}
	if u := lt.UnderlyingType(); lt.IsNullable() && u != nil && u != lt && r.arg.Type != nil && r.arg.Type != lt {
		if rn, err := c.convert(r, u, false); err == nil {
			return typedOperand(&coalesceNode{typed: typed{u}, left: l.node, right: rn, unwrap: true})
		}
	}
	rn, err := c.convert(r, lt, false)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&coalesceNode{typed: typed{lt}, left: l.node, right: rn})
}

func (c *compiler) conditional(x *expression.Conditional) (operand, error) {
	test, err := c.compile(x.Test)
	if err != nil {
		return operand{}, err
	}
	tn, err := c.convert(test, c.boolType, false)
	if err != nil {
		return operand{}, err
	}
	a, err := c.compile(x.IfTrue)
	if err != nil {
		return operand{}, err
	}
	b, err := c.compile(x.IfFalse)
	if err != nil {
		return operand{}, err
	}
	t, an, bn, err := c.unify(a, b)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&conditionalNode{typed: typed{t}, test: tn, ifTrue: an, ifFalse: bn})
}

// unify picks the common type of two branches.
func (c *compiler) unify(a, b operand) (*binding.Type, Node, Node, error) {
	switch at, bt := a.arg.Type, b.arg.Type; {
	case at == nil && bt == nil:
		return c.anyType, a.node, b.node, nil
	case at == nil:
		if !bt.CanBeNull() {
			return nil, nil, nil, fmt.Errorf("%w: branches nil and %s", binding.ErrInvalidOperation, bt)
		}
		return bt, &constantNode{typed: typed{bt}}, b.node, nil
	case bt == nil:
		if !at.CanBeNull() {
			return nil, nil, nil, fmt.Errorf("%w: branches %s and nil", binding.ErrInvalidOperation, at)
		}
		return at, a.node, &constantNode{typed: typed{at}}, nil
	}
	a, b = c.adapt(a, b)
	if a.arg.Type.IsNumber() && b.arg.Type.IsNumber() {
		return c.numeric(a, b)
	}
	return c.same(a, b)
}
