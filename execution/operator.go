package execution

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/expression"
)

func binaryString(l Node, op expression.BinaryOp, r Node) string {
	return "(" + l.String() + " " + op.String() + " " + r.String() + ")"
}

// arithNode applies an intrinsic numeric operator to operands already
// converted to its type.
type arithNode struct {
	typed
	op          expression.BinaryOp
	left, right Node
	fn          arithFunc
}

func (n *arithNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	rt := n.t.Reflect()
	res := reflect.New(rt).Elem()
	if err := n.fn(reflectValue(a, rt), reflectValue(b, rt), res); err != nil {
		return nil, runtimeError(n, err)
	}
	return res.Interface(), nil
}

func (n *arithNode) String() string { return binaryString(n.left, n.op, n.right) }

// powerNode raises float64 operands.
type powerNode struct {
	typed
	left, right Node
}

func (n *powerNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	return math.Pow(a.(float64), b.(float64)), nil
}

func (n *powerNode) String() string { return binaryString(n.left, expression.Power, n.right) }

type shiftNode struct {
	typed
	op          expression.BinaryOp
	left, right Node
	signedCount bool
}

func (n *shiftNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	bv := reflect.ValueOf(b)
	var count uint64
	if n.signedCount {
		if bv.Int() < 0 {
			return nil, runtimeError(n, fmt.Errorf("%w: negative shift count %d", binding.ErrInvalidOperation, bv.Int()))
		}
		count = uint64(bv.Int())
	} else {
		count = bv.Uint()
	}
	rt := n.t.Reflect()
	av := reflectValue(a, rt)
	res := reflect.New(rt).Elem()
	switch classOf(n.t.Code()) {
	case classSigned:
		if n.op == expression.LeftShift {
			res.SetInt(av.Int() << count)
		} else {
			res.SetInt(av.Int() >> count)
		}
	default:
		if n.op == expression.LeftShift {
			res.SetUint(av.Uint() << count)
		} else {
			res.SetUint(av.Uint() >> count)
		}
	}
	return res.Interface(), nil
}

func (n *shiftNode) String() string { return binaryString(n.left, n.op, n.right) }

// concatNode joins the text of two operands, at least one a string.
type concatNode struct {
	typed
	left, right Node
}

func (n *concatNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	var sb strings.Builder
	for _, v := range []any{a, b} {
		if v != nil {
			fmt.Fprint(&sb, v)
		}
	}
	return sb.String(), nil
}

func (n *concatNode) String() string { return binaryString(n.left, expression.Add, n.right) }

// compareNode orders operands of one numeric or string type.
type compareNode struct {
	typed
	op          expression.BinaryOp
	left, right Node
	operand     reflect.Type
	cmp         compareFunc
}

func (n *compareNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	r := n.cmp(reflectValue(a, n.operand), reflectValue(b, n.operand))
	switch n.op {
	case expression.LessThan:
		return r < 0, nil
	case expression.LessThanOrEqual:
		return r <= 0, nil
	case expression.GreaterThan:
		return r > 0, nil
	}
	return r >= 0, nil
}

func (n *compareNode) String() string { return binaryString(n.left, n.op, n.right) }

// equalNode compares operands of one type, or anything against nil.
type equalNode struct {
	typed
	negate      bool
	left, right Node
}

func (n *equalNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	eq, err := equal(a, b)
	if err != nil {
		return nil, runtimeError(n, err)
	}
	return eq != n.negate, nil
}

func (n *equalNode) String() string {
	op := expression.Equal
	if n.negate {
		op = expression.NotEqual
	}
	return binaryString(n.left, op, n.right)
}

func equal(a, b any) (bool, error) {
	if isNil(a) || isNil(b) {
		return isNil(a) == isNil(b), nil
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Type() != bv.Type() {
		return false, nil
	}
	if !av.Comparable() {
		return false, fmt.Errorf("%w: %s values are not comparable", binding.ErrInvalidOperation, av.Type())
	}
	return av.Equal(bv), nil
}

// logicalNode is the short-circuit && or ||.
type logicalNode struct {
	typed
	and         bool
	left, right Node
}

func (n *logicalNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	if reflect.ValueOf(a).Bool() != n.and {
		return !n.and, nil
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	return reflect.ValueOf(b).Bool(), nil
}

func (n *logicalNode) String() string {
	if n.and {
		return binaryString(n.left, expression.AndAlso, n.right)
	}
	return binaryString(n.left, expression.OrElse, n.right)
}

// boolNode is a non short-circuit &, | or ^ over bools.
type boolNode struct {
	typed
	op          expression.BinaryOp
	left, right Node
}

func (n *boolNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	b, err := n.right.Run(c)
	if err != nil {
		return nil, err
	}
	x, y := reflect.ValueOf(a).Bool(), reflect.ValueOf(b).Bool()
	var r bool
	switch n.op {
	case expression.And:
		r = x && y
	case expression.Or:
		r = x || y
	default:
		r = x != y
	}
	return reflect.ValueOf(r).Convert(n.t.Reflect()).Interface(), nil
}

func (n *boolNode) String() string { return binaryString(n.left, n.op, n.right) }

// coalesceNode yields left unless it is nil, else right. With unwrap, a
// non-nil pointer on the left is dereferenced.
type coalesceNode struct {
	typed
	left, right Node
	unwrap      bool
}

func (n *coalesceNode) Run(c *Closure) (any, error) {
	a, err := n.left.Run(c)
	if err != nil {
		return nil, err
	}
	if !isNil(a) {
		if n.unwrap {
			return reflect.ValueOf(a).Elem().Interface(), nil
		}
		return a, nil
	}
	return n.right.Run(c)
}

func (n *coalesceNode) String() string { return binaryString(n.left, expression.Coalesce, n.right) }

// unaryNode applies an intrinsic unary operator.
type unaryNode struct {
	typed
	op      expression.UnaryOp
	operand Node
	fn      func(v, res reflect.Value)
}

func (n *unaryNode) Run(c *Closure) (any, error) {
	v, err := n.operand.Run(c)
	if err != nil {
		return nil, err
	}
	rt := n.t.Reflect()
	res := reflect.New(rt).Elem()
	n.fn(reflectValue(v, rt), res)
	return res.Interface(), nil
}

func (n *unaryNode) String() string { return n.op.String() + n.operand.String() }

func unaryFunc(op expression.UnaryOp, t *binding.Type) func(v, res reflect.Value) {
	c := t.Code()
	switch op {
	case expression.Not:
		if c != binding.CodeBool {
			return nil
		}
		return func(v, res reflect.Value) { res.SetBool(!v.Bool()) }
	case expression.Negate:
		if !c.IsNumber() {
			return nil
		}
		switch classOf(c) {
		case classSigned:
			return func(v, res reflect.Value) { res.SetInt(-v.Int()) }
		case classUnsigned:
			return func(v, res reflect.Value) { res.SetUint(-v.Uint()) }
		}
		return func(v, res reflect.Value) { res.SetFloat(-v.Float()) }
	case expression.Complement:
		switch {
		case c.IsSigned():
			return func(v, res reflect.Value) { res.SetInt(^v.Int()) }
		case c.IsUnsigned():
			return func(v, res reflect.Value) { res.SetUint(^v.Uint()) }
		}
		return nil
	case expression.UnaryPlus:
		if !c.IsNumber() {
			return nil
		}
		return func(v, res reflect.Value) { res.Set(v) }
	}
	return nil
}

type conditionalNode struct {
	typed
	test, ifTrue, ifFalse Node
}

func (n *conditionalNode) Run(c *Closure) (any, error) {
	t, err := n.test.Run(c)
	if err != nil {
		return nil, err
	}
	if reflect.ValueOf(t).Bool() {
		return n.ifTrue.Run(c)
	}
	return n.ifFalse.Run(c)
}

func (n *conditionalNode) String() string {
	return "(" + n.test.String() + " ? " + n.ifTrue.String() + " : " + n.ifFalse.String() + ")"
}
