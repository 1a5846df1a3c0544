// Package frontend parses source text into expression trees.
//
// Source is read with the expr-lang/expr parser; only the syntax with a
// counterpart in package expression is accepted. Identifiers resolve to the
// parameters and named types of an Env.
//
// Besides the usual operators, a few calls have fixed meanings:
//
//	int(x), float(x), string(x)        casts to int, float64 and string
//	cast(x, "T")                       cast to T
//	asType(x, "T"), isType(x, "T")     type-as and type-is tests
//	default("T")                       the zero value of T
//	T(args...)                         constructor of a named type
//	T.Name, T.Method(args...)          static members
//	bitand, bitor, bitxor, bitshl,
//	bitshr, bitnot                     bitwise operators
package frontend

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/signadot/dynexpr/debug"
	"github.com/signadot/dynexpr/expression"
)

var (
	ErrUnsupported = errors.New("unsupported syntax")
	ErrUndefined   = errors.New("undefined name")
)

// Env names what source text can refer to.
type Env struct {
	Parameters []*expression.Parameter
	Types      map[string]reflect.Type
}

var predeclared = map[string]reflect.Type{
	"bool":    reflect.TypeFor[bool](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"float32": reflect.TypeFor[float32](),
	"float64": reflect.TypeFor[float64](),
	"string":  reflect.TypeFor[string](),
	"byte":    reflect.TypeFor[byte](),
	"rune":    reflect.TypeFor[rune](),
	"any":     reflect.TypeFor[any](),
	"error":   reflect.TypeFor[error](),
}

// LookupType finds a named type of env, then a predeclared one.
func (env *Env) LookupType(name string) (reflect.Type, bool) {
	if t, ok := env.Types[name]; ok {
		return t, true
	}
	t, ok := predeclared[name]
	return t, ok
}

func (env *Env) param(name string) *expression.Parameter {
	for _, p := range env.Parameters {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Parse parses src into an expression tree over env.
func Parse(src string, env *Env) (expression.Node, error) {
	if env == nil {
		env = &Env{}
	}
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	res, err := (&converter{env: env}).node(tree.Node)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", src, err)
	}
	if debug.Compile() {
		debug.Logf("parse: %q -> %s\n", src, res)
	}
	return res, nil
}

type converter struct {
	env *Env
}

var unaryOps = map[string]expression.UnaryOp{
	"-":   expression.Negate,
	"+":   expression.UnaryPlus,
	"!":   expression.Not,
	"not": expression.Not,
}

var binaryOps = map[string]expression.BinaryOp{
	"+":   expression.Add,
	"-":   expression.Subtract,
	"*":   expression.Multiply,
	"/":   expression.Divide,
	"%":   expression.Modulo,
	"**":  expression.Power,
	"^":   expression.Power,
	"==":  expression.Equal,
	"!=":  expression.NotEqual,
	"<":   expression.LessThan,
	"<=":  expression.LessThanOrEqual,
	">":   expression.GreaterThan,
	">=":  expression.GreaterThanOrEqual,
	"&&":  expression.AndAlso,
	"and": expression.AndAlso,
	"||":  expression.OrElse,
	"or":  expression.OrElse,
	"??":  expression.Coalesce,
}

var bitOps = map[string]expression.BinaryOp{
	"bitand": expression.And,
	"bitor":  expression.Or,
	"bitxor": expression.ExclusiveOr,
	"bitshl": expression.LeftShift,
	"bitshr": expression.RightShift,
}

var casts = map[string]reflect.Type{
	"int":    reflect.TypeFor[int](),
	"float":  reflect.TypeFor[float64](),
	"string": reflect.TypeFor[string](),
}

func unsupported(what string, n ast.Node) error {
	return fmt.Errorf("%w: %s %s", ErrUnsupported, what, n.String())
}

func (c *converter) node(n ast.Node) (expression.Node, error) {
	switch x := n.(type) {
	case *ast.NilNode:
		return expression.Const(nil), nil
	case *ast.IntegerNode:
		return expression.Literal(x.Value), nil
	case *ast.FloatNode:
		return expression.Literal(x.Value), nil
	case *ast.BoolNode:
		return expression.Literal(x.Value), nil
	case *ast.StringNode:
		return expression.Literal(x.Value), nil
	case *ast.ConstantNode:
		return expression.Const(x.Value), nil
	case *ast.IdentifierNode:
		if p := c.env.param(x.Value); p != nil {
			return p, nil
		}
		if _, ok := c.env.LookupType(x.Value); ok {
			return nil, fmt.Errorf("%w: type %s used as a value", ErrUnsupported, x.Value)
		}
		return nil, fmt.Errorf("%w: %s", ErrUndefined, x.Value)
	case *ast.UnaryNode:
		op, ok := unaryOps[x.Operator]
		if !ok {
			return nil, unsupported("operator", n)
		}
		operand, err := c.node(x.Node)
		if err != nil {
			return nil, err
		}
		return &expression.Unary{Op: op, Operand: operand}, nil
	case *ast.BinaryNode:
		op, ok := binaryOps[x.Operator]
		if !ok {
			return nil, unsupported("operator", n)
		}
		return c.binary(op, x.Left, x.Right)
	case *ast.ConditionalNode:
		nodes, err := c.nodes([]ast.Node{x.Cond, x.Exp1, x.Exp2})
		if err != nil {
			return nil, err
		}
		return &expression.Conditional{Test: nodes[0], IfTrue: nodes[1], IfFalse: nodes[2]}, nil
	case *ast.ChainNode:
		return c.node(x.Node)
	case *ast.MemberNode:
		return c.member(x)
	case *ast.CallNode:
		return c.call(x)
	case *ast.BuiltinNode:
		return c.builtin(x)
	case *ast.ArrayNode:
		elems, err := c.nodes(x.Nodes)
		if err != nil {
			return nil, err
		}
		return &expression.NewArray{ElemType: reflect.TypeFor[any](), Elements: elems}, nil
	}
	return nil, unsupported("expression", n)
}

func (c *converter) nodes(ns []ast.Node) ([]expression.Node, error) {
	res := make([]expression.Node, len(ns))
	for i, n := range ns {
		e, err := c.node(n)
		if err != nil {
			return nil, err
		}
		res[i] = e
	}
	return res, nil
}

func (c *converter) binary(op expression.BinaryOp, l, r ast.Node) (expression.Node, error) {
	left, err := c.node(l)
	if err != nil {
		return nil, err
	}
	right, err := c.node(r)
	if err != nil {
		return nil, err
	}
	return &expression.Binary{Op: op, Left: left, Right: right}, nil
}

// staticType reports whether n names a type rather than a parameter.
func (c *converter) staticType(n ast.Node) (reflect.Type, bool) {
	id, ok := n.(*ast.IdentifierNode)
	if !ok || c.env.param(id.Value) != nil {
		return nil, false
	}
	return c.env.LookupType(id.Value)
}

func (c *converter) member(x *ast.MemberNode) (expression.Node, error) {
	if x.Optional {
		return nil, unsupported("optional chaining", x)
	}
	name, isName := x.Property.(*ast.StringNode)
	if t, ok := c.staticType(x.Node); ok {
		if !isName {
			return nil, unsupported("index of a type", x)
		}
		return &expression.Member{Type: t, Name: name.Value}, nil
	}
	target, err := c.node(x.Node)
	if err != nil {
		return nil, err
	}
	if isName {
		return &expression.Member{Target: target, Name: name.Value}, nil
	}
	index, err := c.node(x.Property)
	if err != nil {
		return nil, err
	}
	return &expression.Index{Target: target, Arguments: []expression.Node{index}}, nil
}

func (c *converter) call(x *ast.CallNode) (expression.Node, error) {
	switch callee := x.Callee.(type) {
	case *ast.IdentifierNode:
		return c.namedCall(callee.Value, x)
	case *ast.MemberNode:
		name, ok := callee.Property.(*ast.StringNode)
		if !ok || callee.Optional {
			break
		}
		args, err := c.nodes(x.Arguments)
		if err != nil {
			return nil, err
		}
		if t, ok := c.staticType(callee.Node); ok {
			return &expression.Call{Type: t, Method: name.Value, Arguments: args}, nil
		}
		target, err := c.node(callee.Node)
		if err != nil {
			return nil, err
		}
		return &expression.Call{Target: target, Method: name.Value, Arguments: args}, nil
	}
	fn, err := c.node(x.Callee)
	if err != nil {
		return nil, err
	}
	args, err := c.nodes(x.Arguments)
	if err != nil {
		return nil, err
	}
	return &expression.Invoke{Func: fn, Arguments: args}, nil
}

// typeArg reads the quoted type name argument of cast, asType, isType and
// default.
func (c *converter) typeArg(fn string, n ast.Node) (reflect.Type, error) {
	s, ok := n.(*ast.StringNode)
	if !ok {
		return nil, fmt.Errorf("%w: %s wants a quoted type name, got %s", ErrUnsupported, fn, n.String())
	}
	t, ok := c.env.LookupType(s.Value)
	if !ok {
		return nil, fmt.Errorf("%w: type %s", ErrUndefined, s.Value)
	}
	return t, nil
}

func (c *converter) namedCall(name string, x *ast.CallNode) (expression.Node, error) {
	if p := c.env.param(name); p != nil {
		args, err := c.nodes(x.Arguments)
		if err != nil {
			return nil, err
		}
		return &expression.Invoke{Func: p, Arguments: args}, nil
	}
	switch name {
	case "cast", "asType", "isType":
		if len(x.Arguments) != 2 {
			return nil, fmt.Errorf("%w: %s takes a value and a type name", ErrUnsupported, name)
		}
		operand, err := c.node(x.Arguments[0])
		if err != nil {
			return nil, err
		}
		t, err := c.typeArg(name, x.Arguments[1])
		if err != nil {
			return nil, err
		}
		switch name {
		case "cast":
			return &expression.Convert{Operand: operand, Type: t}, nil
		case "asType":
			return &expression.TypeAs{Operand: operand, Type: t}, nil
		}
		return &expression.TypeIs{Operand: operand, Type: t}, nil
	case "default":
		if len(x.Arguments) != 1 {
			return nil, fmt.Errorf("%w: default takes a type name", ErrUnsupported)
		}
		t, err := c.typeArg(name, x.Arguments[0])
		if err != nil {
			return nil, err
		}
		return &expression.Default{Type: t}, nil
	}
	if t, ok := c.env.LookupType(name); ok {
		args, err := c.nodes(x.Arguments)
		if err != nil {
			return nil, err
		}
		return &expression.New{Type: t, Arguments: args}, nil
	}
	return nil, fmt.Errorf("%w: func %s", ErrUndefined, name)
}

func (c *converter) builtin(x *ast.BuiltinNode) (expression.Node, error) {
	if t, ok := casts[x.Name]; ok {
		if len(x.Arguments) != 1 {
			return nil, fmt.Errorf("%w: %s takes one argument", ErrUnsupported, x.Name)
		}
		operand, err := c.node(x.Arguments[0])
		if err != nil {
			return nil, err
		}
		return &expression.Convert{Operand: operand, Type: t}, nil
	}
	if op, ok := bitOps[x.Name]; ok {
		if len(x.Arguments) != 2 {
			return nil, fmt.Errorf("%w: %s takes two arguments", ErrUnsupported, x.Name)
		}
		return c.binary(op, x.Arguments[0], x.Arguments[1])
	}
	if x.Name == "bitnot" && len(x.Arguments) == 1 {
		operand, err := c.node(x.Arguments[0])
		if err != nil {
			return nil, err
		}
		return &expression.Unary{Op: expression.Complement, Operand: operand}, nil
	}
	return nil, unsupported("builtin", x)
}
