package expression

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type Node interface {
	Kind() Kind
	String() string
}

// Constant is a literal value. A nil Type means the type of Value, or the
// untyped nil when Value is nil too.
//
// Untyped marks a numeric literal written without a type; it adapts to the
// numeric type of the operand it is combined with when the value fits.
type Constant struct {
	Value   any
	Type    reflect.Type
	Untyped bool
}

func Const(v any) *Constant {
	return &Constant{Value: v}
}

func TypedConst(v any, t reflect.Type) *Constant {
	return &Constant{Value: v, Type: t}
}

// Literal returns an untyped constant.
func Literal(v any) *Constant {
	return &Constant{Value: v, Untyped: true}
}

// StaticType is the declared type of the constant; nil for the untyped nil.
func (c *Constant) StaticType() reflect.Type {
	if c.Type != nil {
		return c.Type
	}
	return reflect.TypeOf(c.Value)
}

func (c *Constant) Kind() Kind { return KindConstant }

func (c *Constant) String() string {
	switch v := c.Value.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(v)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", c.Value)
}

type Parameter struct {
	Name string
	Type reflect.Type
}

func Param(name string, t reflect.Type) *Parameter {
	return &Parameter{Name: name, Type: t}
}

func (p *Parameter) Kind() Kind     { return KindParameter }
func (p *Parameter) String() string { return p.Name }

type Unary struct {
	Op      UnaryOp
	Operand Node
}

func (u *Unary) Kind() Kind { return KindUnary }

func (u *Unary) String() string {
	return u.Op.String() + wrap(u.Operand)
}

type Binary struct {
	Op          BinaryOp
	Left, Right Node
}

func (b *Binary) Kind() Kind { return KindBinary }

func (b *Binary) String() string {
	return wrap(b.Left) + " " + b.Op.String() + " " + wrap(b.Right)
}

// Member reads a field or static member. Target is nil for static access, in
// which case Type names the declaring type.
type Member struct {
	Target Node
	Type   reflect.Type
	Name   string
}

func (m *Member) Kind() Kind { return KindMember }

func (m *Member) String() string {
	return receiver(m.Target, m.Type) + "." + m.Name
}

type Index struct {
	Target    Node
	Arguments []Node
}

func (x *Index) Kind() Kind { return KindIndex }

func (x *Index) String() string {
	return wrap(x.Target) + "[" + list(x.Arguments) + "]"
}

// Call invokes a method by name. Target is nil for static calls, in which case
// Type names the declaring type.
type Call struct {
	Target    Node
	Type      reflect.Type
	Method    string
	Arguments []Node
}

func (c *Call) Kind() Kind { return KindCall }

func (c *Call) String() string {
	return receiver(c.Target, c.Type) + "." + c.Method + "(" + list(c.Arguments) + ")"
}

// Invoke calls a func-valued expression.
type Invoke struct {
	Func      Node
	Arguments []Node
}

func (i *Invoke) Kind() Kind { return KindInvoke }

func (i *Invoke) String() string {
	return wrap(i.Func) + "(" + list(i.Arguments) + ")"
}

type Conditional struct {
	Test, IfTrue, IfFalse Node
}

func (c *Conditional) Kind() Kind { return KindConditional }

func (c *Conditional) String() string {
	return wrap(c.Test) + " ? " + wrap(c.IfTrue) + " : " + wrap(c.IfFalse)
}

// Convert is an explicit cast.
type Convert struct {
	Operand Node
	Type    reflect.Type
}

func (c *Convert) Kind() Kind { return KindConvert }

func (c *Convert) String() string {
	return "(" + typeName(c.Type) + ")" + wrap(c.Operand)
}

// TypeAs yields the operand when it is an instance of Type and nil otherwise.
type TypeAs struct {
	Operand Node
	Type    reflect.Type
}

func (t *TypeAs) Kind() Kind { return KindTypeAs }

func (t *TypeAs) String() string {
	return wrap(t.Operand) + " as " + typeName(t.Type)
}

type TypeIs struct {
	Operand Node
	Type    reflect.Type
}

func (t *TypeIs) Kind() Kind { return KindTypeIs }

func (t *TypeIs) String() string {
	return wrap(t.Operand) + " is " + typeName(t.Type)
}

// New invokes a declared constructor of Type, or yields the zero value when
// there are no arguments and no constructor matches.
type New struct {
	Type      reflect.Type
	Arguments []Node
}

func (n *New) Kind() Kind { return KindNew }

func (n *New) String() string {
	return "new " + typeName(n.Type) + "(" + list(n.Arguments) + ")"
}

// NewArray builds a []ElemType from its elements.
type NewArray struct {
	ElemType reflect.Type
	Elements []Node
}

func (n *NewArray) Kind() Kind { return KindNewArray }

func (n *NewArray) String() string {
	return "[]" + typeName(n.ElemType) + "{" + list(n.Elements) + "}"
}

type Default struct {
	Type reflect.Type
}

func (d *Default) Kind() Kind { return KindDefault }

func (d *Default) String() string {
	return "default(" + typeName(d.Type) + ")"
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func receiver(target Node, t reflect.Type) string {
	if target != nil {
		return wrap(target)
	}
	return typeName(t)
}

func wrap(n Node) string {
	if n == nil {
		return "<nil>"
	}
	switch n.(type) {
	case *Binary, *Conditional, *TypeAs, *TypeIs:
		return "(" + n.String() + ")"
	}
	return n.String()
}

func list(nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, n := range nodes {
		if n == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = n.String()
	}
	return strings.Join(parts, ", ")
}
