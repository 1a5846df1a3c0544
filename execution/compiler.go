package execution

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/debug"
	"github.com/signadot/dynexpr/expression"
)

type compiler struct {
	reg       *binding.Registry
	constants map[*expression.Constant]int
	params    []*expression.Parameter
	byName    map[string]int
	byPtr     map[*expression.Parameter]int

	anyType, boolType, stringType, float64Type *binding.Type
}

// operand is a compiled node with the static description the resolver
// needs: its type, and for untyped literals the literal itself.
type operand struct {
	node Node
	arg  binding.Arg
}

// Compile resolves tree against reg. constants lists the constants whose
// values are supplied by the closure at run time, by index; other constants
// are embedded. parameters lists the parameters in closure order. A
// parameter node in the tree matches by identity first, then by name.
func Compile(reg *binding.Registry, tree expression.Node, constants []*expression.Constant, parameters []*expression.Parameter) (Node, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", binding.ErrInvalidArgument)
	}
	c := &compiler{
		reg:         reg,
		constants:   make(map[*expression.Constant]int, len(constants)),
		params:      parameters,
		byName:      make(map[string]int, len(parameters)),
		byPtr:       make(map[*expression.Parameter]int, len(parameters)),
		anyType:     reg.MustGet(reflect.TypeFor[any]()),
		boolType:    reg.MustGet(reflect.TypeFor[bool]()),
		stringType:  reg.MustGet(reflect.TypeFor[string]()),
		float64Type: reg.MustGet(reflect.TypeFor[float64]()),
	}
	for i, k := range constants {
		if k == nil {
			return nil, fmt.Errorf("%w: constant %d is nil", binding.ErrInvalidArgument, i)
		}
		c.constants[k] = i
	}
	for i, p := range parameters {
		if p == nil || p.Type == nil {
			return nil, fmt.Errorf("%w: parameter %d has no type", binding.ErrInvalidArgument, i)
		}
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate parameter %q", binding.ErrInvalidArgument, p.Name)
		}
		c.byName[p.Name] = i
		c.byPtr[p] = i
	}
	op, err := c.compile(tree)
	if err != nil {
		if debug.Compile() {
			debug.Logf("compile: %s failed: %v\n", exprString(tree), err)
		}
		return nil, err
	}
	if debug.Compile() {
		debug.Logf("compile: %s => %s : %s\n", tree, op.node, op.node.Type())
	}
	return op.node, nil
}

func (c *compiler) compile(n expression.Node) (operand, error) {
	op, err := c.compileNode(n)
	if err != nil {
		return operand{}, compileError(n, err)
	}
	return op, nil
}

func (c *compiler) compileNode(n expression.Node) (operand, error) {
	switch x := n.(type) {
	case nil:
		return operand{}, fmt.Errorf("%w: missing expression", binding.ErrInvalidArgument)
	case *expression.Constant:
		return c.constant(x)
	case *expression.Parameter:
		return c.parameter(x)
	case *expression.Unary:
		return c.unary(x)
	case *expression.Binary:
		return c.binary(x)
	case *expression.Member:
		return c.member(x)
	case *expression.Index:
		return c.index(x)
	case *expression.Call:
		return c.call(x)
	case *expression.Invoke:
		return c.invoke(x)
	case *expression.Conditional:
		return c.conditional(x)
	case *expression.Convert:
		return c.cast(x)
	case *expression.TypeAs:
		return c.typeAs(x)
	case *expression.TypeIs:
		return c.typeIs(x)
	case *expression.New:
		return c.newObject(x)
	case *expression.NewArray:
		return c.newArray(x)
	case *expression.Default:
		t, err := c.reg.Get(x.Type)
		if err != nil {
			return operand{}, err
		}
		return typedOperand(&defaultNode{typed: typed{t}, value: t.Default().Value})
	}
	return operand{}, fmt.Errorf("%w: unsupported expression %T", binding.ErrInvalidArgument, n)
}

func typedOperand(n Node) (operand, error) {
	return operand{node: n, arg: binding.ArgOf(n.Type())}, nil
}

func (c *compiler) nilOperand() operand {
	return operand{node: &constantNode{typed: typed{c.anyType}}}
}

func (c *compiler) compileAll(nodes []expression.Node) ([]operand, error) {
	res := make([]operand, len(nodes))
	for i, n := range nodes {
		op, err := c.compile(n)
		if err != nil {
			return nil, err
		}
		res[i] = op
	}
	return res, nil
}

func argsOf(ops []operand) []binding.Arg {
	res := make([]binding.Arg, len(ops))
	for i, op := range ops {
		res[i] = op.arg
	}
	return res
}

func noMember(t *binding.Type, name string, args []operand) error {
	e := &binding.BindError{Type: t.String(), Member: name, Err: binding.ErrNoMatch}
	for _, a := range args {
		e.Args = append(e.Args, a.arg.String())
	}
	return e
}

func (c *compiler) resultType(m *binding.Member) (*binding.Type, error) {
	if m.Result() == nil {
		return c.anyType, nil
	}
	return c.reg.Get(m.Result())
}

func (c *compiler) constant(k *expression.Constant) (operand, error) {
	st := k.StaticType()
	if i, ok := c.constants[k]; ok {
		t := c.anyType
		if st != nil {
			var err error
			if t, err = c.reg.Get(st); err != nil {
				return operand{}, err
			}
		}
		return typedOperand(&closureConstantNode{typed: typed{t}, index: i, name: fmt.Sprintf("c[%d]", i)})
	}
	if st == nil {
		return c.nilOperand(), nil
	}
	t, err := c.reg.Get(st)
	if err != nil {
		return operand{}, err
	}
	v := k.Value
	switch {
	case v == nil:
		if !t.CanBeNull() {
			return operand{}, fmt.Errorf("%w: nil is not %s", binding.ErrInvalidCast, t)
		}
	case reflect.TypeOf(v) != st:
		cv, ok := binding.ConvertLiteral(v, st)
		if !ok {
			return operand{}, fmt.Errorf("%w: %T value %v is not %s", binding.ErrInvalidCast, v, v, t)
		}
		v = cv.Interface()
	}
	arg := binding.ArgOf(t)
	if k.Untyped && k.Type == nil {
		arg.Literal, arg.Untyped = v, true
	}
	return operand{node: &constantNode{typed: typed{t}, value: v}, arg: arg}, nil
}

func (c *compiler) parameter(p *expression.Parameter) (operand, error) {
	i, ok := c.byPtr[p]
	if !ok {
		j, found := c.byName[p.Name]
		if !found {
			return operand{}, fmt.Errorf("%w: undeclared parameter %q", binding.ErrInvalidArgument, p.Name)
		}
		if p.Type != nil && p.Type != c.params[j].Type {
			return operand{}, fmt.Errorf("%w: parameter %q is %s, used as %s", binding.ErrInvalidArgument, p.Name, c.params[j].Type, p.Type)
		}
		i = j
	}
	t, err := c.reg.Get(c.params[i].Type)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&parameterNode{typed: typed{t}, index: i, name: c.params[i].Name})
}

// convert inserts the conversion of op to to. The untyped nil becomes a nil
// constant of to, and untyped literals that fit become constants of to.
func (c *compiler) convert(op operand, to *binding.Type, explicit bool) (Node, error) {
	switch {
	case op.arg.Type == nil:
		if !to.CanBeNull() {
			return nil, fmt.Errorf("%w: nil is not %s", binding.ErrInvalidCast, to)
		}
		return &constantNode{typed: typed{to}}, nil
	case op.arg.Untyped && op.arg.Type != to && !to.IsInterface():
		if v, ok := binding.ConvertLiteral(op.arg.Literal, to.Reflect()); ok {
			return &constantNode{typed: typed{to}, value: v.Interface()}, nil
		}
	}
	plan, err := c.reg.ResolveConversion(op.arg.Type, to, explicit)
	if err != nil {
		return nil, err
	}
	if plan.Kind == binding.ConvIdentity {
		return op.node, nil
	}
	conv, err := converterFor(plan)
	if err != nil {
		return nil, err
	}
	if debug.Compile() {
		debug.Logf("compile: %s via %s\n", op.node, plan)
	}
	return &convertNode{typed: typed{to}, operand: op.node, plan: plan, conv: conv, explicit: explicit}, nil
}

// bindArgs converts call operands to the parameter types of a resolved
// member. In the expanded form trailing operands fill the variadic slice.
func (c *compiler) bindArgs(m *binding.Member, ops []operand, expanded bool) (invoker, error) {
	params := m.Params()
	iv := invoker{
		m:      m,
		args:   make([]Node, len(ops)),
		types:  make([]reflect.Type, len(ops)),
		spread: m.IsVariadic() && !expanded,
	}
	for i, op := range ops {
		pt := params[min(i, len(params)-1)]
		if expanded && i >= len(params)-1 {
			pt = pt.Elem()
		}
		p, err := c.reg.Get(pt)
		if err != nil {
			return iv, err
		}
		n, err := c.convert(op, p, false)
		if err != nil {
			return iv, err
		}
		iv.args[i], iv.types[i] = n, pt
	}
	return iv, nil
}

func (c *compiler) member(x *expression.Member) (operand, error) {
	if x.Target == nil {
		t, err := c.reg.Get(x.Type)
		if err != nil {
			return operand{}, err
		}
		ms := t.GetMembers(x.Name)
		if len(ms) == 0 {
			return operand{}, noMember(t, x.Name, nil)
		}
		m, err := c.reg.Resolve(ms, nil, nil)
		if err != nil {
			return operand{}, err
		}
		rt, err := c.resultType(m)
		if err != nil {
			return operand{}, err
		}
		if m.Kind() == binding.MemberField {
			return typedOperand(&staticFieldNode{typed: typed{rt}, m: m})
		}
		return typedOperand(&staticCallNode{typed: typed{rt}, invoker: invoker{m: m}})
	}

	recv, err := c.compile(x.Target)
	if err != nil {
		return operand{}, err
	}
	if recv.arg.Type == nil {
		return operand{}, fmt.Errorf("%w: member %s of nil", binding.ErrNilReference, x.Name)
	}
	ms := recv.arg.Type.GetMembers(x.Name)
	if len(ms) == 0 {
		// m.key on a map with string keys reads the key
		if rt := recv.arg.Type.Reflect(); rt.Kind() == reflect.Map && rt.Key().Kind() == reflect.String {
			return c.indexOperand(recv, []operand{c.literal(x.Name)})
		}
		return operand{}, noMember(recv.arg.Type, x.Name, nil)
	}
	m, err := c.reg.Resolve(ms, recv.arg.Type, nil)
	if err != nil {
		return operand{}, err
	}
	rt, err := c.resultType(m)
	if err != nil {
		return operand{}, err
	}
	rn, err := c.convert(recv, m.DeclaringType(), false)
	if err != nil {
		return operand{}, err
	}
	recvType := m.DeclaringType().Reflect()
	if m.Kind() == binding.MemberField {
		return typedOperand(&fieldNode{typed: typed{rt}, m: m, recv: rn, recvType: recvType})
	}
	return typedOperand(&methodCallNode{typed: typed{rt}, invoker: invoker{m: m}, recv: rn, recvType: recvType})
}

func onlyFields(ms []*binding.Member) bool {
	for _, m := range ms {
		if m.Kind() != binding.MemberField {
			return false
		}
	}
	return true
}

func (c *compiler) call(x *expression.Call) (operand, error) {
	args, err := c.compileAll(x.Arguments)
	if err != nil {
		return operand{}, err
	}
	var (
		recv  operand
		owner *binding.Type
	)
	if x.Target == nil {
		if owner, err = c.reg.Get(x.Type); err != nil {
			return operand{}, err
		}
	} else {
		if recv, err = c.compile(x.Target); err != nil {
			return operand{}, err
		}
		if recv.arg.Type == nil {
			return operand{}, fmt.Errorf("%w: method %s of nil", binding.ErrNilReference, x.Method)
		}
		owner = recv.arg.Type
	}
	ms := owner.GetMembers(x.Method)
	if len(ms) == 0 {
		return operand{}, noMember(owner, x.Method, args)
	}
	if onlyFields(ms) {
		// a func-valued field is read, then invoked
		fn, err := c.member(&expression.Member{Target: x.Target, Type: x.Type, Name: x.Method})
		if err != nil {
			return operand{}, err
		}
		return c.invokeFunc(fn, args)
	}

	var recvType *binding.Type
	if x.Target != nil {
		recvType = owner
	}
	m, expanded, err := c.reg.ResolveCall(ms, recvType, argsOf(args))
	if err != nil {
		return operand{}, err
	}
	if m.Kind() == binding.MemberField {
		return operand{}, fmt.Errorf("%w: %s is a field", binding.ErrInvalidOperation, m)
	}
	iv, err := c.bindArgs(m, args, expanded)
	if err != nil {
		return operand{}, err
	}
	rt, err := c.resultType(m)
	if err != nil {
		return operand{}, err
	}
	if x.Target == nil {
		return typedOperand(&staticCallNode{typed: typed{rt}, invoker: iv})
	}
	rn, err := c.convert(recv, m.DeclaringType(), false)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&methodCallNode{typed: typed{rt}, invoker: iv, recv: rn, recvType: m.DeclaringType().Reflect()})
}

func (c *compiler) invoke(x *expression.Invoke) (operand, error) {
	fn, err := c.compile(x.Func)
	if err != nil {
		return operand{}, err
	}
	args, err := c.compileAll(x.Arguments)
	if err != nil {
		return operand{}, err
	}
	return c.invokeFunc(fn, args)
}

var errorType = reflect.TypeFor[error]()

func (c *compiler) invokeFunc(fn operand, args []operand) (operand, error) {
	if fn.arg.Type == nil || !fn.arg.Type.IsDelegate() {
		return operand{}, fmt.Errorf("%w: %s is not a func", binding.ErrInvalidOperation, fn.arg)
	}
	ft := fn.arg.Type.Reflect()
	n, variadic := ft.NumIn(), ft.IsVariadic()
	if (!variadic && len(args) != n) || (variadic && len(args) < n-1) {
		return operand{}, fmt.Errorf("%w: %s takes %d argument(s), got %d", binding.ErrNoMatch, ft, n, len(args))
	}
	spread := false
	if variadic && len(args) == n {
		st, err := c.reg.Get(ft.In(n - 1))
		if err != nil {
			return operand{}, err
		}
		spread = c.reg.ArgCost(args[n-1].arg, st).Implicit()
	}
	node := &funcInvokeNode{
		fn:     fn.node,
		fnType: ft,
		args:   make([]Node, len(args)),
		types:  make([]reflect.Type, len(args)),
		spread: spread,
	}
	for i, a := range args {
		pt := ft.In(min(i, n-1))
		if variadic && !spread && i >= n-1 {
			pt = pt.Elem()
		}
		p, err := c.reg.Get(pt)
		if err != nil {
			return operand{}, err
		}
		if node.args[i], err = c.convert(a, p, false); err != nil {
			return operand{}, err
		}
		node.types[i] = pt
	}
	var result reflect.Type
	switch out := ft.NumOut(); {
	case out == 0:
	case out == 1 && ft.Out(0) == errorType:
		node.returnsError = true
	case out == 1:
		result = ft.Out(0)
	case out == 2 && ft.Out(1) == errorType:
		result, node.returnsError = ft.Out(0), true
	default:
		return operand{}, fmt.Errorf("%w: %s has unsupported results", binding.ErrInvalidOperation, ft)
	}
	node.t = c.anyType
	if result != nil {
		t, err := c.reg.Get(result)
		if err != nil {
			return operand{}, err
		}
		node.t = t
	}
	return typedOperand(node)
}

func (c *compiler) index(x *expression.Index) (operand, error) {
	recv, err := c.compile(x.Target)
	if err != nil {
		return operand{}, err
	}
	if recv.arg.Type == nil {
		return operand{}, fmt.Errorf("%w: index of nil", binding.ErrNilReference)
	}
	args, err := c.compileAll(x.Arguments)
	if err != nil {
		return operand{}, err
	}
	return c.indexOperand(recv, args)
}

func (c *compiler) literal(v any) operand {
	t := c.reg.MustGet(reflect.TypeOf(v))
	return operand{
		node: &constantNode{typed: typed{t}, value: v},
		arg:  binding.Arg{Type: t, Literal: v, Untyped: true},
	}
}

func (c *compiler) indexOperand(recv operand, args []operand) (operand, error) {
	owner := recv.arg.Type
	if ix := owner.Indexers(); len(ix) > 0 {
		m, expanded, err := c.reg.ResolveCall(ix, owner, argsOf(args))
		if err != nil {
			return operand{}, err
		}
		iv, err := c.bindArgs(m, args, expanded)
		if err != nil {
			return operand{}, err
		}
		rt, err := c.resultType(m)
		if err != nil {
			return operand{}, err
		}
		return typedOperand(&indexerNode{typed: typed{rt}, invoker: iv, recv: recv.node, recvType: owner.Reflect()})
	}
	if len(args) != 1 {
		return operand{}, fmt.Errorf("%w: %s takes one index, got %d", binding.ErrInvalidOperation, owner, len(args))
	}
	rt := owner.Reflect()
	base := rt
	if rt.Kind() == reflect.Pointer && rt.Elem().Kind() == reflect.Array {
		base = rt.Elem()
	}
	var key, elem reflect.Type
	switch base.Kind() {
	case reflect.Slice, reflect.Array:
		key, elem = reflect.TypeFor[int](), base.Elem()
	case reflect.String:
		key, elem = reflect.TypeFor[int](), reflect.TypeFor[byte]()
	case reflect.Map:
		key, elem = base.Key(), base.Elem()
	default:
		return operand{}, fmt.Errorf("%w: %s cannot be indexed", binding.ErrInvalidOperation, owner)
	}
	kt, err := c.reg.Get(key)
	if err != nil {
		return operand{}, err
	}
	kn, err := c.convert(args[0], kt, false)
	if err != nil {
		return operand{}, err
	}
	et, err := c.reg.Get(elem)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&indexNode{typed: typed{et}, recv: recv.node, index: kn, recvType: rt, keyType: key})
}

func (c *compiler) cast(x *expression.Convert) (operand, error) {
	op, err := c.compile(x.Operand)
	if err != nil {
		return operand{}, err
	}
	t, err := c.reg.Get(x.Type)
	if err != nil {
		return operand{}, err
	}
	n, err := c.convert(op, t, true)
	if err != nil {
		return operand{}, err
	}
	return operand{node: n, arg: binding.ArgOf(t)}, nil
}

func (c *compiler) typeAs(x *expression.TypeAs) (operand, error) {
	op, err := c.compile(x.Operand)
	if err != nil {
		return operand{}, err
	}
	t, err := c.reg.Get(x.Type)
	if err != nil {
		return operand{}, err
	}
	n := &typeAsNode{typed: typed{t}, target: t}
	if t.IsValueType() {
		// a miss yields nil, so a value target is typed as its nullable form
		if n.t, err = t.NullableType(); err != nil {
			return operand{}, err
		}
		if from := op.arg.Type; from != nil {
			if plan, _ := c.reg.ResolveConversion(from, t, true); plan != nil {
				if n.conv, err = converterFor(plan); err != nil {
					return operand{}, err
				}
			}
		}
	}
	return typedOperand(n)
}

func (c *compiler) typeIs(x *expression.TypeIs) (operand, error) {
	op, err := c.compile(x.Operand)
	if err != nil {
		return operand{}, err
	}
	t, err := c.reg.Get(x.Type)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&typeIsNode{typed: typed{c.boolType}, operand: op.node, target: t.Reflect()})
}

func (c *compiler) newObject(x *expression.New) (operand, error) {
	t, err := c.reg.Get(x.Type)
	if err != nil {
		return operand{}, err
	}
	args, err := c.compileAll(x.Arguments)
	if err != nil {
		return operand{}, err
	}
	ctors := t.Constructors()
	if len(ctors) == 0 {
		if len(args) > 0 {
			return operand{}, noMember(t, t.Name(), args)
		}
		return typedOperand(&zeroNode{typed{t}})
	}
	m, expanded, err := c.reg.ResolveCall(ctors, nil, argsOf(args))
	if err != nil {
		if len(args) == 0 && errors.Is(err, binding.ErrNoMatch) {
			return typedOperand(&zeroNode{typed{t}})
		}
		return operand{}, err
	}
	iv, err := c.bindArgs(m, args, expanded)
	if err != nil {
		return operand{}, err
	}
	rt, err := c.resultType(m)
	if err != nil {
		return operand{}, err
	}
	return typedOperand(&constructorNode{typed: typed{rt}, invoker: iv})
}

func (c *compiler) newArray(x *expression.NewArray) (operand, error) {
	elem, err := c.reg.Get(x.ElemType)
	if err != nil {
		return operand{}, err
	}
	st, err := c.reg.Get(reflect.SliceOf(x.ElemType))
	if err != nil {
		return operand{}, err
	}
	ops, err := c.compileAll(x.Elements)
	if err != nil {
		return operand{}, err
	}
	n := &newArrayNode{typed: typed{st}, elem: x.ElemType, elements: make([]Node, len(ops))}
	for i, op := range ops {
		if n.elements[i], err = c.convert(op, elem, false); err != nil {
			return operand{}, err
		}
	}
	return typedOperand(n)
}
