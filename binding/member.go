package binding

import (
	"cmp"
	"fmt"
	"reflect"
	"strings"
)

type MemberKind int

const (
	MemberField MemberKind = iota
	MemberMethod
	MemberConstructor
	MemberIndexer
	MemberOperator
)

func (k MemberKind) String() string {
	switch k {
	case MemberField:
		return "field"
	case MemberMethod:
		return "method"
	case MemberConstructor:
		return "constructor"
	case MemberIndexer:
		return "indexer"
	case MemberOperator:
		return "operator"
	}
	return fmt.Sprintf("MemberKind(%d)", int(k))
}

// Member describes one field, method, constructor, indexer or operator of a
// type. Members are created once while their declaring type is described and
// are shared by every table that lists them.
type Member struct {
	declaring *Type
	kind      MemberKind
	name      string
	static    bool
	operator  OperatorKind

	params       []reflect.Type
	variadic     bool
	result       reflect.Type
	returnsError bool

	// invocation handles; which one is set depends on kind
	index    []int         // field path from the (dereferenced) receiver
	deref    bool          // receiver is a pointer to the struct holding the field
	method   int           // method index in the declaring type's method set
	fn       reflect.Value // static method, constructor, operator or indexer func
	value    reflect.Value // static field value
	recvType reflect.Type  // indexer receiver parameter type

	sig string
}

func (m *Member) DeclaringType() *Type { return m.declaring }
func (m *Member) Kind() MemberKind     { return m.kind }
func (m *Member) Name() string         { return m.name }
func (m *Member) IsStatic() bool       { return m.static }

// Operator is the family of an operator member.
func (m *Member) Operator() OperatorKind { return m.operator }

// Params are the parameter types, excluding any receiver.
func (m *Member) Params() []reflect.Type { return m.params }
func (m *Member) IsVariadic() bool       { return m.variadic }

// Result is the value type of a field or the first result of a callable
// member; nil when a method returns nothing (or only an error).
func (m *Member) Result() reflect.Type { return m.result }
func (m *Member) ReturnsError() bool   { return m.returnsError }

// Signature renders parameters and result, e.g. "(int, string) float64".
func (m *Member) Signature() string {
	return m.sig
}

func (m *Member) String() string {
	var sb strings.Builder
	if m.declaring != nil {
		sb.WriteString(m.declaring.String())
		sb.WriteString(".")
	}
	sb.WriteString(m.name)
	if m.kind != MemberField {
		sb.WriteString(m.sig)
	}
	return sb.String()
}

func signature(params []reflect.Type, variadic bool, result reflect.Type, returnsError bool) string {
	var sb strings.Builder
	sb.WriteString("(")
	for i, p := range params {
		if i > 0 {
			sb.WriteString(", ")
		}
		if variadic && i == len(params)-1 {
			sb.WriteString("...")
			sb.WriteString(p.Elem().String())
			continue
		}
		sb.WriteString(p.String())
	}
	sb.WriteString(")")
	switch {
	case result != nil && returnsError:
		sb.WriteString(" (" + result.String() + ", error)")
	case result != nil:
		sb.WriteString(" " + result.String())
	case returnsError:
		sb.WriteString(" error")
	}
	return sb.String()
}

// Compare totally orders members: by name, kind, static before instance,
// arity, signature, then declaring type.
func (m *Member) Compare(o *Member) int {
	if m == o {
		return 0
	}
	if c := cmp.Compare(m.name, o.name); c != 0 {
		return c
	}
	if c := cmp.Compare(m.kind, o.kind); c != 0 {
		return c
	}
	if m.static != o.static {
		if m.static {
			return -1
		}
		return 1
	}
	if c := cmp.Compare(len(m.params), len(o.params)); c != 0 {
		return c
	}
	if c := cmp.Compare(m.sig, o.sig); c != 0 {
		return c
	}
	return m.declaring.Compare(o.declaring)
}

// results converts call results into a value and an error, following the
// (value), (value, error), (error) and () shapes.
func (m *Member) results(out []reflect.Value) (reflect.Value, error) {
	if m.returnsError {
		errV := out[len(out)-1]
		if !errV.IsNil() {
			return reflect.Value{}, errV.Interface().(error)
		}
		out = out[:len(out)-1]
	}
	if len(out) == 0 {
		return reflect.Value{}, nil
	}
	return out[0], nil
}

// Get reads a field. recv must already be of the declaring type; it is
// ignored for static fields.
func (m *Member) Get(recv reflect.Value) (v reflect.Value, err error) {
	if m.kind != MemberField {
		return reflect.Value{}, fmt.Errorf("%w: %s is not a field", ErrInvalidOperation, m)
	}
	if m.static {
		return m.value, nil
	}
	if !recv.IsValid() {
		return reflect.Value{}, &RuntimeError{Op: m.String(), Err: ErrNilReference}
	}
	if m.deref {
		if recv.IsNil() {
			return reflect.Value{}, &RuntimeError{Op: m.String(), Err: ErrNilReference}
		}
		recv = recv.Elem()
	}
	defer func() {
		if r := recover(); r != nil {
			err = &RuntimeError{Op: m.String(), Err: fmt.Errorf("%w: %v", ErrNilReference, r)}
		}
	}()
	return recv.FieldByIndex(m.index), nil
}

// Invoke calls a method, constructor, operator or indexer. recv is ignored
// for static members. Arguments must already have the parameter types, with
// variadic tails expanded. Panics raised by the callee are returned as
// *RuntimeError.
func (m *Member) Invoke(recv reflect.Value, args []reflect.Value) (res reflect.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = &RuntimeError{Op: m.String(), Err: e}
				return
			}
			err = &RuntimeError{Op: m.String(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	var out []reflect.Value
	switch {
	case m.kind == MemberField:
		return reflect.Value{}, fmt.Errorf("%w: field %s is not callable", ErrInvalidOperation, m)
	case m.kind == MemberIndexer:
		r, err := adaptReceiver(recv, m.recvType)
		if err != nil {
			return reflect.Value{}, &RuntimeError{Op: m.String(), Err: err}
		}
		out = m.fn.Call(append([]reflect.Value{r}, args...))
	case m.static:
		out = m.fn.Call(args)
	case m.declaring.t.Kind() == reflect.Interface:
		if !recv.IsValid() || (recv.Kind() == reflect.Interface && recv.IsNil()) {
			return reflect.Value{}, &RuntimeError{Op: m.String(), Err: ErrNilReference}
		}
		if it := m.declaring.t; recv.Type() != it {
			// the index is into the interface's method set
			r := reflect.New(it).Elem()
			r.Set(recv)
			recv = r
		}
		out = recv.Method(m.method).Call(args)
	default:
		out = recv.Method(m.method).Call(args)
	}
	return m.results(out)
}

// adaptReceiver turns T into *T (through a copy) or *T into T as required by
// an indexer's receiver parameter.
func adaptReceiver(v reflect.Value, want reflect.Type) (reflect.Value, error) {
	if !v.IsValid() {
		return reflect.Value{}, ErrNilReference
	}
	switch {
	case v.Type() == want:
		return v, nil
	case v.Kind() == reflect.Pointer && v.Type().Elem() == want:
		if v.IsNil() {
			return reflect.Value{}, ErrNilReference
		}
		return v.Elem(), nil
	case want.Kind() == reflect.Pointer && want.Elem() == v.Type():
		p := reflect.New(v.Type())
		p.Elem().Set(v)
		return p, nil
	case v.Type().AssignableTo(want):
		return v, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: receiver %s for %s", ErrInvalidCast, v.Type(), want)
}

// funcShape validates a func's results: (), (T), (error), or (T, error).
func funcShape(ft reflect.Type) (result reflect.Type, returnsError bool, ok bool) {
	switch ft.NumOut() {
	case 0:
		return nil, false, true
	case 1:
		if ft.Out(0) == errorType {
			return nil, true, true
		}
		return ft.Out(0), false, true
	case 2:
		if ft.Out(1) != errorType {
			return nil, false, false
		}
		return ft.Out(0), true, true
	}
	return nil, false, false
}

func inTypes(ft reflect.Type, from int) []reflect.Type {
	n := ft.NumIn()
	if n <= from {
		return nil
	}
	res := make([]reflect.Type, 0, n-from)
	for i := from; i < n; i++ {
		res = append(res, ft.In(i))
	}
	return res
}

func newFieldMember(d *Type, f reflect.StructField, deref bool) *Member {
	m := &Member{
		declaring: d,
		kind:      MemberField,
		name:      f.Name,
		result:    f.Type,
		index:     f.Index,
		deref:     deref,
		method:    -1,
	}
	m.sig = f.Type.String()
	return m
}

// newMethodMember returns nil for methods whose results cannot be represented
// as a single value.
func newMethodMember(d *Type, meth reflect.Method, iface bool) *Member {
	from := 1
	if iface {
		from = 0
	}
	result, returnsError, ok := funcShape(meth.Type)
	if !ok {
		return nil
	}
	m := &Member{
		declaring:    d,
		kind:         MemberMethod,
		name:         meth.Name,
		params:       inTypes(meth.Type, from),
		variadic:     meth.Type.IsVariadic(),
		result:       result,
		returnsError: returnsError,
		method:       meth.Index,
	}
	m.sig = signature(m.params, m.variadic, m.result, m.returnsError)
	return m
}

func newFuncMember(d *Type, kind MemberKind, name string, fn reflect.Value) (*Member, error) {
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		return nil, &DeclarationError{Type: d.String(), Message: fmt.Sprintf("%s %s: expected a non-nil func, got %s", kind, name, describeValue(fn))}
	}
	ft := fn.Type()
	result, returnsError, ok := funcShape(ft)
	if !ok {
		return nil, &DeclarationError{Type: d.String(), Message: fmt.Sprintf("%s %s: unsupported results %s", kind, name, ft)}
	}
	m := &Member{
		declaring:    d,
		kind:         kind,
		name:         name,
		static:       kind != MemberIndexer,
		params:       inTypes(ft, 0),
		variadic:     ft.IsVariadic(),
		result:       result,
		returnsError: returnsError,
		fn:           fn,
		method:       -1,
	}
	if kind == MemberIndexer {
		if len(m.params) < 2 || result == nil {
			return nil, &DeclarationError{Type: d.String(), Message: fmt.Sprintf("indexer %s: want func(recv, keys...) value, got %s", name, ft)}
		}
		m.recvType = m.params[0]
		m.params = m.params[1:]
	}
	m.sig = signature(m.params, m.variadic, m.result, m.returnsError)
	return m, nil
}

func newStaticField(d *Type, name string, v reflect.Value) *Member {
	m := &Member{
		declaring: d,
		kind:      MemberField,
		name:      name,
		static:    true,
		result:    v.Type(),
		value:     v,
		method:    -1,
	}
	m.sig = v.Type().String()
	return m
}

func describeValue(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}
