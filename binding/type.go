package binding

import (
	"cmp"
	"fmt"
	"hash/fnv"
	"reflect"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/signadot/dynexpr/expression"
)

var (
	emptyMembers = []*Member{}
	emptyTypes   = []*Type{}
)

// Type describes one Go type: its shape, relationships and member tables.
// A Registry holds exactly one Type per reflect.Type. Types are immutable
// once published, except for conversions discovered from other types and the
// nullable back-link, both of which are updated atomically.
type Type struct {
	t        reflect.Type
	id       uint64
	hash     uint64
	registry *Registry

	name                 string
	code                 TypeCode
	defaultValue         *expression.Constant
	isNullable           bool
	canBeNull            bool
	isValueType          bool
	isEnum               bool
	isNumber             bool
	isDelegate           bool
	hasGenericParameters bool

	baseType         *Type
	baseTypes        []*Type
	interfaces       []*Type
	genericArguments []*Type
	underlyingType   *Type
	nullable         atomic.Pointer[Type]

	membersByName map[string][]*Member
	indexers      []*Member
	constructors  []*Member
	operators     [numOperatorKinds][]*Member
	conversions   [numConversionFamilies]atomic.Pointer[[]*Member]

	complete bool
}

func (t *Type) Reflect() reflect.Type { return t.t }
func (t *Type) String() string        { return t.t.String() }

// Name is the display name: the type name with any generic instantiation
// suffix removed, or the type literal for unnamed types.
func (t *Type) Name() string { return t.name }

func (t *Type) Code() TypeCode      { return t.code }
func (t *Type) IsNullable() bool    { return t.isNullable }
func (t *Type) CanBeNull() bool     { return t.canBeNull }
func (t *Type) IsValueType() bool   { return t.isValueType }
func (t *Type) IsEnum() bool        { return t.isEnum }
func (t *Type) IsNumber() bool      { return t.isNumber }
func (t *Type) IsDelegate() bool    { return t.isDelegate }
func (t *Type) IsInterface() bool   { return t.t.Kind() == reflect.Interface }
func (t *Type) IsPredeclared() bool { return isPredeclared(t.t) }

// HasGenericParameters is always false: reflect only describes instantiated
// types.
func (t *Type) HasGenericParameters() bool { return t.hasGenericParameters }

// Default is a constant expression holding the zero value of the type.
func (t *Type) Default() *expression.Constant { return t.defaultValue }

func (t *Type) BaseType() *Type { return t.baseType }

// BaseTypes lists the ancestors root first, ending with t itself.
func (t *Type) BaseTypes() []*Type        { return t.baseTypes }
func (t *Type) Interfaces() []*Type       { return t.interfaces }
func (t *Type) GenericArguments() []*Type { return t.genericArguments }

// UnderlyingType is the element type of a nullable pointer, or the
// predeclared type of a named basic type. nil otherwise.
func (t *Type) UnderlyingType() *Type { return t.underlyingType }

// MembersByName maps member names to their (own and inherited) members. The
// map and its slices must not be modified.
func (t *Type) MembersByName() map[string][]*Member { return t.membersByName }

// GetMembers returns the members named name, or an empty slice.
func (t *Type) GetMembers(name string) []*Member {
	if ms, ok := t.membersByName[name]; ok {
		return ms
	}
	return emptyMembers
}

func (t *Type) Indexers() []*Member     { return t.indexers }
func (t *Type) Constructors() []*Member { return t.constructors }

// Operators returns the overloads declared for one operator family.
// Conversion kinds return the union of the matching To and From families.
func (t *Type) Operators(kind OperatorKind) []*Member {
	switch kind {
	case OpImplicit:
		return concat(t.ConversionFamily(ImplicitTo), t.ConversionFamily(ImplicitFrom))
	case OpExplicit:
		return concat(t.ConversionFamily(ExplicitTo), t.ConversionFamily(ExplicitFrom))
	}
	if kind < 0 || kind >= numOperatorKinds || len(t.operators[kind]) == 0 {
		return emptyMembers
	}
	return t.operators[kind]
}

func (t *Type) ConversionFamily(f ConversionFamily) []*Member {
	if f < 0 || f >= numConversionFamilies {
		return emptyMembers
	}
	if p := t.conversions[f].Load(); p != nil {
		return *p
	}
	return emptyMembers
}

func (t *Type) ImplicitConvertTo() []*Member   { return t.ConversionFamily(ImplicitTo) }
func (t *Type) ImplicitConvertFrom() []*Member { return t.ConversionFamily(ImplicitFrom) }
func (t *Type) ExplicitConvertTo() []*Member   { return t.ConversionFamily(ExplicitTo) }
func (t *Type) ExplicitConvertFrom() []*Member { return t.ConversionFamily(ExplicitFrom) }

// Conversions is the sorted union of the four conversion families.
func (t *Type) Conversions() []*Member {
	res := concat(
		t.ConversionFamily(ImplicitTo),
		t.ConversionFamily(ImplicitFrom),
		t.ConversionFamily(ExplicitTo),
		t.ConversionFamily(ExplicitFrom),
	)
	slices.SortFunc(res, (*Member).Compare)
	return res
}

// concat joins member slices. With no members at all it returns the shared
// empty slice rather than nil.
func concat(lists ...[]*Member) []*Member {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	if n == 0 {
		return emptyMembers
	}
	res := make([]*Member, 0, n)
	for _, l := range lists {
		res = append(res, l...)
	}
	return res
}

// NullableType returns the descriptor of *T for a value type T, t itself for
// a pointer type, and fails for other nil-able kinds.
func (t *Type) NullableType() (*Type, error) {
	if t.isNullable {
		return t, nil
	}
	if !t.isValueType {
		return nil, fmt.Errorf("%w: %s has no nullable form", ErrInvalidOperation, t)
	}
	if n := t.nullable.Load(); n != nil {
		return n, nil
	}
	n, err := t.registry.Get(reflect.PointerTo(t.t))
	if err != nil {
		return nil, err
	}
	t.nullable.CompareAndSwap(nil, n)
	return t.nullable.Load(), nil
}

// Hash is stable across processes: it derives from the package path and the
// type string only.
func (t *Type) Hash() uint64 { return t.hash }

// Compare orders types by hash, then type string, then creation order.
func (t *Type) Compare(o *Type) int {
	switch {
	case t == o:
		return 0
	case t == nil:
		return -1
	case o == nil:
		return 1
	}
	if c := cmp.Compare(t.hash, o.hash); c != 0 {
		return c
	}
	if c := cmp.Compare(t.t.String(), o.t.String()); c != 0 {
		return c
	}
	return cmp.Compare(t.id, o.id)
}

// Equal reports whether both describe the same Go type.
func (t *Type) Equal(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.t == o.t
}

// Is reports whether t describes rt.
func (t *Type) Is(rt reflect.Type) bool {
	return t != nil && t.t == rt
}

// IsSubtypeOf reports whether o is t or one of its ancestors.
func (t *Type) IsSubtypeOf(o *Type) bool {
	return t.baseDistance(o) >= 0
}

// baseDistance is the number of upcasts from t to o, or -1.
func (t *Type) baseDistance(o *Type) int {
	n := len(t.baseTypes)
	for i := n - 1; i >= 0; i-- {
		if t.baseTypes[i] == o {
			return n - 1 - i
		}
	}
	return -1
}

// Upcast converts v, a value of t, into its ancestor o by walking the
// embedding chain.
func (t *Type) Upcast(v reflect.Value, o *Type) (reflect.Value, error) {
	d := t.baseDistance(o)
	if d < 0 {
		return reflect.Value{}, fmt.Errorf("%w: %s does not extend %s", ErrInvalidCast, t, o)
	}
	cur := t
	for range d {
		next := cur.baseType
		if next.IsInterface() {
			res := reflect.New(next.t).Elem()
			if v.IsValid() {
				res.Set(v)
			}
			return res, nil
		}
		var err error
		v, err = embedded(v, next.t)
		if err != nil {
			return reflect.Value{}, err
		}
		cur = next
	}
	return v, nil
}

// Extends reports whether t, or a type on its embedding chain, is
// assignable to to. It needs no registry.
func Extends(t, to reflect.Type) bool {
	var seen []reflect.Type
	for t != nil && !slices.Contains(seen, t) {
		if t.AssignableTo(to) {
			return true
		}
		seen = append(seen, t)
		t = embeddedBase(t)
	}
	return false
}

// UpcastValue walks the embedding chain of v's dynamic type until it reaches
// a value assignable to to. It needs no registry.
func UpcastValue(v reflect.Value, to reflect.Type) (reflect.Value, bool) {
	var seen []reflect.Type
	for v.IsValid() && !slices.Contains(seen, v.Type()) {
		if v.Type().AssignableTo(to) {
			return v, true
		}
		seen = append(seen, v.Type())
		bt := embeddedBase(v.Type())
		if bt == nil {
			return reflect.Value{}, false
		}
		next, err := embedded(v, bt)
		if err != nil {
			return reflect.Value{}, false
		}
		v = next
	}
	return reflect.Value{}, false
}

// embedded extracts the first (embedded) field of v as type want, taking its
// address or dereferencing as needed.
func embedded(v reflect.Value, want reflect.Type) (reflect.Value, error) {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, ErrNilReference
		}
		v = v.Elem()
	}
	f := v.Field(0)
	switch {
	case f.Type() == want:
		return f, nil
	case f.Kind() == reflect.Pointer && f.Type().Elem() == want:
		if f.IsNil() {
			return reflect.Value{}, ErrNilReference
		}
		return f.Elem(), nil
	case want.Kind() == reflect.Pointer && want.Elem() == f.Type():
		if f.CanAddr() {
			return f.Addr(), nil
		}
		p := reflect.New(f.Type())
		p.Elem().Set(f)
		return p, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: embedded %s is not %s", ErrInvalidCast, f.Type(), want)
}

func typeHash(t reflect.Type) uint64 {
	h := fnv.New64a()
	h.Write([]byte(t.PkgPath()))
	h.Write([]byte{0})
	h.Write([]byte(t.String()))
	return h.Sum64()
}

func displayName(t reflect.Type) string {
	name := t.Name()
	if name == "" {
		return t.String()
	}
	if i := strings.IndexByte(name, '['); i > 0 {
		return name[:i]
	}
	return name
}

func isValueKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String, reflect.Struct, reflect.Array:
		return true
	}
	return false
}

// sortTypes orders descriptors by Compare; used for deterministic listings.
func sortTypes(ts []*Type) {
	slices.SortFunc(ts, (*Type).Compare)
}
