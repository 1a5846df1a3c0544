package binding

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/signadot/dynexpr/debug"
	"github.com/signadot/dynexpr/expression"
)

// builder is the local, unshared arena in which a missing descriptor and
// everything it depends on are constructed before being merged into the
// registry. Nothing here holds the registry lock except brief lookups.
type builder struct {
	reg   *Registry
	local map[reflect.Type]*Type
	order []*Type
}

func newBuilder(reg *Registry) *builder {
	return &builder{
		reg:   reg,
		local: map[reflect.Type]*Type{},
	}
}

// get returns the descriptor for t from the arena or the registry, building
// it in the arena when missing. The result may be incomplete when t is
// already under construction further up the stack.
func (b *builder) get(t reflect.Type) (*Type, error) {
	if d, ok := b.local[t]; ok {
		return d, nil
	}
	if d := b.reg.lookup(t); d != nil {
		return d, nil
	}
	return b.build(t)
}

func (b *builder) getAll(ts []reflect.Type) ([]*Type, error) {
	if len(ts) == 0 {
		return emptyTypes, nil
	}
	res := make([]*Type, len(ts))
	for i, t := range ts {
		d, err := b.get(t)
		if err != nil {
			return nil, err
		}
		res[i] = d
	}
	return res, nil
}

func (b *builder) build(t reflect.Type) (*Type, error) {
	if debug.Registry() {
		debug.Logf("registry: describing %s\n", t)
	}
	d := &Type{
		t:        t,
		id:       b.reg.nextID(),
		hash:     typeHash(t),
		registry: b.reg,
		name:     displayName(t),
		code:     typeCodeOf(t),
	}
	b.local[t] = d
	b.order = append(b.order, d)

	kind := t.Kind()
	d.isValueType = isValueKind(kind)
	d.canBeNull = !d.isValueType
	d.isNullable = kind == reflect.Pointer
	d.isEnum = t.PkgPath() != "" && d.code.IsInteger()
	d.isNumber = d.code.IsNumber()
	d.isDelegate = kind == reflect.Func
	d.defaultValue = expression.TypedConst(reflect.Zero(t).Interface(), t)

	var err error
	if d.baseType, err = b.baseOf(t); err != nil {
		return nil, err
	}
	d.baseTypes = ancestors(d)
	if d.underlyingType, err = b.underlyingOf(t); err != nil {
		return nil, err
	}
	if d.interfaces, err = b.interfacesOf(t); err != nil {
		return nil, err
	}
	if d.genericArguments, err = b.getAll(genericArguments(t)); err != nil {
		return nil, err
	}

	decl, err := declarationOf(t)
	if err != nil {
		return nil, err
	}
	if err := b.catalog(d, decl); err != nil {
		return nil, err
	}
	endpoints, err := b.extractOperators(d, decl)
	if err != nil {
		return nil, err
	}
	d.complete = true
	// conversion endpoints are described once d is whole, so that any of
	// them reaching back to d sees its base chain and tables
	for _, o := range endpoints {
		if _, err := b.get(o); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// baseOf applies the embedding rule: a struct whose first field is an
// exported embedded struct B (or *B) extends B, and *D extends *B. Every
// other type but the root and interfaces extends any.
func (b *builder) baseOf(t reflect.Type) (*Type, error) {
	if t.Kind() == reflect.Interface {
		return nil, nil
	}
	if bt := embeddedBase(t); bt != nil {
		base, err := b.get(bt)
		if err != nil {
			return nil, err
		}
		// a type embedding itself (type T struct{ *T }) cannot be its own base
		if base.complete {
			return base, nil
		}
	}
	return b.get(anyType)
}

func embeddedBase(t reflect.Type) reflect.Type {
	st, ptr := t, false
	if t.Kind() == reflect.Pointer {
		st, ptr = t.Elem(), true
	}
	if st.Kind() != reflect.Struct || st.NumField() == 0 {
		return nil
	}
	f := st.Field(0)
	if !f.Anonymous || !f.IsExported() {
		return nil
	}
	et := f.Type
	if et.Kind() == reflect.Pointer {
		et = et.Elem()
	}
	if et.Kind() != reflect.Struct {
		return nil
	}
	if ptr {
		return reflect.PointerTo(et)
	}
	return et
}

func ancestors(d *Type) []*Type {
	depth := 0
	for cur := d.baseType; cur != nil; cur = cur.baseType {
		depth++
	}
	res := make([]*Type, depth+1)
	cur := d
	for i := depth; i >= 0; i-- {
		res[i] = cur
		cur = cur.baseType
	}
	return res
}

func (b *builder) underlyingOf(t reflect.Type) (*Type, error) {
	if t.Kind() == reflect.Pointer {
		if !isValueKind(t.Elem().Kind()) {
			return nil, nil
		}
		return b.get(t.Elem())
	}
	if t.PkgPath() == "" {
		return nil, nil
	}
	if pt := PredeclaredType(typeCodeOf(t)); pt != nil && pt != t {
		return b.get(pt)
	}
	return nil, nil
}

func (b *builder) interfacesOf(t reflect.Type) ([]*Type, error) {
	var res []*Type
	for _, it := range b.reg.interfaces {
		if it == t || !t.Implements(it) {
			continue
		}
		d, err := b.get(it)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	if len(res) == 0 {
		return emptyTypes, nil
	}
	sortTypes(res)
	return res, nil
}

func genericArguments(t reflect.Type) []reflect.Type {
	switch t.Kind() {
	case reflect.Slice, reflect.Array, reflect.Chan:
		return []reflect.Type{t.Elem()}
	case reflect.Map:
		return []reflect.Type{t.Key(), t.Elem()}
	}
	return nil
}

// extractOperators fills the operator and conversion families from a
// declaration and returns the other endpoint of every conversion. Those are
// described in the same arena so the registry can cross-link them after the
// merge.
func (b *builder) extractOperators(d *Type, decl *Declaration) ([]reflect.Type, error) {
	if decl == nil || len(decl.Operators) == 0 {
		return nil, nil
	}
	var endpoints []reflect.Type
	var convs [numConversionFamilies][]*Member
	for kind := OperatorKind(0); kind < numOperatorKinds; kind++ {
		fns := decl.Operators[kind]
		for i, f := range fns {
			name := kind.String()
			m, err := newFuncMember(d, MemberOperator, name, reflect.ValueOf(f))
			if err != nil {
				return nil, err
			}
			m.operator = kind
			if len(m.params) != kind.arity() || m.variadic || m.result == nil {
				return nil, &DeclarationError{
					Type:    d.String(),
					Message: fmt.Sprintf("operator %s #%d: want %d parameter(s) and a result, got %s", kind, i, kind.arity(), m.sig),
				}
			}
			if !kind.IsConversion() {
				if !slices.ContainsFunc(m.params, func(p reflect.Type) bool { return p == d.t || p == reflect.PointerTo(d.t) }) {
					return nil, &DeclarationError{
						Type:    d.String(),
						Message: fmt.Sprintf("operator %s%s does not take %s", kind, m.sig, d),
					}
				}
				d.operators[kind] = append(d.operators[kind], m)
				continue
			}
			from, to := m.params[0], m.result
			var fam ConversionFamily
			switch {
			case from == to:
				continue
			case from == d.t:
				fam = ImplicitTo
			case to == d.t:
				fam = ImplicitFrom
			default:
				// neither side is this type
				continue
			}
			if kind == OpExplicit {
				fam += ExplicitTo
			}
			other := to
			if fam == ImplicitFrom || fam == ExplicitFrom {
				other = from
			}
			endpoints = append(endpoints, other)
			convs[fam] = append(convs[fam], m)
		}
		slices.SortFunc(d.operators[kind], (*Member).Compare)
	}
	for fam := range convs {
		if len(convs[fam]) == 0 {
			continue
		}
		ms := convs[fam]
		slices.SortFunc(ms, (*Member).Compare)
		d.conversions[fam].Store(&ms)
	}
	return endpoints, nil
}
