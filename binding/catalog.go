package binding

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"sort"
)

// catalog fills the member tables of d: fields, methods and statics by name,
// indexers and constructors. Inherited buckets come from the base type.
func (b *builder) catalog(d *Type, decl *Declaration) error {
	byName := map[string][]*Member{}
	add := func(m *Member) {
		if m == nil {
			return
		}
		byName[m.name] = append(byName[m.name], m)
	}
	t := d.t
	iface := t.Kind() == reflect.Interface

	switch {
	case t.Kind() == reflect.Struct:
		for _, f := range structFields(t) {
			add(newFieldMember(d, f, false))
		}
	case t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Struct:
		for _, f := range structFields(t.Elem()) {
			add(newFieldMember(d, f, true))
		}
	}

	base := embeddedBase(t)
	for i := range t.NumMethod() {
		meth := t.Method(i)
		if !meth.IsExported() || isDeclareMethod(meth, iface) {
			continue
		}
		// methods promoted from the base are inherited with its bucket
		if !iface && base != nil && promotedFrom(t, base, meth.Name) {
			continue
		}
		add(newMethodMember(d, meth, iface))
	}

	if iface {
		for _, it := range d.interfaces {
			if !it.complete {
				continue
			}
			for _, ms := range it.membersByName {
				for _, m := range ms {
					add(m)
				}
			}
		}
	}

	if decl != nil {
		if err := b.declared(d, decl, add); err != nil {
			return err
		}
	}
	if t.Kind() == reflect.Pointer {
		if elem := b.local[t.Elem()]; elem != nil && elem.complete {
			d.indexers = append(d.indexers, elem.indexers...)
		} else if elem := b.reg.lookup(t.Elem()); elem != nil {
			d.indexers = append(d.indexers, elem.indexers...)
		}
	}

	if base := d.baseType; base != nil && base.complete {
		for name, ms := range base.membersByName {
			byName[name] = append(byName[name], ms...)
		}
	}

	d.membersByName = make(map[string][]*Member, len(byName))
	for name, ms := range byName {
		d.membersByName[name] = finalize(ms)
	}
	d.indexers = finalize(d.indexers)
	d.constructors = finalize(d.constructors)
	return nil
}

// declared adds the statics, constructors and indexers of a declaration.
func (b *builder) declared(d *Type, decl *Declaration, add func(*Member)) error {
	names := make([]string, 0, len(decl.Statics))
	for name := range decl.Statics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := reflect.ValueOf(decl.Statics[name])
		if v.Kind() == reflect.Func {
			m, err := newFuncMember(d, MemberMethod, name, v)
			if err != nil {
				return err
			}
			add(m)
			continue
		}
		if !v.IsValid() {
			v = reflect.Zero(anyType)
		}
		add(newStaticField(d, name, v))
	}

	for i, c := range decl.Constructors {
		m, err := newFuncMember(d, MemberConstructor, d.name, reflect.ValueOf(c))
		if err != nil {
			return err
		}
		if m.result != d.t && m.result != reflect.PointerTo(d.t) {
			return &DeclarationError{
				Type:    d.String(),
				Message: fmt.Sprintf("constructor #%d returns %s", i, describeType(m.result)),
			}
		}
		d.constructors = append(d.constructors, m)
	}

	for _, x := range decl.Indexers {
		m, err := newFuncMember(d, MemberIndexer, "Item", reflect.ValueOf(x))
		if err != nil {
			return err
		}
		if m.recvType != d.t && m.recvType != reflect.PointerTo(d.t) {
			return &DeclarationError{
				Type:    d.String(),
				Message: fmt.Sprintf("indexer%s does not take %s first", m.sig, d),
			}
		}
		d.indexers = append(d.indexers, m)
	}
	return nil
}

// structFields lists the exported fields selectable on t, except those
// promoted through the embedded base, which are inherited instead. Names that
// are ambiguous at their shallowest depth are dropped.
func structFields(t reflect.Type) []reflect.StructField {
	skipBase := embeddedBase(t) != nil
	type cand struct {
		f     reflect.StructField
		count int
	}
	best := map[string]*cand{}
	var order []string
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() {
			continue
		}
		if skipBase && len(f.Index) > 1 && f.Index[0] == 0 {
			continue
		}
		c, ok := best[f.Name]
		switch {
		case !ok:
			best[f.Name] = &cand{f: f, count: 1}
			order = append(order, f.Name)
		case len(f.Index) < len(c.f.Index):
			c.f, c.count = f, 1
		case len(f.Index) == len(c.f.Index):
			c.count++
		}
	}
	res := make([]reflect.StructField, 0, len(order))
	for _, name := range order {
		if c := best[name]; c.count == 1 {
			res = append(res, c.f)
		}
	}
	return res
}

// promotedFrom reports whether the method name of t is the one promoted from
// its embedded base rather than declared on t. Promoted methods are compiler
// generated wrappers.
func promotedFrom(t, base reflect.Type, name string) bool {
	if _, ok := base.MethodByName(name); !ok {
		return false
	}
	// a value method reached through *T is a wrapper too, so look at T first
	st := t
	if t.Kind() == reflect.Pointer {
		st = t.Elem()
	}
	meth, ok := st.MethodByName(name)
	if !ok {
		meth, ok = t.MethodByName(name)
	}
	if !ok {
		return false
	}
	return generated(meth.Func)
}

func generated(fn reflect.Value) bool {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return false
	}
	file, _ := f.FileLine(f.Entry())
	return file == "<autogenerated>"
}

// finalize removes repeated members (the same member reached through several
// paths) and sorts.
func finalize(ms []*Member) []*Member {
	if len(ms) == 0 {
		return emptyMembers
	}
	seen := make(map[*Member]struct{}, len(ms))
	res := make([]*Member, 0, len(ms))
	for _, m := range ms {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		res = append(res, m)
	}
	slices.SortFunc(res, (*Member).Compare)
	return res
}

func describeType(t reflect.Type) string {
	if t == nil {
		return "nothing"
	}
	return t.String()
}
