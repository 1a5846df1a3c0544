package binding

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/signadot/dynexpr/debug"
)

// Registry holds one descriptor per Go type for its whole lifetime.
// Descriptors are built on first use, outside the registry lock, and merged
// under it; the first builder to merge a type wins.
type Registry struct {
	mu    sync.RWMutex
	types map[reflect.Type]*Type

	// guards read-modify-write of conversion families after a merge
	convMu sync.Mutex

	ids        atomic.Uint64
	interfaces []reflect.Type
}

type RegistryOption func(*Registry)

// WithInterfaces adds interface types to the ones every descriptor is checked
// against (error and fmt.Stringer by default). Non-interface types are
// ignored.
func WithInterfaces(ts ...reflect.Type) RegistryOption {
	return func(r *Registry) {
		for _, t := range ts {
			if t == nil || t.Kind() != reflect.Interface || t == anyType {
				continue
			}
			if !containsType(r.interfaces, t) {
				r.interfaces = append(r.interfaces, t)
			}
		}
	}
}

var defaultInterfaces = []reflect.Type{
	errorType,
	reflect.TypeFor[fmt.Stringer](),
}

// NewRegistry returns a registry seeded with any, the known interfaces and
// the predeclared basic types.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		types:      map[reflect.Type]*Type{},
		interfaces: append([]reflect.Type(nil), defaultInterfaces...),
	}
	for _, o := range opts {
		o(r)
	}
	seeds := append([]reflect.Type{anyType}, r.interfaces...)
	for c := CodeBool; c <= CodeString; c++ {
		seeds = append(seeds, predeclared[c])
	}
	for _, t := range seeds {
		r.MustGet(t)
	}
	return r
}

func containsType(ts []reflect.Type, t reflect.Type) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

func (r *Registry) nextID() uint64 {
	return r.ids.Add(1)
}

func (r *Registry) lookup(t reflect.Type) *Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.types[t]
}

// Get returns the descriptor of t, describing it (and everything it depends
// on) when first requested. A failed description is not cached: every later
// request fails the same way.
func (r *Registry) Get(t reflect.Type) (*Type, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil type", ErrInvalidArgument)
	}
	for {
		if d := r.lookup(t); d != nil {
			return d, nil
		}
		b := newBuilder(r)
		d, err := b.build(t)
		if err != nil {
			if debug.Registry() {
				debug.Logf("registry: describing %s failed: %v\n", t, err)
			}
			return nil, err
		}
		if !r.merge(b) {
			if debug.Registry() {
				debug.Logf("registry: lost merge for %s, retrying\n", t)
			}
			continue
		}
		r.link(b.order)
		return d, nil
	}
}

// MustGet is Get for types known to describe cleanly; it panics on error.
func (r *Registry) MustGet(t reflect.Type) *Type {
	d, err := r.Get(t)
	if err != nil {
		panic(err)
	}
	return d
}

// TypeOf describes the dynamic type of v. A nil v is described as any.
func (r *Registry) TypeOf(v any) (*Type, error) {
	if v == nil {
		return r.Get(anyType)
	}
	return r.Get(reflect.TypeOf(v))
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// Types returns every descriptor built so far, ordered by Type.Compare.
func (r *Registry) Types() []*Type {
	r.mu.RLock()
	res := make([]*Type, 0, len(r.types))
	for _, d := range r.types {
		res = append(res, d)
	}
	r.mu.RUnlock()
	sortTypes(res)
	return res
}

// merge publishes a builder's arena. It fails, publishing nothing, when a
// concurrent builder already merged any of the same types.
func (r *Registry) merge(b *builder) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range b.order {
		if _, ok := r.types[d.t]; ok {
			return false
		}
	}
	for _, d := range b.order {
		r.types[d.t] = d
	}
	if debug.Registry() {
		debug.Logf("registry: merged %d type(s), %d total\n", len(b.order), len(r.types))
	}
	return true
}

// link runs after a merge: it attaches each new conversion to the family of
// its other endpoint and sets nullable back-links.
func (r *Registry) link(added []*Type) {
	for _, d := range added {
		if d.isNullable && d.underlyingType != nil {
			d.underlyingType.nullable.CompareAndSwap(nil, d)
		}
	}
	r.convMu.Lock()
	defer r.convMu.Unlock()
	for _, d := range added {
		for f := ImplicitTo; f < numConversionFamilies; f++ {
			for _, m := range d.ConversionFamily(f) {
				other := m.result
				if f == ImplicitFrom || f == ExplicitFrom {
					other = m.params[0]
				}
				o := r.lookup(other)
				if o == nil {
					// endpoints are always described with their declaring type
					panic(fmt.Sprintf("binding: conversion endpoint %s of %s not registered", other, m))
				}
				o.attach(f.mirror(), m)
			}
		}
	}
}

// attach adds m to one conversion family by copy on write. Callers hold the
// registry's convMu.
func (t *Type) attach(f ConversionFamily, m *Member) {
	cur := t.ConversionFamily(f)
	for _, x := range cur {
		if x == m {
			return
		}
	}
	next := make([]*Member, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, m)
	next = finalize(next)
	t.conversions[f].Store(&next)
	if debug.Registry() {
		debug.Logf("registry: %s %s += %s\n", t, f, m)
	}
}
