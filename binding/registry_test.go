package binding

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestGetIsStable(t *testing.T) {
	r := NewRegistry()
	for _, rt := range []reflect.Type{
		reflect.TypeFor[int](),
		reflect.TypeFor[Dog](),
		reflect.TypeFor[*Dog](),
		reflect.TypeFor[map[string][]Money](),
	} {
		a, err := r.Get(rt)
		if err != nil {
			t.Fatalf("Get(%s): %v", rt, err)
		}
		b := r.MustGet(rt)
		if a != b {
			t.Errorf("Get(%s) returned two descriptors", rt)
		}
		if !a.Is(rt) {
			t.Errorf("descriptor of %s describes %s", rt, a.Reflect())
		}
	}
}

func TestGetNil(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(nil)
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	d, err := r.TypeOf(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !d.Is(anyType) {
		t.Errorf("TypeOf(nil) = %s, want interface {}", d)
	}
}

func TestGetDescribesDependencies(t *testing.T) {
	r := NewRegistry()
	n := r.Len()
	r.MustGet(reflect.TypeFor[*Puppy]())
	for _, rt := range []reflect.Type{
		reflect.TypeFor[Puppy](),
		reflect.TypeFor[*Dog](),
		reflect.TypeFor[*Animal](),
		reflect.TypeFor[Animal](),
	} {
		if r.lookup(rt) == nil {
			t.Errorf("%s was not described", rt)
		}
	}
	if r.Len() <= n {
		t.Errorf("Len did not grow: %d -> %d", n, r.Len())
	}
}

func TestFailedDescriptionNotCached(t *testing.T) {
	tests := []struct {
		name string
		rt   reflect.Type
	}{
		{"non-func constructor", reflect.TypeFor[badCtor]()},
		{"operator without own type", reflect.TypeFor[badOperator]()},
		{"panicking Declare", reflect.TypeFor[panicky]()},
		{"field of bad type is fine", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRegistry()
			if tc.rt == nil {
				// fields are catalogued without describing their types
				if _, err := r.Get(reflect.TypeFor[Holder]()); err != nil {
					t.Fatalf("Get(Holder): %v", err)
				}
				return
			}
			n := r.Len()
			for range 2 {
				_, err := r.Get(tc.rt)
				if !errors.Is(err, ErrInvalidDeclaration) {
					t.Fatalf("expected ErrInvalidDeclaration, got %v", err)
				}
				var de *DeclarationError
				if !errors.As(err, &de) {
					t.Fatalf("expected *DeclarationError, got %T", err)
				}
			}
			if r.Len() != n {
				t.Errorf("failed build leaked descriptors: %d -> %d", n, r.Len())
			}
		})
	}
}

func TestConcurrentGet(t *testing.T) {
	types := []reflect.Type{
		reflect.TypeFor[Dog](),
		reflect.TypeFor[*Puppy](),
		reflect.TypeFor[Money](),
		reflect.TypeFor[*Money](),
		reflect.TypeFor[[]Money](),
		reflect.TypeFor[Meters](),
		reflect.TypeFor[Feet](),
		reflect.TypeFor[*Grid](),
		reflect.TypeFor[map[Color][]*Dog](),
		reflect.TypeFor[Box[Celsius]](),
	}
	r := NewRegistry()
	const workers = 16
	results := make([][]*Type, workers)
	var wg sync.WaitGroup
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := make([]*Type, len(types))
			for i := range types {
				// each worker walks the list from a different offset
				j := (i + w) % len(types)
				d, err := r.Get(types[j])
				if err != nil {
					t.Errorf("Get(%s): %v", types[j], err)
					return
				}
				res[j] = d
			}
			results[w] = res
		}()
	}
	wg.Wait()
	for w := 1; w < workers; w++ {
		for i := range types {
			if results[w][i] != results[0][i] {
				t.Errorf("worker %d got a different descriptor for %s", w, types[i])
			}
		}
	}
	for _, d := range r.Types() {
		if r.MustGet(d.Reflect()) != d {
			t.Errorf("registry lists a stale descriptor for %s", d)
		}
	}
	meters := r.MustGet(reflect.TypeFor[Meters]())
	feet := r.MustGet(reflect.TypeFor[Feet]())
	if len(feet.ImplicitConvertFrom()) != 1 || feet.ImplicitConvertFrom()[0] != meters.ImplicitConvertTo()[0] {
		t.Errorf("conversion not linked under concurrency: %v", feet.ImplicitConvertFrom())
	}
}

func TestTypesDeterministic(t *testing.T) {
	names := func(order []reflect.Type) []string {
		r := NewRegistry()
		for _, rt := range order {
			r.MustGet(rt)
		}
		var res []string
		for _, d := range r.Types() {
			res = append(res, d.String())
		}
		return res
	}
	a := names([]reflect.Type{reflect.TypeFor[Money](), reflect.TypeFor[Dog](), reflect.TypeFor[Meters]()})
	b := names([]reflect.Type{reflect.TypeFor[Meters](), reflect.TypeFor[Dog](), reflect.TypeFor[Money]()})
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Types() depends on population order (-a +b):\n%s", diff)
	}
}

func TestWithInterfaces(t *testing.T) {
	type sounder interface{ Sound() string }
	r := NewRegistry(WithInterfaces(reflect.TypeFor[sounder](), reflect.TypeFor[int]()))
	d := r.MustGet(reflect.TypeFor[Dog]())
	var got []string
	for _, it := range d.Interfaces() {
		got = append(got, it.String())
	}
	want := []string{"binding.sounder"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("interfaces (-want +got):\n%s", diff)
	}
	if m := r.MustGet(reflect.TypeFor[Money]()); len(m.Interfaces()) != 1 || !m.Interfaces()[0].Is(reflect.TypeFor[fmt.Stringer]()) {
		t.Errorf("Money interfaces = %v", m.Interfaces())
	}
}

func TestInterfaceMethodInvoke(t *testing.T) {
	type sounder interface{ Sound() string }
	r := NewRegistry()
	it := r.MustGet(reflect.TypeFor[sounder]())
	ms := it.GetMembers("Sound")
	if len(ms) != 1 {
		t.Fatalf("Sound members = %v", ms)
	}
	// Dog's own method set puts Describe first, so the call must go through
	// the interface's index
	tests := []struct {
		name string
		recv reflect.Value
	}{
		{"concrete", reflect.ValueOf(Dog{})},
		{"interface", reflect.ValueOf(&[]sounder{Dog{}}[0]).Elem()},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := ms[0].Invoke(tc.recv, nil)
			if err != nil {
				t.Fatal(err)
			}
			if out.String() != "woof" {
				t.Errorf("Sound() = %q", out.String())
			}
		})
	}
	var nilSounder sounder
	if _, err := ms[0].Invoke(reflect.ValueOf(&nilSounder).Elem(), nil); !errors.Is(err, ErrNilReference) {
		t.Errorf("expected %v, got %v", ErrNilReference, err)
	}
}
