package dynexpr

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/frontend"
)

type Money struct {
	Cents int64
}

func (Money) Declare() binding.Declaration {
	return binding.Declaration{
		Statics: map[string]any{
			"Zero": Money{},
		},
		Constructors: []any{
			func(units int64) Money { return Money{units * 100} },
		},
		Operators: map[binding.OperatorKind][]any{
			binding.OpAddition: {func(a, b Money) Money { return Money{a.Cents + b.Cents} }},
			binding.OpMultiply: {func(a Money, n int64) Money { return Money{a.Cents * n} }},
		},
	}
}

type Order struct {
	Item  string
	Price Money
	Qty   int64
}

func (o Order) Total() Money { return Money{o.Price.Cents * o.Qty} }

func TestEval(t *testing.T) {
	tests := []struct {
		src  string
		vars map[string]any
		want any
	}{
		{"1 + 2 * 3", nil, 7},
		{"a + b", map[string]any{"a": 2, "b": 3.5}, 5.5},
		{"name + '!'", map[string]any{"name": "x"}, "x!"},
		{"n > 2 ? 'many' : 'few'", map[string]any{"n": 3}, "many"},
		{"xs[1]", map[string]any{"xs": []string{"a", "b"}}, "b"},
		{"m.k", map[string]any{"m": map[string]int{"k": 4}}, 4},
		{"2 ** 3", nil, 8.0},
		{"int(7.9)", nil, 7},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			got, err := Eval(tc.src, tc.vars)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
}

func TestCompile(t *testing.T) {
	ev := New(WithTypes(reflect.TypeFor[Money]()))
	order := Order{Item: "pen", Price: Money{250}, Qty: 3}
	tests := []struct {
		src  string
		want any
	}{
		{"o.Price * o.Qty", Money{750}},
		{"o.Total()", Money{750}},
		{"Money(2) + o.Price", Money{450}},
		{"Money.Zero", Money{}},
		{"isType(o.Price, 'Money')", true},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			p, err := ev.Compile(tc.src, P("o", reflect.TypeFor[Order]()))
			if err != nil {
				t.Fatal(err)
			}
			got, err := p.Run(order)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%s: (-want +got)\n%s", p, diff)
			}
			if reflect.TypeOf(got) != p.Type() {
				t.Errorf("got a %T from a program typed %s", got, p.Type())
			}
		})
	}
}

func TestProgramReuse(t *testing.T) {
	ev := New()
	p, err := ev.Compile("x * x + 1", P("x", reflect.TypeFor[int]()))
	if err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		got, err := p.Run(i)
		if err != nil {
			t.Fatal(err)
		}
		if got != i*i+1 {
			t.Errorf("run %d: got %v", i, got)
		}
	}
}

func TestSharedRegistry(t *testing.T) {
	reg := binding.NewRegistry()
	a := New(WithRegistry(reg))
	b := New(WithRegistry(reg), WithType("Cash", reflect.TypeFor[Money]()))
	if _, err := a.Eval("1 + 1", nil); err != nil {
		t.Fatal(err)
	}
	got, err := b.Eval("Cash(1) + Cash.Zero", nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Money{100}, got); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
	if a.Registry != b.Registry {
		t.Error("expected the registry to be shared")
	}
}

func TestErrors(t *testing.T) {
	ev := New(WithTypes(reflect.TypeFor[Money]()))
	if _, err := ev.Compile("y + 1", P("x", reflect.TypeFor[int]())); !errors.Is(err, frontend.ErrUndefined) {
		t.Errorf("expected %v, got %v", frontend.ErrUndefined, err)
	}
	if _, err := ev.Compile("m - m", P("m", reflect.TypeFor[Money]())); !errors.Is(err, binding.ErrInvalidOperation) {
		t.Errorf("expected %v, got %v", binding.ErrInvalidOperation, err)
	}
	if _, err := ev.Compile("x", Param{Name: "x"}); !errors.Is(err, binding.ErrInvalidArgument) {
		t.Errorf("expected %v, got %v", binding.ErrInvalidArgument, err)
	}
	p, err := ev.Compile("10 / x", P("x", reflect.TypeFor[int]()))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(); !errors.Is(err, binding.ErrInvalidArgument) {
		t.Errorf("expected %v, got %v", binding.ErrInvalidArgument, err)
	}
	_, err = p.Run(0)
	var re *binding.RuntimeError
	if !errors.As(err, &re) || !errors.Is(err, binding.ErrDivideByZero) {
		t.Errorf("expected a divide by zero runtime error, got %v", err)
	}
}
