package execution

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/expression"
)

func intPtr(i int) *int { return &i }

func TestRun(t *testing.T) {
	tests := []struct {
		name string
		tree expression.Node
		args map[string]any
		want any
	}{
		{"literal sum", bin(expression.Add, lit(1), lit(2)), nil, 3},
		{"promote to float", bin(expression.Multiply, pN, lit(2.5)), nil, 10.0},
		{"compare", bin(expression.LessThan, pN, lit(10)), nil, true},
		{"concat", bin(expression.Add, lit("n="), pN), nil, "n=4"},
		{"field", field(pA, "Owner"), nil, "ann"},
		{"inherited field", field(pA, "ID"), nil, 7},
		{"zero arg method", field(pA, "Label"), nil, "#7"},
		{"variadic call", &expression.Call{Target: pA, Method: "Greeting", Arguments: []expression.Node{lit("hi"), lit("x"), lit("y")}}, nil, "hi x,y"},
		{"operator overload", bin(expression.Add, field(pA, "Balance"), field(pA, "Balance")), nil, Money{500}},
		{"operator with literal", bin(expression.Multiply, field(pA, "Balance"), lit(3)), nil, Money{750}},
		{"unary overload", &expression.Unary{Op: expression.Negate, Operand: field(pA, "Balance")}, nil, Money{-250}},
		{"user conversion", &expression.Convert{Operand: field(pA, "Balance"), Type: reflect.TypeFor[float64]()}, nil, 2.5},
		{"explicit numeric", &expression.Convert{Operand: lit(3.75), Type: reflect.TypeFor[int]()}, nil, 3},
		{"static field", &expression.Member{Type: reflect.TypeFor[Money](), Name: "Zero"}, nil, Money{}},
		{"constructor", &expression.New{Type: reflect.TypeFor[Money](), Arguments: []expression.Node{lit(5)}}, nil, Money{500}},
		{"zero value", &expression.New{Type: reflect.TypeFor[Entity]()}, nil, Entity{}},
		{"new array", &expression.NewArray{ElemType: reflect.TypeFor[int](), Elements: []expression.Node{lit(1), pN}}, nil, []int{1, 4}},
		{"slice index", &expression.Index{Target: field(pA, "Tags"), Arguments: []expression.Node{lit(1)}}, nil, "b"},
		{"map index", &expression.Index{Target: field(pA, "Limits"), Arguments: []expression.Node{lit("x")}}, nil, 3},
		{"map key as member", field(field(pA, "Limits"), "x"), nil, 3},
		{"map miss", &expression.Index{Target: field(pA, "Limits"), Arguments: []expression.Node{lit("zz")}}, nil, 0},
		{"conditional", &expression.Conditional{Test: bin(expression.GreaterThan, pN, lit(3)), IfTrue: lit("big"), IfFalse: lit("small")}, nil, "big"},
		{"coalesce nil", bin(expression.Coalesce, pP, lit(9)), nil, 9},
		{"coalesce value", bin(expression.Coalesce, pP, lit(9)), map[string]any{"p": intPtr(5)}, 5},
		{"short circuit", bin(expression.OrElse, lit(true), bin(expression.Equal, bin(expression.Divide, pN, lit(0)), lit(1))), nil, true},
		{"power", bin(expression.Power, lit(2), lit(10)), nil, 1024.0},
		{"default", &expression.Default{Type: reflect.TypeFor[int]()}, nil, 0},
		{"invoke", &expression.Invoke{Func: pFn, Arguments: []expression.Node{lit(3)}}, nil, 9},
		{"nil equality", bin(expression.Equal, pP, expression.Const(nil)), nil, true},
		{"named numeric", bin(expression.Add, pC, lit(1)), nil, Celsius(21.5)},
		{"unary literal", &expression.Unary{Op: expression.Negate, Operand: lit(5)}, nil, -5},
		{"bool xor", bin(expression.ExclusiveOr, lit(true), bin(expression.Equal, pS, lit("s"))), nil, false},
		{"shift", bin(expression.LeftShift, pN, lit(2)), nil, 16},
		{"modulo", bin(expression.Modulo, pN, lit(3)), nil, 1},
	}
	reg := binding.NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Compile(reg, tc.tree, nil, params)
			if err != nil {
				t.Fatal(err)
			}
			got, err := n.Run(NewClosure(nil, env(tc.args)...))
			if err != nil {
				t.Fatalf("run %s: %v", n, err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%s: (-want +got)\n%s", n, diff)
			}
		})
	}
}

func TestTypeAsIs(t *testing.T) {
	stringer := reflect.TypeFor[interface{ String() string }]()
	entity := reflect.TypeFor[Entity]()
	entityPtr := reflect.TypeFor[*Entity]()
	derived := Account{Entity: Entity{ID: 7}, Owner: "ann"}
	tests := []struct {
		name string
		tree expression.Node
		x    any
		want any
	}{
		{"as int hit", &expression.TypeAs{Operand: pX, Type: reflect.TypeFor[int]()}, 5, intPtr(5)},
		{"as int miss", &expression.TypeAs{Operand: pX, Type: reflect.TypeFor[int]()}, "five", nil},
		{"as int nil", &expression.TypeAs{Operand: pX, Type: reflect.TypeFor[int]()}, nil, nil},
		{"as interface hit", &expression.TypeAs{Operand: pX, Type: stringer}, Money{1}, Money{1}},
		{"as interface miss", &expression.TypeAs{Operand: pX, Type: stringer}, 5, nil},
		{"is string", &expression.TypeIs{Operand: pX, Type: reflect.TypeFor[string]()}, "s", true},
		{"is not string", &expression.TypeIs{Operand: pX, Type: reflect.TypeFor[string]()}, 5, false},
		{"nil is nothing", &expression.TypeIs{Operand: pX, Type: reflect.TypeFor[string]()}, nil, false},
		{"derived is base", &expression.TypeIs{Operand: pX, Type: entity}, derived, true},
		{"derived pointer is base pointer", &expression.TypeIs{Operand: pX, Type: entityPtr}, &derived, true},
		{"base is not derived", &expression.TypeIs{Operand: pX, Type: reflect.TypeFor[Account]()}, Entity{ID: 7}, false},
		{"derived as base", &expression.TypeAs{Operand: pX, Type: entity}, derived, &Entity{ID: 7}},
		{"derived pointer as base pointer", &expression.TypeAs{Operand: pX, Type: entityPtr}, &derived, &Entity{ID: 7}},
		{"base as derived", &expression.TypeAs{Operand: pX, Type: reflect.TypeFor[*Account]()}, &Entity{ID: 7}, nil},
	}
	reg := binding.NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Compile(reg, tc.tree, nil, params)
			if err != nil {
				t.Fatal(err)
			}
			got, err := n.Run(NewClosure(nil, env(map[string]any{"x": tc.x})...))
			if err != nil {
				t.Fatalf("type tests never fail, got %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
}

func TestTypeAsValueTarget(t *testing.T) {
	asInt := &expression.TypeAs{Operand: pX, Type: reflect.TypeFor[int]()}
	asBool := &expression.TypeAs{Operand: pX, Type: reflect.TypeFor[bool]()}
	asFloat := &expression.TypeAs{Operand: pX, Type: reflect.TypeFor[float64]()}
	reg := binding.NewRegistry()

	n, err := Compile(reg, asBool, nil, params)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := n.Type().Reflect(), reflect.TypeFor[*bool](); got != want {
		t.Errorf("got static type %s, want %s", got, want)
	}

	invalid := []struct {
		name string
		tree expression.Node
	}{
		{"logical and", bin(expression.AndAlso, asBool, lit(true))},
		{"conditional test", &expression.Conditional{Test: asBool, IfTrue: lit(1), IfFalse: lit(2)}},
		{"power", bin(expression.Power, asFloat, lit(2))},
		{"arithmetic", bin(expression.Add, asInt, lit(1))},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(reg, tc.tree, nil, params)
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CompileError, got %v", err)
			}
		})
	}

	tests := []struct {
		name string
		tree expression.Node
		x    any
		want any
	}{
		{"coalesce hit", bin(expression.Coalesce, asInt, lit(0)), 5, 5},
		{"coalesce miss", bin(expression.Coalesce, asInt, lit(0)), "str", 0},
		{"coalesce bool miss", bin(expression.AndAlso, bin(expression.Coalesce, asBool, lit(false)), lit(true)), "str", false},
		{"power after coalesce", bin(expression.Power, bin(expression.Coalesce, asFloat, lit(3.0)), lit(2)), "str", 9.0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Compile(reg, tc.tree, nil, params)
			if err != nil {
				t.Fatal(err)
			}
			got, err := n.Run(NewClosure(nil, env(map[string]any{"x": tc.x})...))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("%s: (-want +got)\n%s", n, diff)
			}
		})
	}

	n, err = Compile(reg, &expression.Convert{Operand: asInt, Type: reflect.TypeFor[int]()}, nil, params)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := n.Run(NewClosure(nil, env(map[string]any{"x": "str"})...)); !errors.Is(err, binding.ErrNilReference) {
		t.Errorf("expected %v, got %v", binding.ErrNilReference, err)
	}
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		tree expression.Node
		args map[string]any
		want error
	}{
		{"divide by zero", bin(expression.Divide, pN, lit(0)), nil, binding.ErrDivideByZero},
		{"nil receiver", field(pAP, "Owner"), nil, binding.ErrNilReference},
		{"index out of range", &expression.Index{Target: field(pA, "Tags"), Arguments: []expression.Node{lit(5)}}, nil, binding.ErrInvalidOperation},
		{"wrong parameter type", pN, map[string]any{"n": "four"}, binding.ErrInvalidCast},
		{"unwrap nil", &expression.Convert{Operand: pP, Type: reflect.TypeFor[int]()}, nil, binding.ErrNilReference},
	}
	reg := binding.NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			n, err := Compile(reg, tc.tree, nil, params)
			if err != nil {
				t.Fatal(err)
			}
			_, err = n.Run(NewClosure(nil, env(tc.args)...))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var re *binding.RuntimeError
			if !errors.As(err, &re) {
				t.Errorf("expected *binding.RuntimeError, got %T", err)
			}
		})
	}
}

func TestMemberError(t *testing.T) {
	reg := binding.NewRegistry()
	n, err := Compile(reg, &expression.Call{Target: pA, Method: "Fail"}, nil, params)
	if err != nil {
		t.Fatal(err)
	}
	_, err = n.Run(NewClosure(nil, env(nil)...))
	var re *binding.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *binding.RuntimeError, got %v", err)
	}
	if re.Err.Error() != "account failure" {
		t.Errorf("got %q", re.Err)
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		tree expression.Node
		want error
	}{
		{"unknown member", field(pA, "Nope"), binding.ErrNoMatch},
		{"no overload", &expression.Call{Target: pA, Method: "Greeting", Arguments: []expression.Node{pN}}, binding.ErrNoMatch},
		{"mismatched operands", bin(expression.Subtract, pS, pN), binding.ErrInvalidOperation},
		{"undeclared parameter", expression.Param("zz", reflect.TypeFor[int]()), binding.ErrInvalidArgument},
		{"nil to value", &expression.Convert{Operand: expression.Const(nil), Type: reflect.TypeFor[int]()}, binding.ErrInvalidCast},
		{"literal division by zero", bin(expression.Divide, lit(1), lit(0)), binding.ErrDivideByZero},
		{"missing child", &expression.Unary{Op: expression.Not}, binding.ErrInvalidArgument},
	}
	reg := binding.NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile(reg, tc.tree, nil, params)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Errorf("expected *CompileError, got %T", err)
			}
		})
	}
}

func TestClosureConstants(t *testing.T) {
	reg := binding.NewRegistry()
	k := expression.Const(10)
	n, err := Compile(reg, bin(expression.Add, k, pN), []*expression.Constant{k}, params)
	if err != nil {
		t.Fatal(err)
	}
	got, err := n.Run(NewClosure([]any{32}, env(nil)...))
	if err != nil {
		t.Fatal(err)
	}
	if got != 36 {
		t.Errorf("got %v, want 36", got)
	}
}

func TestNodeString(t *testing.T) {
	reg := binding.NewRegistry()
	tests := []struct {
		tree expression.Node
		want string
	}{
		{bin(expression.Add, pN, lit(1)), "(n + 1)"},
		{field(pA, "Owner"), "a.Owner"},
		{&expression.Convert{Operand: pN, Type: reflect.TypeFor[float64]()}, "float64(n)"},
	}
	for _, tc := range tests {
		n, err := Compile(reg, tc.tree, nil, params)
		if err != nil {
			t.Fatal(err)
		}
		if got := n.String(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestConcurrentRun(t *testing.T) {
	reg := binding.NewRegistry()
	n, err := Compile(reg, bin(expression.Multiply, pN, pN), nil, params)
	if err != nil {
		t.Fatal(err)
	}
	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := n.Run(NewClosure(nil, env(map[string]any{"n": i})...))
			if err == nil && got != i*i {
				err = errors.New("wrong product")
			}
			errs[i] = err
		}()
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Errorf("worker %d: %v", i, err)
		}
	}
}
