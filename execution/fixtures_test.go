package execution

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/expression"
)

type Entity struct {
	ID int
}

func (e Entity) Label() string { return fmt.Sprintf("#%d", e.ID) }

type Money struct {
	Cents int64
}

func (m Money) String() string { return fmt.Sprintf("$%d.%02d", m.Cents/100, m.Cents%100) }

func (Money) Declare() binding.Declaration {
	return binding.Declaration{
		Statics: map[string]any{
			"Zero": Money{},
		},
		Constructors: []any{
			func(units int64) Money { return Money{units * 100} },
		},
		Operators: map[binding.OperatorKind][]any{
			binding.OpAddition:      {func(a, b Money) Money { return Money{a.Cents + b.Cents} }},
			binding.OpMultiply:      {func(a Money, n int64) Money { return Money{a.Cents * n} }},
			binding.OpUnaryNegation: {func(a Money) Money { return Money{-a.Cents} }},
			binding.OpImplicit:      {func(m Money) float64 { return float64(m.Cents) / 100 }},
		},
	}
}

type Account struct {
	Entity
	Owner   string
	Balance Money
	Tags    []string
	Limits  map[string]int
}

func (a Account) Greeting(prefix string, names ...string) string {
	return prefix + " " + strings.Join(names, ",")
}

func (a Account) Fail() (int, error) { return 0, errors.New("account failure") }

type Celsius float64

var (
	pA  = expression.Param("a", reflect.TypeFor[Account]())
	pN  = expression.Param("n", reflect.TypeFor[int]())
	pP  = expression.Param("p", reflect.TypeFor[*int]())
	pS  = expression.Param("s", reflect.TypeFor[string]())
	pX  = expression.Param("x", reflect.TypeFor[any]())
	pC  = expression.Param("c", reflect.TypeFor[Celsius]())
	pFn = expression.Param("fn", reflect.TypeFor[func(int) int]())
	pAP = expression.Param("ap", reflect.TypeFor[*Account]())

	params = []*expression.Parameter{pA, pN, pP, pS, pX, pC, pFn, pAP}
)

// env returns parameter values in the order of params, with overrides by
// name.
func env(overrides map[string]any) []any {
	base := map[string]any{
		"a": Account{
			Entity:  Entity{ID: 7},
			Owner:   "ann",
			Balance: Money{250},
			Tags:    []string{"a", "b"},
			Limits:  map[string]int{"x": 3},
		},
		"n":  4,
		"p":  nil,
		"s":  "s",
		"x":  nil,
		"c":  Celsius(20.5),
		"fn": func(i int) int { return i * i },
		"ap": (*Account)(nil),
	}
	for k, v := range overrides {
		base[k] = v
	}
	res := make([]any, len(params))
	for i, p := range params {
		res[i] = base[p.Name]
	}
	return res
}

func lit(v any) *expression.Constant { return expression.Literal(v) }

func bin(op expression.BinaryOp, l, r expression.Node) *expression.Binary {
	return &expression.Binary{Op: op, Left: l, Right: r}
}

func field(target expression.Node, name string) *expression.Member {
	return &expression.Member{Target: target, Name: name}
}
