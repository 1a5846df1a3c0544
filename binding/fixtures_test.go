package binding

import (
	"errors"
	"fmt"
	"strings"
)

type Animal struct {
	Name string
	legs int
}

func (a Animal) Describe() string { return a.Name + " has " + fmt.Sprint(a.legs) + " legs" }
func (a Animal) Sound() string    { return "..." }

type Dog struct {
	Animal
	Breed string
}

func (d Dog) Sound() string { return "woof" }

type Puppy struct {
	*Dog
	Age int
}

type Color int8

func (c Color) String() string {
	switch c {
	case 0:
		return "red"
	case 1:
		return "green"
	}
	return "blue"
}

type Celsius float64

type Box[T any] struct {
	Value T
}

type Money struct {
	Cents int64
}

func (m Money) String() string { return fmt.Sprintf("$%d.%02d", m.Cents/100, m.Cents%100) }

func (m Money) Add(o Money) Money { return Money{m.Cents + o.Cents} }

func (m Money) Split(n int) ([]Money, error) {
	if n <= 0 {
		return nil, errors.New("split into zero parts")
	}
	res := make([]Money, n)
	for i := range res {
		res[i] = Money{m.Cents / int64(n)}
	}
	return res, nil
}

func (Money) Declare() Declaration {
	return Declaration{
		Statics: map[string]any{
			"Zero":      Money{},
			"FromCents": func(c int64) Money { return Money{c} },
			"Sum": func(ms ...Money) Money {
				var t Money
				for _, m := range ms {
					t = t.Add(m)
				}
				return t
			},
		},
		Constructors: []any{
			func(units int64) Money { return Money{units * 100} },
			func(units, cents int64) Money { return Money{units*100 + cents} },
		},
		Operators: map[OperatorKind][]any{
			OpAddition: {func(a, b Money) Money { return a.Add(b) }},
			OpMultiply: {
				func(a Money, n int64) Money { return Money{a.Cents * n} },
				func(n int64, a Money) Money { return Money{a.Cents * n} },
			},
			OpUnaryNegation: {func(a Money) Money { return Money{-a.Cents} }},
			OpEquality:      {func(a, b Money) bool { return a.Cents == b.Cents }},
			OpImplicit:      {func(m Money) float64 { return float64(m.Cents) / 100 }},
			OpExplicit:      {func(f float64) Money { return Money{int64(f * 100)} }},
		},
	}
}

type Feet float64

type Meters float64

func (Meters) Declare() Declaration {
	return Declaration{
		Operators: map[OperatorKind][]any{
			OpImplicit: {func(m Meters) Feet { return Feet(m * 3.28084) }},
		},
	}
}

type Grid struct {
	W     int
	Cells []int
}

func (g *Grid) At(x, y int) int { return g.Cells[y*g.W+x] }

func (g *Grid) Row(y int) []int { return g.Cells[y*g.W : (y+1)*g.W] }

func (Grid) Declare() Declaration {
	return Declaration{
		Indexers: []any{(*Grid).At, (*Grid).Row},
	}
}

// Pair has constructors that no integer arguments can choose between.
type Pair struct {
	A, B float64
}

func (Pair) Declare() Declaration {
	return Declaration{
		Constructors: []any{
			func(a int64, b float64) Pair { return Pair{float64(a), b} },
			func(a float64, b int64) Pair { return Pair{a, float64(b)} },
		},
	}
}

// Blend has constructors each cheaper for one of two int arguments.
type Blend struct {
	A, B any
}

func (Blend) Declare() Declaration {
	return Declaration{
		Constructors: []any{
			func(a int64, b any) Blend { return Blend{a, b} },
			func(a any, b int) Blend { return Blend{a, b} },
		},
	}
}

// Scale has constructors one of which is more specific for integers.
type Scale struct {
	F float64
}

func (Scale) Declare() Declaration {
	return Declaration{
		Constructors: []any{
			func(i int64) Scale { return Scale{float64(i) * 10} },
			func(f float64) Scale { return Scale{f} },
		},
	}
}

type Shouter struct{}

func (Shouter) Shout(s string) string { return strings.ToUpper(s) + "!" }
func (Shouter) Panic() string         { panic("shouter broke") }
func (Shouter) Pair() (int, int)      { return 1, 2 }

type badCtor struct{}

func (badCtor) Declare() Declaration {
	return Declaration{Constructors: []any{42}}
}

type badOperator struct{}

func (badOperator) Declare() Declaration {
	return Declaration{
		Operators: map[OperatorKind][]any{
			OpAddition: {func(a, b int) int { return a + b }},
		},
	}
}

type panicky struct{}

func (panicky) Declare() Declaration { panic("boom") }

type Holder struct {
	Bad badCtor
}
