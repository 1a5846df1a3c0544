package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/signadot/dynexpr/binding"
)

// Money is an amount in cents.
type Money struct {
	Cents int64
}

func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s$%d.%02d", sign, c/100, c%100)
}

func (Money) Declare() binding.Declaration {
	return binding.Declaration{
		Statics: map[string]any{
			"Zero":      Money{},
			"FromCents": func(c int64) Money { return Money{c} },
		},
		Constructors: []any{
			func(units int64) Money { return Money{units * 100} },
			func(units, cents int64) Money { return Money{units*100 + cents} },
		},
		Operators: map[binding.OperatorKind][]any{
			binding.OpAddition:      {func(a, b Money) Money { return Money{a.Cents + b.Cents} }},
			binding.OpSubtraction:   {func(a, b Money) Money { return Money{a.Cents - b.Cents} }},
			binding.OpMultiply:      {func(a Money, n int64) Money { return Money{a.Cents * n} }},
			binding.OpUnaryNegation: {func(a Money) Money { return Money{-a.Cents} }},
			binding.OpGreaterThan:   {func(a, b Money) bool { return a.Cents > b.Cents }},
			binding.OpLessThan:      {func(a, b Money) bool { return a.Cents < b.Cents }},
			binding.OpImplicit:      {func(m Money) float64 { return float64(m.Cents) / 100 }},
		},
	}
}

type Entity struct {
	ID int64
}

func (e Entity) Ref() string { return fmt.Sprintf("#%d", e.ID) }

// Account embeds Entity, which makes Entity its base type.
type Account struct {
	Entity
	Owner   string
	Balance Money
	Tags    []string
}

func (a Account) HasTag(tag string) bool {
	for _, t := range a.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (a Account) Summary(sep string, fields ...string) string {
	return a.Owner + sep + strings.Join(fields, sep)
}

func (Account) Declare() binding.Declaration {
	return binding.Declaration{
		Constructors: []any{
			func(owner string) Account { return Account{Owner: owner} },
			func(owner string, cents int64) Account { return Account{Owner: owner, Balance: Money{cents}} },
		},
		Indexers: []any{
			func(a Account, i int) (string, error) {
				if i < 0 || i >= len(a.Tags) {
					return "", fmt.Errorf("tag %d of %d", i, len(a.Tags))
				}
				return a.Tags[i], nil
			},
		},
	}
}

// demoTypes are the named types expressions may refer to.
var demoTypes = map[string]reflect.Type{
	"Money":   reflect.TypeFor[Money](),
	"Entity":  reflect.TypeFor[Entity](),
	"Account": reflect.TypeFor[Account](),
}
