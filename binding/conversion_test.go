package binding

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

func TestConversionCost(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		from, to reflect.Type
		implicit Rank
		explicit Rank
	}{
		{reflect.TypeFor[int](), reflect.TypeFor[int](), RankIdentity, RankIdentity},
		{reflect.TypeFor[int](), reflect.TypeFor[int64](), RankNumericWidening, RankNumericWidening},
		{reflect.TypeFor[int64](), reflect.TypeFor[int](), RankNumericWidening, RankNumericWidening},
		{reflect.TypeFor[int32](), reflect.TypeFor[int](), RankNumericWidening, RankNumericWidening},
		{reflect.TypeFor[int](), reflect.TypeFor[float64](), RankNumericWidening, RankNumericWidening},
		{reflect.TypeFor[uint8](), reflect.TypeFor[int16](), RankNumericWidening, RankNumericWidening},
		{reflect.TypeFor[float32](), reflect.TypeFor[float64](), RankNumericWidening, RankNumericWidening},
		{reflect.TypeFor[uint32](), reflect.TypeFor[int32](), RankNone, RankExplicit},
		{reflect.TypeFor[float64](), reflect.TypeFor[int](), RankNone, RankExplicit},
		{reflect.TypeFor[Color](), reflect.TypeFor[int8](), RankNone, RankExplicit},
		{reflect.TypeFor[int8](), reflect.TypeFor[Color](), RankNone, RankExplicit},
		{reflect.TypeFor[Celsius](), reflect.TypeFor[float64](), RankNone, RankExplicit},
		{reflect.TypeFor[Dog](), reflect.TypeFor[Animal](), RankReference, RankReference},
		{reflect.TypeFor[*Puppy](), reflect.TypeFor[*Animal](), RankReference, RankReference},
		{reflect.TypeFor[Dog](), reflect.TypeFor[any](), RankReference, RankReference},
		{reflect.TypeFor[Money](), reflect.TypeFor[fmt.Stringer](), RankReference, RankReference},
		{reflect.TypeFor[int](), reflect.TypeFor[*int](), RankReference, RankReference},
		{reflect.TypeFor[*int](), reflect.TypeFor[int](), RankNone, RankExplicit},
		{reflect.TypeFor[any](), reflect.TypeFor[Money](), RankNone, RankExplicit},
		{reflect.TypeFor[fmt.Stringer](), reflect.TypeFor[Money](), RankNone, RankExplicit},
		{reflect.TypeFor[fmt.Stringer](), reflect.TypeFor[Dog](), RankNone, RankNone},
		{reflect.TypeFor[Money](), reflect.TypeFor[float64](), RankUserImplicit, RankUserImplicit},
		{reflect.TypeFor[float64](), reflect.TypeFor[Money](), RankNone, RankExplicit},
		{reflect.TypeFor[int](), reflect.TypeFor[Money](), RankNone, RankExplicit},
		{reflect.TypeFor[Meters](), reflect.TypeFor[Feet](), RankUserImplicit, RankUserImplicit},
		{reflect.TypeFor[Feet](), reflect.TypeFor[Meters](), RankNone, RankExplicit},
		{reflect.TypeFor[int](), reflect.TypeFor[string](), RankNone, RankNone},
		{reflect.TypeFor[Animal](), reflect.TypeFor[Dog](), RankNone, RankNone},
	}
	for _, tc := range tests {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			from, to := r.MustGet(tc.from), r.MustGet(tc.to)
			if got := r.ConversionCost(from, to, false).Rank(); got != tc.implicit {
				t.Errorf("implicit rank = %s, want %s", got, tc.implicit)
			}
			if got := r.ConversionCost(from, to, true).Rank(); got != tc.explicit {
				t.Errorf("explicit rank = %s, want %s", got, tc.explicit)
			}
		})
	}
}

func TestConversionCostDepth(t *testing.T) {
	r := NewRegistry()
	puppy := r.MustGet(reflect.TypeFor[Puppy]())
	dog := r.MustGet(reflect.TypeFor[Dog]())
	animal := r.MustGet(reflect.TypeFor[Animal]())
	top := r.MustGet(reflect.TypeFor[any]())
	a := r.ConversionCost(puppy, dog, false)
	b := r.ConversionCost(puppy, animal, false)
	c := r.ConversionCost(puppy, top, false)
	if !(a < b && b < c) {
		t.Errorf("costs not ordered by distance: %d %d %d", a, b, c)
	}
}

func TestResolveConversionPlan(t *testing.T) {
	r := NewRegistry()
	intT := r.MustGet(reflect.TypeFor[int]())
	money := r.MustGet(reflect.TypeFor[Money]())

	c, err := r.ResolveConversion(intT, money, true)
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind != ConvUser || c.Member == nil || c.In == nil || c.In.Kind != ConvNumeric || c.Out != nil {
		t.Errorf("int -> Money plan = %s in=%v out=%v", c, c.In, c.Out)
	}

	_, err = r.ResolveConversion(intT, money, false)
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("implicit int -> Money err = %v", err)
	}
	var be *BindError
	if !errors.As(err, &be) || be.Type != "int" {
		t.Errorf("expected *BindError on int, got %#v", err)
	}
	if _, err := r.ResolveConversion(nil, money, false); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("nil from err = %v", err)
	}
}

func TestConvertLiteral(t *testing.T) {
	tests := []struct {
		v    any
		to   reflect.Type
		want any
		ok   bool
	}{
		{1, reflect.TypeFor[int64](), int64(1), true},
		{255, reflect.TypeFor[uint8](), uint8(255), true},
		{256, reflect.TypeFor[uint8](), nil, false},
		{-1, reflect.TypeFor[uint](), nil, false},
		{2, reflect.TypeFor[float32](), float32(2), true},
		{2.0, reflect.TypeFor[int](), 2, true},
		{2.5, reflect.TypeFor[int](), nil, false},
		{3, reflect.TypeFor[Color](), Color(3), true},
		{"x", reflect.TypeFor[string](), "x", true},
		{"x", reflect.TypeFor[int](), nil, false},
		{true, reflect.TypeFor[bool](), true, true},
		{7, reflect.TypeFor[any](), 7, true},
	}
	for _, tc := range tests {
		v, ok := ConvertLiteral(tc.v, tc.to)
		if ok != tc.ok {
			t.Errorf("ConvertLiteral(%v, %s) ok = %t", tc.v, tc.to, ok)
			continue
		}
		if ok && v.Interface() != tc.want {
			t.Errorf("ConvertLiteral(%v, %s) = %#v, want %#v", tc.v, tc.to, v.Interface(), tc.want)
		}
	}
}
