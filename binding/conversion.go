package binding

import (
	"fmt"
	"math"
	"reflect"
)

// Rank classifies how a value converts to a target type. Lower is better.
type Rank int

const (
	RankIdentity Rank = iota
	RankNumericWidening
	RankReference
	RankUserImplicit
	RankExplicit
	RankNone
)

func (r Rank) String() string {
	switch r {
	case RankIdentity:
		return "identity"
	case RankNumericWidening:
		return "numeric widening"
	case RankReference:
		return "reference"
	case RankUserImplicit:
		return "user implicit"
	case RankExplicit:
		return "explicit"
	}
	return "none"
}

// Cost is a Rank refined by a depth within the rank, such as the number of
// upcasts. Costs of several arguments are summed during resolution.
type Cost int

const (
	costScale = 100
	// boxing into any ranks after every upcast and specific interface
	anyDepth = 50

	NoConversion = Cost(RankNone * costScale)
)

func costOf(r Rank, depth int) Cost {
	return Cost(int(r)*costScale + depth)
}

func (c Cost) Rank() Rank {
	r := Rank(int(c) / costScale)
	if r > RankNone {
		return RankNone
	}
	return r
}

func (c Cost) Implicit() bool { return c.Rank() < RankExplicit }
func (c Cost) Valid() bool    { return c.Rank() < RankNone }

type ConversionKind int

const (
	ConvNone ConversionKind = iota
	ConvIdentity
	ConvNumeric
	ConvInterface
	ConvUpcast
	ConvWrap
	ConvNil
	ConvUser
	ConvUnwrap
	ConvAssert
	ConvReflect
)

var conversionKindNames = [...]string{
	ConvNone:      "none",
	ConvIdentity:  "identity",
	ConvNumeric:   "numeric",
	ConvInterface: "interface",
	ConvUpcast:    "upcast",
	ConvWrap:      "wrap",
	ConvNil:       "nil",
	ConvUser:      "user",
	ConvUnwrap:    "unwrap",
	ConvAssert:    "assert",
	ConvReflect:   "reflect",
}

func (k ConversionKind) String() string {
	if k < 0 || int(k) >= len(conversionKindNames) {
		return fmt.Sprintf("ConversionKind(%d)", int(k))
	}
	return conversionKindNames[k]
}

// Conversion is a resolved plan for turning a From value into a To value.
// For ConvUser, In and Out convert to the operator's parameter and from its
// result; either is nil when no conversion is needed.
type Conversion struct {
	Kind     ConversionKind
	From, To *Type
	Cost     Cost
	Member   *Member
	In, Out  *Conversion
}

func (c *Conversion) String() string {
	if c.Kind == ConvUser {
		return fmt.Sprintf("%s(%s -> %s via %s)", c.Kind, c.From, c.To, c.Member)
	}
	return fmt.Sprintf("%s(%s -> %s)", c.Kind, c.From, c.To)
}

// ConversionCost ranks the conversion of a from value to to. Explicit
// conversions are only considered when explicit is set.
func (r *Registry) ConversionCost(from, to *Type, explicit bool) Cost {
	c, err := r.ResolveConversion(from, to, explicit)
	if err != nil {
		return NoConversion
	}
	return c.Cost
}

// ResolveConversion finds the best conversion from from to to, trying in
// order standard implicit, user implicit, standard explicit and user explicit
// conversions (the last two only when explicit is set).
func (r *Registry) ResolveConversion(from, to *Type, explicit bool) (*Conversion, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%w: nil conversion endpoint", ErrInvalidArgument)
	}
	if c := standardConversion(from, to, false); c != nil {
		return c, nil
	}
	c, err := r.userConversion(from, to, false)
	if c != nil || err != nil || !explicit {
		if c == nil && err == nil {
			err = ErrNoMatch
		}
		return c, conversionError(from, to, err)
	}
	if c := standardConversion(from, to, true); c != nil {
		return c, nil
	}
	c, err = r.userConversion(from, to, true)
	if c == nil && err == nil {
		err = ErrNoMatch
	}
	return c, conversionError(from, to, err)
}

func conversionError(from, to *Type, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*BindError); ok {
		return err
	}
	return newBindError(from, "convert to "+to.String(), nil, err)
}

// standardConversion covers every conversion that needs no declared
// operator. It returns nil when there is none.
func standardConversion(from, to *Type, explicit bool) *Conversion {
	conv := func(k ConversionKind, c Cost) *Conversion {
		return &Conversion{Kind: k, From: from, To: to, Cost: c}
	}
	if from == to {
		return conv(ConvIdentity, costOf(RankIdentity, 0))
	}
	if from.IsPredeclared() && to.IsPredeclared() && from.isNumber && to.isNumber && widens(from.code, to.code) {
		return conv(ConvNumeric, costOf(RankNumericWidening, 0))
	}
	if d := from.baseDistance(to); d > 0 && !to.IsInterface() {
		return conv(ConvUpcast, costOf(RankReference, d))
	}
	if to.IsInterface() && from.t.Implements(to.t) {
		depth := 1
		if to.t == anyType {
			depth = anyDepth
		}
		return conv(ConvInterface, costOf(RankReference, depth))
	}
	if to.isNullable && to.underlyingType == from {
		return conv(ConvWrap, costOf(RankReference, 1))
	}
	if !explicit {
		return nil
	}
	ex := costOf(RankExplicit, 0)
	switch {
	case from.isNumber && to.isNumber:
		return conv(ConvNumeric, ex)
	case from.isNullable && from.underlyingType == to:
		return conv(ConvUnwrap, ex)
	case from.IsInterface() && (from.t == anyType || to.t.Implements(from.t)):
		return conv(ConvAssert, ex)
	case from.code.IsInteger() && to.code == CodeString:
		// Go's integer to string conversion yields a rune, not digits
		return nil
	case from.t.ConvertibleTo(to.t):
		return conv(ConvReflect, ex)
	}
	return nil
}

// widens reports an implicit numeric conversion between predeclared codes:
// to a signed or unsigned integer of at least the same size, from unsigned to
// a larger signed integer, from any integer to a float, and float32 to
// float64. int and int64 (and uint and uint64) widen into each other.
func widens(from, to TypeCode) bool {
	if from == to {
		return true
	}
	if from == CodeUintptr || to == CodeUintptr {
		return false
	}
	switch {
	case to.IsFloat():
		return from.IsInteger() || (from == CodeFloat32 && to == CodeFloat64)
	case from.IsFloat():
		return false
	case from.IsSigned() && to.IsSigned(), from.IsUnsigned() && to.IsUnsigned():
		return to.Bits() >= from.Bits()
	case from.IsUnsigned() && to.IsSigned():
		return to.Bits() > from.Bits()
	}
	return false
}

// userConversion picks the best declared conversion from from to to,
// allowing standard implicit conversions on either side of the operator.
func (r *Registry) userConversion(from, to *Type, explicit bool) (*Conversion, error) {
	var cands [][]*Member
	for _, b := range from.baseTypes {
		cands = append(cands, b.ImplicitConvertTo())
		if explicit {
			cands = append(cands, b.ExplicitConvertTo())
		}
	}
	for _, b := range to.baseTypes {
		cands = append(cands, b.ImplicitConvertFrom())
		if explicit {
			cands = append(cands, b.ExplicitConvertFrom())
		}
	}
	var (
		best *Conversion
		tie  bool
		seen = map[*Member]bool{}
	)
	for _, m := range concat(cands...) {
		if seen[m] {
			continue
		}
		seen[m] = true
		param, err := r.Get(m.params[0])
		if err != nil {
			return nil, err
		}
		result, err := r.Get(m.result)
		if err != nil {
			return nil, err
		}
		in := standardConversion(from, param, false)
		out := standardConversion(result, to, false)
		if in == nil || out == nil {
			continue
		}
		rank := RankUserImplicit
		if m.operator == OpExplicit {
			rank = RankExplicit
		}
		c := &Conversion{
			Kind:   ConvUser,
			From:   from,
			To:     to,
			Member: m,
			Cost:   costOf(rank, int(in.Cost.Rank())+int(out.Cost.Rank())),
		}
		if in.Kind != ConvIdentity {
			c.In = in
		}
		if out.Kind != ConvIdentity {
			c.Out = out
		}
		switch {
		case best == nil || c.Cost < best.Cost:
			best, tie = c, false
		case c.Cost == best.Cost:
			tie = true
		}
	}
	if tie {
		return nil, ErrAmbiguous
	}
	return best, nil
}

// LiteralFits reports whether an untyped literal can be represented in t
// without loss. Integer literals fit numeric types that hold their value,
// float literals fit floats, and integers when integral; bool and string
// literals fit types of the same kind.
func LiteralFits(v any, t reflect.Type) bool {
	_, ok := ConvertLiteral(v, t)
	return ok
}

// ConvertLiteral converts an untyped literal to t when it fits.
func ConvertLiteral(v any, t reflect.Type) (reflect.Value, bool) {
	lv := reflect.ValueOf(v)
	if !lv.IsValid() || t == nil {
		return reflect.Value{}, false
	}
	if lv.Type() == t {
		return lv, true
	}
	lc, tc := typeCodeOf(lv.Type()), typeCodeOf(t)
	res := reflect.New(t).Elem()
	switch {
	case t.Kind() == reflect.Interface:
		if lv.Type().Implements(t) {
			res.Set(lv)
			return res, true
		}
		return reflect.Value{}, false
	case lc == CodeBool && tc == CodeBool:
		res.SetBool(lv.Bool())
		return res, true
	case lc == CodeString && tc == CodeString:
		res.SetString(lv.String())
		return res, true
	case lc.IsNumber() && tc.IsNumber():
		f, exact := literalFloat(lv, lc)
		switch {
		case tc.IsFloat():
			if tc == CodeFloat32 && math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
				return reflect.Value{}, false
			}
			res.SetFloat(f)
			return res, true
		case lc.IsFloat() && f != math.Trunc(f):
			return reflect.Value{}, false
		case tc.IsSigned():
			var i int64
			switch {
			case lc.IsSigned():
				i = lv.Int()
			case lc.IsUnsigned():
				if lv.Uint() > math.MaxInt64 {
					return reflect.Value{}, false
				}
				i = int64(lv.Uint())
			default:
				if !exact || f < math.MinInt64 || f >= math.MaxInt64 {
					return reflect.Value{}, false
				}
				i = int64(f)
			}
			if res.OverflowInt(i) {
				return reflect.Value{}, false
			}
			res.SetInt(i)
			return res, true
		default:
			var u uint64
			switch {
			case lc.IsSigned():
				if lv.Int() < 0 {
					return reflect.Value{}, false
				}
				u = uint64(lv.Int())
			case lc.IsUnsigned():
				u = lv.Uint()
			default:
				if !exact || f < 0 || f >= math.MaxUint64 {
					return reflect.Value{}, false
				}
				u = uint64(f)
			}
			if res.OverflowUint(u) {
				return reflect.Value{}, false
			}
			res.SetUint(u)
			return res, true
		}
	}
	return reflect.Value{}, false
}

func literalFloat(v reflect.Value, c TypeCode) (float64, bool) {
	switch {
	case c.IsSigned():
		return float64(v.Int()), true
	case c.IsUnsigned():
		return float64(v.Uint()), true
	}
	f := v.Float()
	return f, !math.IsInf(f, 0) && !math.IsNaN(f)
}
