package execution

import (
	"cmp"
	"fmt"
	"math"
	"reflect"

	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/expression"
)

type numClass int

const (
	classSigned numClass = iota
	classUnsigned
	classFloat
)

func classOf(c binding.TypeCode) numClass {
	switch {
	case c.IsSigned():
		return classSigned
	case c.IsUnsigned():
		return classUnsigned
	}
	return classFloat
}

// arithFunc computes a op b into res. All three share one numeric type.
type arithFunc func(a, b, res reflect.Value) error

func arithmetic(op expression.BinaryOp, c binding.TypeCode) arithFunc {
	switch classOf(c) {
	case classSigned:
		f := signedOp(op)
		if f == nil {
			return nil
		}
		return func(a, b, res reflect.Value) error {
			x, err := f(a.Int(), b.Int())
			if err != nil {
				return err
			}
			res.SetInt(x)
			return nil
		}
	case classUnsigned:
		f := unsignedOp(op)
		if f == nil {
			return nil
		}
		return func(a, b, res reflect.Value) error {
			x, err := f(a.Uint(), b.Uint())
			if err != nil {
				return err
			}
			res.SetUint(x)
			return nil
		}
	}
	f := floatOp(op)
	if f == nil {
		return nil
	}
	return func(a, b, res reflect.Value) error {
		res.SetFloat(f(a.Float(), b.Float()))
		return nil
	}
}

func signedOp(op expression.BinaryOp) func(a, b int64) (int64, error) {
	switch op {
	case expression.Add:
		return func(a, b int64) (int64, error) { return a + b, nil }
	case expression.Subtract:
		return func(a, b int64) (int64, error) { return a - b, nil }
	case expression.Multiply:
		return func(a, b int64) (int64, error) { return a * b, nil }
	case expression.Divide:
		return func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, binding.ErrDivideByZero
			}
			return a / b, nil
		}
	case expression.Modulo:
		return func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, binding.ErrDivideByZero
			}
			return a % b, nil
		}
	case expression.And:
		return func(a, b int64) (int64, error) { return a & b, nil }
	case expression.Or:
		return func(a, b int64) (int64, error) { return a | b, nil }
	case expression.ExclusiveOr:
		return func(a, b int64) (int64, error) { return a ^ b, nil }
	}
	return nil
}

func unsignedOp(op expression.BinaryOp) func(a, b uint64) (uint64, error) {
	switch op {
	case expression.Add:
		return func(a, b uint64) (uint64, error) { return a + b, nil }
	case expression.Subtract:
		return func(a, b uint64) (uint64, error) { return a - b, nil }
	case expression.Multiply:
		return func(a, b uint64) (uint64, error) { return a * b, nil }
	case expression.Divide:
		return func(a, b uint64) (uint64, error) {
			if b == 0 {
				return 0, binding.ErrDivideByZero
			}
			return a / b, nil
		}
	case expression.Modulo:
		return func(a, b uint64) (uint64, error) {
			if b == 0 {
				return 0, binding.ErrDivideByZero
			}
			return a % b, nil
		}
	case expression.And:
		return func(a, b uint64) (uint64, error) { return a & b, nil }
	case expression.Or:
		return func(a, b uint64) (uint64, error) { return a | b, nil }
	case expression.ExclusiveOr:
		return func(a, b uint64) (uint64, error) { return a ^ b, nil }
	}
	return nil
}

func floatOp(op expression.BinaryOp) func(a, b float64) float64 {
	switch op {
	case expression.Add:
		return func(a, b float64) float64 { return a + b }
	case expression.Subtract:
		return func(a, b float64) float64 { return a - b }
	case expression.Multiply:
		return func(a, b float64) float64 { return a * b }
	case expression.Divide:
		return func(a, b float64) float64 { return a / b }
	case expression.Modulo:
		return math.Mod
	}
	return nil
}

// compareFunc orders two values of one numeric or string type.
type compareFunc func(a, b reflect.Value) int

func comparer(t *binding.Type) compareFunc {
	c := t.Code()
	switch {
	case c == binding.CodeString:
		return func(a, b reflect.Value) int { return cmp.Compare(a.String(), b.String()) }
	case !c.IsNumber():
		return nil
	}
	switch classOf(c) {
	case classSigned:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Int(), b.Int()) }
	case classUnsigned:
		return func(a, b reflect.Value) int { return cmp.Compare(a.Uint(), b.Uint()) }
	}
	return func(a, b reflect.Value) int { return cmp.Compare(a.Float(), b.Float()) }
}

// promote picks the type both operands of an intrinsic numeric operation
// convert to: the operand type the other widens into, else int64 for mixed
// small integers, else float64 when a float is involved.
func promote(reg *binding.Registry, a, b *binding.Type) (*binding.Type, error) {
	if a == b {
		return a, nil
	}
	if reg.ConversionCost(a, b, false).Rank() == binding.RankNumericWidening {
		return b, nil
	}
	if reg.ConversionCost(b, a, false).Rank() == binding.RankNumericWidening {
		return a, nil
	}
	ac, bc := a.Code(), b.Code()
	if !a.IsPredeclared() || !b.IsPredeclared() {
		return nil, fmt.Errorf("%w: mismatched types %s and %s", binding.ErrInvalidOperation, a, b)
	}
	switch {
	case ac.IsFloat() || bc.IsFloat():
		return reg.MustGet(reflect.TypeFor[float64]()), nil
	case ac.Bits() < 64 && bc.Bits() < 64:
		return reg.MustGet(reflect.TypeFor[int64]()), nil
	}
	return nil, fmt.Errorf("%w: no common numeric type for %s and %s", binding.ErrInvalidOperation, a, b)
}
