package binding

import (
	"fmt"
	"reflect"
)

// TypeCode is the numeric classification of a type. Named types share the
// code of their underlying kind.
type TypeCode int

const (
	CodeObject TypeCode = iota
	CodeBool
	CodeInt
	CodeInt8
	CodeInt16
	CodeInt32
	CodeInt64
	CodeUint
	CodeUint8
	CodeUint16
	CodeUint32
	CodeUint64
	CodeUintptr
	CodeFloat32
	CodeFloat64
	CodeComplex64
	CodeComplex128
	CodeString
)

var codeNames = [...]string{
	CodeObject:     "object",
	CodeBool:       "bool",
	CodeInt:        "int",
	CodeInt8:       "int8",
	CodeInt16:      "int16",
	CodeInt32:      "int32",
	CodeInt64:      "int64",
	CodeUint:       "uint",
	CodeUint8:      "uint8",
	CodeUint16:     "uint16",
	CodeUint32:     "uint32",
	CodeUint64:     "uint64",
	CodeUintptr:    "uintptr",
	CodeFloat32:    "float32",
	CodeFloat64:    "float64",
	CodeComplex64:  "complex64",
	CodeComplex128: "complex128",
	CodeString:     "string",
}

func (c TypeCode) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("TypeCode(%d)", int(c))
	}
	return codeNames[c]
}

func typeCodeOf(t reflect.Type) TypeCode {
	switch t.Kind() {
	case reflect.Bool:
		return CodeBool
	case reflect.Int:
		return CodeInt
	case reflect.Int8:
		return CodeInt8
	case reflect.Int16:
		return CodeInt16
	case reflect.Int32:
		return CodeInt32
	case reflect.Int64:
		return CodeInt64
	case reflect.Uint:
		return CodeUint
	case reflect.Uint8:
		return CodeUint8
	case reflect.Uint16:
		return CodeUint16
	case reflect.Uint32:
		return CodeUint32
	case reflect.Uint64:
		return CodeUint64
	case reflect.Uintptr:
		return CodeUintptr
	case reflect.Float32:
		return CodeFloat32
	case reflect.Float64:
		return CodeFloat64
	case reflect.Complex64:
		return CodeComplex64
	case reflect.Complex128:
		return CodeComplex128
	case reflect.String:
		return CodeString
	}
	return CodeObject
}

func (c TypeCode) IsSigned() bool {
	return c >= CodeInt && c <= CodeInt64
}

func (c TypeCode) IsUnsigned() bool {
	return c >= CodeUint && c <= CodeUintptr
}

func (c TypeCode) IsInteger() bool {
	return c.IsSigned() || c.IsUnsigned()
}

func (c TypeCode) IsFloat() bool {
	return c == CodeFloat32 || c == CodeFloat64
}

// IsNumber excludes complex codes; the execution engine has no complex
// arithmetic.
func (c TypeCode) IsNumber() bool {
	return c.IsInteger() || c.IsFloat()
}

// Bits is the storage size of a numeric code. int and uint count as 64 bits.
func (c TypeCode) Bits() int {
	switch c {
	case CodeInt8, CodeUint8:
		return 8
	case CodeInt16, CodeUint16:
		return 16
	case CodeInt32, CodeUint32, CodeFloat32:
		return 32
	case CodeInt, CodeInt64, CodeUint, CodeUint64, CodeUintptr, CodeFloat64:
		return 64
	}
	return 0
}

// predeclared maps each basic code to its predeclared Go type.
var predeclared = map[TypeCode]reflect.Type{
	CodeBool:       reflect.TypeFor[bool](),
	CodeInt:        reflect.TypeFor[int](),
	CodeInt8:       reflect.TypeFor[int8](),
	CodeInt16:      reflect.TypeFor[int16](),
	CodeInt32:      reflect.TypeFor[int32](),
	CodeInt64:      reflect.TypeFor[int64](),
	CodeUint:       reflect.TypeFor[uint](),
	CodeUint8:      reflect.TypeFor[uint8](),
	CodeUint16:     reflect.TypeFor[uint16](),
	CodeUint32:     reflect.TypeFor[uint32](),
	CodeUint64:     reflect.TypeFor[uint64](),
	CodeUintptr:    reflect.TypeFor[uintptr](),
	CodeFloat32:    reflect.TypeFor[float32](),
	CodeFloat64:    reflect.TypeFor[float64](),
	CodeComplex64:  reflect.TypeFor[complex64](),
	CodeComplex128: reflect.TypeFor[complex128](),
	CodeString:     reflect.TypeFor[string](),
}

// PredeclaredType returns the predeclared type for a basic code, or nil.
func PredeclaredType(c TypeCode) reflect.Type {
	return predeclared[c]
}

func isPredeclared(t reflect.Type) bool {
	c := typeCodeOf(t)
	return c != CodeObject && predeclared[c] == t
}
