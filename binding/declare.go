package binding

import (
	"fmt"
	"reflect"
)

// Declarer is implemented by types that publish members Go cannot express as
// methods: static members, constructors, indexers, operator overloads and
// user-defined conversions.
//
// Declare is called once per type on a new zero value and must not depend on
// receiver state. It is never catalogued as a member itself.
type Declarer interface {
	Declare() Declaration
}

// Declaration lists the extra members of a type. All entries are func values
// unless noted.
//
//	func (Money) Declare() binding.Declaration {
//		return binding.Declaration{
//			Constructors: []any{NewMoney},
//			Operators: map[binding.OperatorKind][]any{
//				binding.OpAddition: {func(a, b Money) Money { return a.Add(b) }},
//				binding.OpImplicit: {func(m Money) float64 { return m.Float() }},
//			},
//		}
//	}
type Declaration struct {
	// Statics maps names to static members: funcs become static methods,
	// anything else a read-only static field.
	Statics map[string]any

	// Constructors return the type or a pointer to it, optionally followed
	// by an error.
	Constructors []any

	// Indexers take the receiver first, then the keys, e.g. the method
	// expression (*Grid).At.
	Indexers []any

	// Operators maps an operator family to its overloads. Binary families
	// take two parameters, at least one of the declaring type. Unary and
	// conversion families take one.
	Operators map[OperatorKind][]any
}

type OperatorKind int

const (
	OpAddition OperatorKind = iota
	OpSubtraction
	OpMultiply
	OpDivision
	OpModulus
	OpEquality
	OpInequality
	OpGreaterThan
	OpGreaterThanOrEqual
	OpLessThan
	OpLessThanOrEqual
	OpBitwiseAnd
	OpBitwiseOr
	OpUnaryNegation
	OpUnaryPlus
	OpImplicit
	OpExplicit

	numOperatorKinds
)

var operatorNames = [...]string{
	OpAddition:           "Addition",
	OpSubtraction:        "Subtraction",
	OpMultiply:           "Multiply",
	OpDivision:           "Division",
	OpModulus:            "Modulus",
	OpEquality:           "Equality",
	OpInequality:         "Inequality",
	OpGreaterThan:        "GreaterThan",
	OpGreaterThanOrEqual: "GreaterThanOrEqual",
	OpLessThan:           "LessThan",
	OpLessThanOrEqual:    "LessThanOrEqual",
	OpBitwiseAnd:         "BitwiseAnd",
	OpBitwiseOr:          "BitwiseOr",
	OpUnaryNegation:      "UnaryNegation",
	OpUnaryPlus:          "UnaryPlus",
	OpImplicit:           "Implicit",
	OpExplicit:           "Explicit",
}

func (k OperatorKind) String() string {
	if k < 0 || k >= numOperatorKinds {
		return fmt.Sprintf("OperatorKind(%d)", int(k))
	}
	return operatorNames[k]
}

func (k OperatorKind) IsUnary() bool {
	return k == OpUnaryNegation || k == OpUnaryPlus
}

func (k OperatorKind) IsConversion() bool {
	return k == OpImplicit || k == OpExplicit
}

func (k OperatorKind) arity() int {
	if k.IsUnary() || k.IsConversion() {
		return 1
	}
	return 2
}

// ConversionFamily indexes the four user-defined conversion families of a
// type. "To" families convert from the type, "From" families into it.
type ConversionFamily int

const (
	ImplicitTo ConversionFamily = iota
	ImplicitFrom
	ExplicitTo
	ExplicitFrom

	numConversionFamilies
)

func (f ConversionFamily) String() string {
	switch f {
	case ImplicitTo:
		return "ImplicitTo"
	case ImplicitFrom:
		return "ImplicitFrom"
	case ExplicitTo:
		return "ExplicitTo"
	case ExplicitFrom:
		return "ExplicitFrom"
	}
	return fmt.Sprintf("ConversionFamily(%d)", int(f))
}

// mirror is the family on the other endpoint holding the same conversion.
func (f ConversionFamily) mirror() ConversionFamily {
	switch f {
	case ImplicitTo:
		return ImplicitFrom
	case ImplicitFrom:
		return ImplicitTo
	case ExplicitTo:
		return ExplicitFrom
	}
	return ExplicitTo
}

var (
	declarerType    = reflect.TypeFor[Declarer]()
	declarationType = reflect.TypeFor[Declaration]()
	errorType       = reflect.TypeFor[error]()
	anyType         = reflect.TypeFor[any]()
)

// declarationOf calls Declare on a zero value of t. Pointer types carry no
// declarations of their own; their element type does.
func declarationOf(t reflect.Type) (decl *Declaration, err error) {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return nil, nil
	}
	if !reflect.PointerTo(t).Implements(declarerType) {
		return nil, nil
	}
	defer func() {
		if r := recover(); r != nil {
			decl = nil
			err = &DeclarationError{Type: t.String(), Message: fmt.Sprintf("Declare panicked: %v", r)}
		}
	}()
	d := reflect.New(t).Interface().(Declarer).Declare()
	return &d, nil
}

// isDeclareMethod reports whether m is the Declarer hook.
func isDeclareMethod(m reflect.Method, iface bool) bool {
	if m.Name != "Declare" {
		return false
	}
	in := 1
	if iface {
		in = 0
	}
	return m.Type.NumIn() == in && m.Type.NumOut() == 1 && m.Type.Out(0) == declarationType
}
