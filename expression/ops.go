package expression

import "fmt"

type Kind int

const (
	KindConstant Kind = iota
	KindParameter
	KindUnary
	KindBinary
	KindMember
	KindIndex
	KindCall
	KindInvoke
	KindConditional
	KindConvert
	KindTypeAs
	KindTypeIs
	KindNew
	KindNewArray
	KindDefault
)

var kindNames = [...]string{
	KindConstant:    "constant",
	KindParameter:   "parameter",
	KindUnary:       "unary",
	KindBinary:      "binary",
	KindMember:      "member",
	KindIndex:       "index",
	KindCall:        "call",
	KindInvoke:      "invoke",
	KindConditional: "conditional",
	KindConvert:     "convert",
	KindTypeAs:      "typeAs",
	KindTypeIs:      "typeIs",
	KindNew:         "new",
	KindNewArray:    "newArray",
	KindDefault:     "default",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

type UnaryOp int

const (
	Negate UnaryOp = iota
	UnaryPlus
	Not
	Complement
)

func (op UnaryOp) String() string {
	switch op {
	case Negate:
		return "-"
	case UnaryPlus:
		return "+"
	case Not:
		return "!"
	case Complement:
		return "^"
	}
	return fmt.Sprintf("UnaryOp(%d)", int(op))
}

type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Modulo
	Power
	Equal
	NotEqual
	LessThan
	LessThanOrEqual
	GreaterThan
	GreaterThanOrEqual
	And
	Or
	ExclusiveOr
	LeftShift
	RightShift
	AndAlso
	OrElse
	Coalesce
)

var binaryOpSymbols = [...]string{
	Add:                "+",
	Subtract:           "-",
	Multiply:           "*",
	Divide:             "/",
	Modulo:             "%",
	Power:              "**",
	Equal:              "==",
	NotEqual:           "!=",
	LessThan:           "<",
	LessThanOrEqual:    "<=",
	GreaterThan:        ">",
	GreaterThanOrEqual: ">=",
	And:                "&",
	Or:                 "|",
	ExclusiveOr:        "^",
	LeftShift:          "<<",
	RightShift:         ">>",
	AndAlso:            "&&",
	OrElse:             "||",
	Coalesce:           "??",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryOpSymbols) {
		return fmt.Sprintf("BinaryOp(%d)", int(op))
	}
	return binaryOpSymbols[op]
}

// IsComparison reports whether op yields a bool from two ordered or
// comparable operands.
func (op BinaryOp) IsComparison() bool {
	switch op {
	case Equal, NotEqual, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		return true
	}
	return false
}

// IsLogical reports whether op short-circuits.
func (op BinaryOp) IsLogical() bool {
	return op == AndAlso || op == OrElse
}
