package binding

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNoMatch            = errors.New("no matching member")
	ErrAmbiguous          = errors.New("ambiguous match")
	ErrInvalidDeclaration = errors.New("invalid declaration")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrInvalidCast        = errors.New("invalid cast")
	ErrNilReference       = errors.New("nil reference")
	ErrDivideByZero       = errors.New("division by zero")
)

// BindError reports a member, operator or conversion that could not be
// resolved against concrete types. Err is ErrNoMatch or ErrAmbiguous.
type BindError struct {
	Type   string // type searched, e.g. "main.Money"
	Member string // member name, operator or conversion target
	Args   []string
	Err    error
}

func (e *BindError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Err.Error())
	sb.WriteString(": ")
	if e.Type != "" {
		sb.WriteString(e.Type)
		sb.WriteString(".")
	}
	sb.WriteString(e.Member)
	sb.WriteString("(")
	sb.WriteString(strings.Join(e.Args, ", "))
	sb.WriteString(")")
	return sb.String()
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func newBindError(t *Type, member string, args []Arg, err error) *BindError {
	res := &BindError{Member: member, Err: err}
	if t != nil {
		res.Type = t.String()
	}
	for _, a := range args {
		res.Args = append(res.Args, a.String())
	}
	return res
}

// DeclarationError reports a type whose Declare method yields something that
// cannot be catalogued. Descriptor construction for the type fails as a whole.
type DeclarationError struct {
	Type    string
	Message string
	Err     error
}

func (e *DeclarationError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("declaration error for %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("declaration error: %s", e.Message)
}

func (e *DeclarationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidDeclaration
}

// RuntimeError wraps a failure raised while evaluating, including panics
// recovered from invoked members.
type RuntimeError struct {
	Op  string
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("error evaluating %s: %v", e.Op, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}
