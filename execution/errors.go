package execution

import (
	"errors"
	"fmt"

	"github.com/signadot/dynexpr/expression"
)

// CompileError reports the innermost expression that failed to compile.
type CompileError struct {
	Expr string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Expr, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

func compileError(n expression.Node, err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		return err
	}
	return &CompileError{Expr: exprString(n), Err: err}
}

func exprString(n expression.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.String()
}
