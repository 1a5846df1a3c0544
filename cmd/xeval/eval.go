package main

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/scott-cotton/cli"
	"github.com/signadot/dynexpr"
)

func newEvaluator() *dynexpr.Evaluator {
	ev := dynexpr.New()
	for name, t := range demoTypes {
		ev.Types[name] = t
	}
	return ev
}

func eval(cfg *EvalConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Eval.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: eval requires an expression", cli.ErrUsage)
	}
	if cfg.File != "" {
		if err := loadVars(cfg.Vars, cfg.File); err != nil {
			return err
		}
	}
	cfg.setupColor(cc.Out)
	return evalTo(cc.Out, newEvaluator(), strings.Join(args, " "), cfg.Vars, cfg.Type)
}

func evalTo(w io.Writer, ev *dynexpr.Evaluator, src string, vars map[string]any, showType bool) error {
	v, err := ev.Eval(src, vars)
	if err != nil {
		return err
	}
	if showType {
		fmt.Fprintf(w, "%s : %s\n", formatValue(v), typeName(v))
		return nil
	}
	fmt.Fprintln(w, formatValue(v))
	return nil
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
