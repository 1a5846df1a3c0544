package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "xeval").
		WithSynopsis("xeval [opts] command [opts]").
		WithDescription("xeval evaluates expressions over Go values.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return xevalMain(cfg, cc, args)
		}).
		WithSubs(
			EvalCommand(cfg),
			DescribeCommand(cfg),
			ReplCommand(cfg))
}

func EvalCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &EvalConfig{MainConfig: mainCfg, Vars: map[string]any{}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "p",
			Description: "set a parameter, the value is yaml",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(varOptFunc(cfg.Vars)), "(name=val)"),
		})
	return cli.NewCommandAt(&cfg.Eval, "eval").
		WithAliases("e", "ev").
		WithSynopsis("eval [-p name=val [-p name2=val2]...] [-f file] <expr>").
		WithDescription("evaluate an expression").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return eval(cfg, cc, args)
		})
}

func varOptFunc(vars map[string]any) func(cc *cli.Context, a string) (any, error) {
	return func(cc *cli.Context, a string) (any, error) {
		if err := setVar(vars, a); err != nil {
			return nil, err
		}
		return 0, nil
	}
}

func DescribeCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DescribeConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Describe, "describe").
		WithAliases("d", "desc").
		WithSynopsis("describe <type> [types]").
		WithDescription("describe the members, operators and conversions of a type").
		WithRun(func(cc *cli.Context, args []string) error {
			return describe(cfg, cc, args)
		})
}

func ReplCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ReplConfig{MainConfig: mainCfg, Vars: map[string]any{}}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts = append(opts,
		&cli.Opt{
			Name:        "p",
			Description: "set a parameter, the value is yaml",
			Type:        cli.NamedFuncOpt(cli.FuncOpt(varOptFunc(cfg.Vars)), "(name=val)"),
		})
	return cli.NewCommandAt(&cfg.Repl, "repl").
		WithAliases("r").
		WithSynopsis("repl [-p name=val]... [-history file]").
		WithDescription("evaluate expressions interactively").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return repl(cfg, cc, args)
		})
}
