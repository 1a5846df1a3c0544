package main

import (
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
)

type MainConfig struct {
	Color bool `cli:"name=color desc='color output'"`
	Debug bool `cli:"name=debug desc='log registry, binding, compile and run activity to stderr'"`
	Gops  bool `cli:"name=gops desc='start a gops agent'"`

	Main *cli.Command
}

// colorOutput decides whether w gets colored output: -color forces it on,
// an explicit -color=false forces it off, otherwise a terminal gets colors.
func (cfg *MainConfig) colorOutput(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name != "color" {
			continue
		}
		if opt.Value != nil {
			return false
		}
		break
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (cfg *MainConfig) setupColor(w io.Writer) {
	color.NoColor = !cfg.colorOutput(w)
}

type EvalConfig struct {
	*MainConfig
	Vars map[string]any
	File string `cli:"name=f desc='read parameters from a yaml or json file'"`
	Type bool   `cli:"name=t desc='print the result type'"`

	Eval *cli.Command
}

type DescribeConfig struct {
	*MainConfig

	Describe *cli.Command
}

type ReplConfig struct {
	*MainConfig
	Vars    map[string]any
	History string `cli:"name=history desc='history file (default ~/.xeval_history)'"`

	Repl *cli.Command
}
