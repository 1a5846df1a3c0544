package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/peterh/liner"
	"github.com/scott-cotton/cli"
	"github.com/signadot/dynexpr"
)

const (
	prompt      = "xeval> "
	historyFile = ".xeval_history"
)

const replHelp = `expressions are evaluated with the current parameters.
  :set name=val    set a parameter, val in yaml
  :unset name      remove a parameter
  :vars            list the parameters
  :describe T      describe a type
  :quit            exit
`

func repl(cfg *ReplConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Repl.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 0 {
		return fmt.Errorf("%w: repl takes no arguments", cli.ErrUsage)
	}
	cfg.setupColor(cc.Out)
	hist := cfg.History
	if hist == "" {
		home, _ := os.UserHomeDir()
		hist = filepath.Join(home, historyFile)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	if f, err := os.Open(hist); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(hist); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s := newSession(newEvaluator(), cfg.Vars)
	ln.SetCompleter(s.complete)
	for {
		line, err := ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(cc.Out)
			return nil
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if s.handle(cc.Out, line) {
			return nil
		}
	}
}

// session is the state of one repl.
type session struct {
	ev   *dynexpr.Evaluator
	vars map[string]any
}

func newSession(ev *dynexpr.Evaluator, vars map[string]any) *session {
	if vars == nil {
		vars = map[string]any{}
	}
	return &session{ev: ev, vars: vars}
}

// handle runs one line, reporting whether the session is over.
func (s *session) handle(w io.Writer, line string) bool {
	cmd, ok := strings.CutPrefix(line, ":")
	if !ok {
		v, err := s.ev.Eval(line, s.vars)
		if err != nil {
			fmt.Fprintln(w, formatError(err))
			return false
		}
		fmt.Fprintln(w, formatValue(v))
		return false
	}
	name, arg, _ := strings.Cut(cmd, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "q", "quit":
		return true
	case "set":
		if err := setVar(s.vars, arg); err != nil {
			fmt.Fprintln(w, formatError(err))
		}
	case "unset":
		delete(s.vars, arg)
	case "vars":
		names := make([]string, 0, len(s.vars))
		for name := range s.vars {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			v := s.vars[name]
			fmt.Fprintf(w, "%s = %s : %s\n", name, formatValue(v), typeName(v))
		}
	case "d", "describe":
		if err := describeType(w, s.ev.Registry, arg); err != nil {
			fmt.Fprintln(w, formatError(err))
		}
	case "h", "help":
		fmt.Fprint(w, replHelp)
	default:
		fmt.Fprintf(w, "unknown command %q, try :help\n", name)
	}
	return false
}

// complete completes the identifier at the end of line with parameter and
// type names.
func (s *session) complete(line string) []string {
	start := strings.LastIndexFunc(line, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	}) + 1
	prefix := line[start:]
	if prefix == "" {
		return nil
	}
	var res []string
	add := func(name string) {
		if strings.HasPrefix(name, prefix) {
			res = append(res, line[:start]+name)
		}
	}
	for name := range s.vars {
		add(name)
	}
	for name := range s.ev.Types {
		add(name)
	}
	slices.Sort(res)
	return res
}
