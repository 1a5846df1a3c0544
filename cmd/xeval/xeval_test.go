package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/google/go-cmp/cmp"
	"github.com/scott-cotton/cli"
	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/frontend"
)

func noColor(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })
}

func TestSetVar(t *testing.T) {
	tests := []struct {
		arg  string
		want any
	}{
		{"n=5", 5},
		{"neg=-3", -3},
		{"f=2.5", 2.5},
		{"s=hi", "hi"},
		{"b=true", true},
		{"xs=[1, 2]", []any{1, 2}},
		{"m={a: 1}", map[string]any{"a": 1}},
	}
	for _, tc := range tests {
		t.Run(tc.arg, func(t *testing.T) {
			vars := map[string]any{}
			if err := setVar(vars, tc.arg); err != nil {
				t.Fatal(err)
			}
			name, _, _ := strings.Cut(tc.arg, "=")
			if diff := cmp.Diff(tc.want, vars[name]); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
	for _, arg := range []string{"novalue", "=1"} {
		if err := setVar(map[string]any{}, arg); !errors.Is(err, cli.ErrUsage) {
			t.Errorf("%q: expected a usage error, got %v", arg, err)
		}
	}
}

func TestDecodeVars(t *testing.T) {
	want := map[string]any{
		"n": 3,
		"f": 1.5,
		"o": map[string]any{"a": 1},
	}
	tests := []struct {
		ext  string
		data string
	}{
		{".json", `{"n": 3, "f": 1.5, "o": {"a": 1}}`},
		{".yaml", "n: 3\nf: 1.5\no:\n  a: 1\n"},
		{".yml", "{n: 3, f: 1.5, o: {a: 1}}"},
	}
	for _, tc := range tests {
		t.Run(tc.ext, func(t *testing.T) {
			got, err := decodeVars(tc.ext, []byte(tc.data))
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("(-want +got)\n%s", diff)
			}
		})
	}
	if _, err := decodeVars(".toml", nil); !errors.Is(err, cli.ErrUsage) {
		t.Errorf("expected a usage error, got %v", err)
	}
}

func TestEvalTo(t *testing.T) {
	noColor(t)
	tests := []struct {
		src      string
		vars     map[string]any
		showType bool
		want     string
	}{
		{"n + 2", map[string]any{"n": 5}, false, "7\n"},
		{"n + 2", map[string]any{"n": 5}, true, "7 : int\n"},
		{"s + '!'", map[string]any{"s": "x"}, false, "\"x!\"\n"},
		{"n > 1", map[string]any{"n": 5}, false, "true\n"},
		{"Money(2) + Money.FromCents(5)", nil, false, "$2.05\n"},
		{"-Money(2, 50)", nil, true, "-$2.50 : main.Money\n"},
		{"Account('ann', 250).Balance", nil, false, "$2.50\n"},
	}
	for _, tc := range tests {
		t.Run(tc.src, func(t *testing.T) {
			var buf bytes.Buffer
			if err := evalTo(&buf, newEvaluator(), tc.src, tc.vars, tc.showType); err != nil {
				t.Fatal(err)
			}
			if got := buf.String(); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDescribeType(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	if err := describeType(&buf, binding.NewRegistry(), "Money"); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"type main.Money",
		"static field Zero",
		"static method FromCents",
		"constructors",
		"Addition",
		"conversions",
		"Implicit",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	buf.Reset()
	if err := describeType(&buf, binding.NewRegistry(), "Account"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "bases: main.Entity") {
		t.Errorf("expected Entity as a base of Account in\n%s", buf.String())
	}
	if err := describeType(&buf, binding.NewRegistry(), "Nope"); !errors.Is(err, frontend.ErrUndefined) {
		t.Errorf("expected %v, got %v", frontend.ErrUndefined, err)
	}
}

func TestSession(t *testing.T) {
	noColor(t)
	s := newSession(newEvaluator(), nil)
	var buf bytes.Buffer
	for _, line := range []string{":set n=4", "n * 2", ":vars", ":unset n", "n"} {
		if s.handle(&buf, line) {
			t.Fatalf("%q ended the session", line)
		}
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines of output, got %q", lines)
	}
	if lines[0] != "8" || lines[1] != "n = 4 : int" {
		t.Errorf("unexpected output %q", lines[:2])
	}
	if !strings.Contains(lines[2], "undefined") {
		t.Errorf("expected an undefined name error, got %q", lines[2])
	}
	if !s.handle(&buf, ":quit") {
		t.Error("expected :quit to end the session")
	}
}

func TestComplete(t *testing.T) {
	s := newSession(newEvaluator(), map[string]any{"amount": 1, "acct": 2})
	got := s.complete("1 + a")
	if diff := cmp.Diff([]string{"1 + acct", "1 + amount"}, got); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
	got = s.complete("Mo")
	if diff := cmp.Diff([]string{"Money"}, got); diff != "" {
		t.Errorf("(-want +got)\n%s", diff)
	}
	if got := s.complete("1 + "); got != nil {
		t.Errorf("expected no completions, got %v", got)
	}
}
