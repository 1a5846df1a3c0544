package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"
	"github.com/signadot/dynexpr/binding"
	"github.com/signadot/dynexpr/frontend"
)

func describe(cfg *DescribeConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Describe.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: describe requires a type name", cli.ErrUsage)
	}
	cfg.setupColor(cc.Out)
	reg := binding.NewRegistry()
	for i, name := range args {
		if i > 0 {
			fmt.Fprintln(cc.Out)
		}
		if err := describeType(cc.Out, reg, name); err != nil {
			return err
		}
	}
	return nil
}

func describeType(w io.Writer, reg *binding.Registry, name string) error {
	env := &frontend.Env{Types: demoTypes}
	rt, ok := env.LookupType(name)
	if !ok {
		return fmt.Errorf("%w: type %s", frontend.ErrUndefined, name)
	}
	t, err := reg.Get(rt)
	if err != nil {
		return err
	}
	head := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s (%s)\n", head("type"), t, strings.Join(traits(t), ", "))
	var bases []*binding.Type
	for b := t.BaseType(); b != nil; b = b.BaseType() {
		bases = append(bases, b)
	}
	if len(bases) > 0 {
		fmt.Fprintf(w, "  bases: %s\n", typeList(bases))
	}
	if ifaces := t.Interfaces(); len(ifaces) > 0 {
		fmt.Fprintf(w, "  interfaces: %s\n", typeList(ifaces))
	}
	if u := t.UnderlyingType(); u != nil && u != t {
		fmt.Fprintf(w, "  underlying: %s\n", u)
	}

	byName := t.MembersByName()
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	slices.Sort(names)
	if len(names) > 0 {
		fmt.Fprintln(w, head("members"))
	}
	for _, name := range names {
		for _, m := range byName[name] {
			writeMember(w, m)
		}
	}
	section(w, head("constructors"), t.Constructors())
	section(w, head("indexers"), t.Indexers())
	var ops []*binding.Member
	for k := binding.OpAddition; k < binding.OpImplicit; k++ {
		ops = append(ops, t.Operators(k)...)
	}
	section(w, head("operators"), ops)
	section(w, head("conversions"), t.Conversions())
	return nil
}

func traits(t *binding.Type) []string {
	res := []string{t.Code().String()}
	if t.IsValueType() {
		res = append(res, "value")
	} else {
		res = append(res, "reference")
	}
	if t.IsNullable() {
		res = append(res, "nullable")
	}
	if t.IsNumber() {
		res = append(res, "number")
	}
	if t.IsEnum() {
		res = append(res, "enum")
	}
	if t.IsInterface() {
		res = append(res, "interface")
	}
	if t.IsDelegate() {
		res = append(res, "func")
	}
	return res
}

func typeList(ts []*binding.Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func section(w io.Writer, title string, ms []*binding.Member) {
	if len(ms) == 0 {
		return
	}
	fmt.Fprintln(w, title)
	for _, m := range ms {
		writeMember(w, m)
	}
}

func writeMember(w io.Writer, m *binding.Member) {
	static := ""
	if m.IsStatic() {
		static = "static "
	}
	name := m.Name()
	if m.Kind() == binding.MemberOperator {
		name = m.Operator().String()
	}
	sig := ""
	if m.Kind() != binding.MemberField {
		sig = m.Signature()
	} else if r := m.Result(); r != nil {
		sig = " " + r.String()
	}
	fmt.Fprintf(w, "  %s%s %s%s (from %s)\n", static, color.CyanString("%s", m.Kind()), name, sig, m.DeclaringType())
}
