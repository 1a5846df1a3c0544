package binding

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/signadot/dynexpr/debug"
)

// Arg is the static description of one argument: its type, and for untyped
// literals the literal value. A nil Type is the untyped nil.
type Arg struct {
	Type    *Type
	Literal any
	Untyped bool
}

// ArgOf describes an argument of a known type.
func ArgOf(t *Type) Arg {
	return Arg{Type: t}
}

func (a Arg) String() string {
	switch {
	case a.Type == nil:
		return "nil"
	case a.Untyped:
		return fmt.Sprintf("untyped %s %v", a.Type, a.Literal)
	}
	return a.Type.String()
}

// Args describes arguments of known types.
func Args(ts ...*Type) []Arg {
	res := make([]Arg, len(ts))
	for i, t := range ts {
		res[i] = ArgOf(t)
	}
	return res
}

// ArgCost ranks passing a to a parameter of type to. Untyped literals adapt
// to any type of their kind that can represent them; the untyped nil converts
// to every type that can be nil.
func (r *Registry) ArgCost(a Arg, to *Type) Cost {
	switch {
	case a.Type == nil:
		if !to.canBeNull {
			return NoConversion
		}
		if to.t == anyType {
			return costOf(RankReference, anyDepth)
		}
		return costOf(RankReference, 1)
	case a.Untyped && a.Type != to && to.t.Kind() != reflect.Interface:
		if LiteralFits(a.Literal, to.t) {
			if to.isNumber && a.Type.isNumber && !(to.IsPredeclared() && widens(a.Type.code, to.code)) {
				// fits only by value, e.g. 300 as uint16
				return costOf(RankNumericWidening, 1)
			}
			return costOf(RankNumericWidening, 0)
		}
	}
	return r.ConversionCost(a.Type, to, false)
}

// candidate is one member with the cost of binding it to the arguments.
type candidate struct {
	m        *Member
	cost     Cost
	expanded bool
}

// Resolve picks the best member for a receiver (nil for static lookups) and
// arguments: the unique candidate with the lowest summed conversion cost.
// Costs are summed across the receiver and all arguments, so a candidate
// that is worse for one argument still wins when its total is lower; there
// is no argument-by-argument comparison.
// When several tie, a candidate whose parameters all convert implicitly to
// those of every other tied candidate wins. Otherwise the result is a
// *BindError wrapping ErrAmbiguous, or ErrNoMatch when nothing applies.
func (r *Registry) Resolve(candidates []*Member, recv *Type, args []Arg) (*Member, error) {
	m, _, err := r.resolve(candidates, recv, args)
	return m, err
}

// ResolveCall is Resolve that also reports whether the winner binds in its
// expanded variadic form, where trailing arguments fill the variadic slice.
func (r *Registry) ResolveCall(candidates []*Member, recv *Type, args []Arg) (*Member, bool, error) {
	return r.resolve(candidates, recv, args)
}

func (r *Registry) resolve(candidates []*Member, recv *Type, args []Arg) (*Member, bool, error) {
	var best []candidate
	for _, m := range candidates {
		c, ok, err := r.bind(m, recv, args)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			continue
		}
		switch {
		case len(best) == 0 || c.cost < best[0].cost:
			best = append(best[:0], c)
		case c.cost == best[0].cost:
			best = append(best, c)
		}
	}
	name := ""
	var owner *Type
	if len(candidates) > 0 {
		name, owner = candidates[0].name, candidates[0].declaring
	}
	if recv != nil {
		owner = recv
	}
	switch len(best) {
	case 0:
		if debug.Bind() {
			debug.Logf("bind: no match for %s(%s) among %d candidate(s)\n", name, argList(args), len(candidates))
		}
		return nil, false, newBindError(owner, name, args, ErrNoMatch)
	case 1:
		if debug.Bind() {
			debug.Logf("bind: %s(%s) -> %s cost %d\n", name, argList(args), best[0].m, best[0].cost)
		}
		return best[0].m, best[0].expanded, nil
	}
	if w := r.mostSpecific(best); w != nil {
		if debug.Bind() {
			debug.Logf("bind: %s(%s) -> %s by specificity\n", name, argList(args), w.m)
		}
		return w.m, w.expanded, nil
	}
	if debug.Bind() {
		debug.Logf("bind: %s(%s) ambiguous between %d candidates\n", name, argList(args), len(best))
	}
	return nil, false, newBindError(owner, name, args, ErrAmbiguous)
}

func argList(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, ", ")
}

// bind computes the cost of calling m with recv and args, trying the normal
// form first and, for variadic members, the expanded form with a penalty.
func (r *Registry) bind(m *Member, recv *Type, args []Arg) (candidate, bool, error) {
	res := candidate{m: m}
	if m.kind == MemberOperator || m.kind == MemberConstructor {
		recv = nil
	}
	if recv == nil && !m.static && m.kind != MemberIndexer {
		return res, false, nil
	}
	if recv != nil && m.static {
		return res, false, nil
	}
	if recv != nil {
		c, err := r.receiverCost(m, recv)
		if err != nil || !c.Implicit() {
			return res, false, err
		}
		res.cost += c
	}

	params := m.params
	if m.kind == MemberField {
		params = nil
	}
	if c, ok, err := r.paramCost(params, args, false); err != nil {
		return res, false, err
	} else if ok {
		res.cost += c
		return res, true, nil
	}
	if !m.variadic {
		return res, false, nil
	}
	c, ok, err := r.paramCost(params, args, true)
	if err != nil || !ok {
		return res, false, err
	}
	res.cost += c + 1
	res.expanded = true
	return res, true, nil
}

func (r *Registry) receiverCost(m *Member, recv *Type) (Cost, error) {
	if m.kind == MemberIndexer {
		switch rt := recv.t; {
		case rt == m.recvType:
			return costOf(RankIdentity, 0), nil
		case rt.Kind() == reflect.Pointer && rt.Elem() == m.recvType,
			m.recvType.Kind() == reflect.Pointer && m.recvType.Elem() == rt:
			return costOf(RankReference, 1), nil
		}
	}
	return r.ConversionCost(recv, m.declaring, false), nil
}

func (r *Registry) paramCost(params []reflect.Type, args []Arg, expanded bool) (Cost, bool, error) {
	n := len(params)
	if expanded {
		if len(args) < n-1 {
			return 0, false, nil
		}
	} else if len(args) != n {
		return 0, false, nil
	}
	var total Cost
	for i, a := range args {
		pt := params[min(i, n-1)]
		if expanded && i >= n-1 {
			pt = pt.Elem()
		}
		p, err := r.Get(pt)
		if err != nil {
			return 0, false, err
		}
		c := r.ArgCost(a, p)
		if !c.Implicit() {
			return 0, false, nil
		}
		total += c
	}
	return total, true, nil
}

// mostSpecific returns the tied candidate whose parameters convert implicitly
// to the corresponding parameters of all others, while none of theirs convert
// back. nil when there is no single such candidate.
func (r *Registry) mostSpecific(tied []candidate) *candidate {
	var win *candidate
	for i := range tied {
		c := &tied[i]
		better := true
		for j := range tied {
			if i == j {
				continue
			}
			if !r.moreSpecific(c.m, tied[j].m) {
				better = false
				break
			}
		}
		if better {
			if win != nil {
				return nil
			}
			win = c
		}
	}
	return win
}

func (r *Registry) moreSpecific(a, b *Member) bool {
	if len(a.params) != len(b.params) {
		return false
	}
	if a.declaring != b.declaring && a.declaring.IsSubtypeOf(b.declaring) && a.sig == b.sig {
		return true
	}
	forward, backward := true, true
	for i := range a.params {
		if a.params[i] == b.params[i] {
			continue
		}
		pa, err := r.Get(a.params[i])
		if err != nil {
			return false
		}
		pb, err := r.Get(b.params[i])
		if err != nil {
			return false
		}
		if !r.ConversionCost(pa, pb, false).Implicit() {
			forward = false
		}
		if !r.ConversionCost(pb, pa, false).Implicit() {
			backward = false
		}
	}
	return forward && !backward
}

// ResolveOperator picks the overload of an operator family for one (unary)
// or two (binary) operands, searching the families of both operand types and
// their ancestors.
func (r *Registry) ResolveOperator(kind OperatorKind, operands ...Arg) (*Member, error) {
	if kind < 0 || kind >= numOperatorKinds || kind.IsConversion() {
		return nil, fmt.Errorf("%w: operator %s", ErrInvalidArgument, kind)
	}
	if len(operands) != kind.arity() {
		return nil, fmt.Errorf("%w: operator %s takes %d operand(s), got %d", ErrInvalidArgument, kind, kind.arity(), len(operands))
	}
	var lists [][]*Member
	var owner *Type
	seen := map[*Type]bool{}
	for _, a := range operands {
		if a.Type == nil {
			continue
		}
		if owner == nil {
			owner = a.Type
		}
		for _, b := range a.Type.baseTypes {
			if seen[b] {
				continue
			}
			seen[b] = true
			lists = append(lists, b.Operators(kind))
		}
	}
	cands := finalize(concat(lists...))
	if len(cands) == 0 {
		return nil, newBindError(owner, "operator "+kind.String(), operands, ErrNoMatch)
	}
	m, err := r.Resolve(cands, nil, operands)
	if err != nil {
		var be *BindError
		if errors.As(err, &be) {
			be.Member = "operator " + kind.String()
		}
		return nil, err
	}
	return m, nil
}
