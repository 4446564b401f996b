package ast

// MarkTailCalls lowers a Defined-phase AST to TailCall phase (spec.md
// §4.3): propagates an is_tail flag top-down and annotates each Call with
// its final value. Lambda bodies start their last statement in tail
// position; If propagates tail-ness to both branches but never to the
// condition; Let/LetRec propagate tail-ness to the last body statement
// only; call arguments are never in tail position.
func MarkTailCalls(roots []Node) ([]Node, error) {
	// Top-level expressions form the body of the synthesized entry
	// function (spec.md §4.4 "top-level exprs become a synthesized entry
	// function"), so, as in a lambda body, only the last one is in tail
	// position.
	return markTailBody(roots, true), nil
}

func markTail(n Node, tail bool) Node {
	switch v := n.(type) {
	case *Const, *Var:
		return n
	case *If:
		return &If{base: v.base, Cond: markTail(v.Cond, false), Then: markTail(v.Then, tail), Else: markTail(v.Else, tail)}
	case *Lambda:
		return &Lambda{base: v.base, Params: v.Params, Body: markBody(v.Body)}
	case *Call:
		fn := markTail(v.Fn, false)
		args := make([]Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = markTail(a, false)
		}
		return &Call{base: v.base, Fn: fn, Args: args, IsTail: tail}
	case *Let:
		bindings := markTailBindings(v.Bindings)
		return &Let{base: v.base, Bindings: bindings, Body: markTailBody(v.Body, tail)}
	case *LetRec:
		bindings := markTailBindings(v.Bindings)
		return &LetRec{base: v.base, Bindings: bindings, Body: markTailBody(v.Body, tail)}
	case *Set:
		return &Set{base: v.base, Name: v.Name, Value: markTail(v.Value, false)}
	case *Cons:
		return &Cons{base: v.base, Car: markTail(v.Car, false), Cdr: markTail(v.Cdr, false)}
	case *VectorLit:
		elems := make([]Node, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = markTail(e, false)
		}
		return &VectorLit{base: v.base, Elems: elems}
	case *UVectorLit:
		return v
	default:
		return n
	}
}

// markBody marks a lambda body: every statement but the last is evaluated
// for effect only (never tail); the last is in tail position.
func markBody(body []Node) []Node {
	return markTailBody(body, true)
}

func markTailBody(body []Node, lastIsTail bool) []Node {
	out := make([]Node, len(body))
	for i, n := range body {
		out[i] = markTail(n, lastIsTail && i == len(body)-1)
	}
	return out
}

func markTailBindings(bs []Binding) []Binding {
	out := make([]Binding, len(bs))
	for i, b := range bs {
		out[i] = Binding{Name: b.Name, Value: markTail(b.Value, false), Id: NoLocal}
	}
	return out
}
