package ast

import "fmt"

// Phase tags how far an AST has been lowered. Go has no sum-type
// mechanism for "this interface has fewer inhabitants here than there",
// so phase-soundness (spec.md §8's "AST phase soundness" property) is
// checked dynamically by Validate rather than statically by the type
// checker — the pragmatic equivalent spec.md §9 anticipates for
// non-generic-associated-type languages.
type Phase int

const (
	Parsed Phase = iota
	Desugared
	Defined
	TailCall
	Used
)

func (p Phase) String() string {
	switch p {
	case Parsed:
		return "parsed"
	case Desugared:
		return "desugared"
	case Defined:
		return "defined"
	case TailCall:
		return "tailcall"
	case Used:
		return "used"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// eliminatedAt reports, for each phase, which node kinds must no longer
// appear once that phase's pass has run.
func eliminatedAt(p Phase) func(Node) bool {
	switch p {
	case Desugared:
		return func(n Node) bool {
			switch n.(type) {
			case *Begin, *Cond, *LetStar, *NamedLet, *Quote:
				return true
			}
			return false
		}
	case Defined:
		return func(n Node) bool {
			_, ok := n.(*Define)
			return ok
		}
	default:
		return func(Node) bool { return false }
	}
}

// Validate walks every expression reachable from roots and returns an
// error naming the first node of a kind that phase p's pass (or an
// earlier one) should have eliminated.
func Validate(p Phase, roots []Node) error {
	check := func(n Node) bool { return false }
	for ph := Parsed; ph <= p; ph++ {
		prev := check
		elim := eliminatedAt(ph)
		check = func(n Node) bool { return prev(n) || elim(n) }
	}
	var bad Node
	Walk(roots, func(n Node) bool {
		if bad != nil {
			return false
		}
		if check(n) {
			bad = n
			return false
		}
		return true
	})
	if bad != nil {
		return fmt.Errorf("ast: phase %s soundness violation: found eliminated node %T at %s", p, bad, bad.Span())
	}
	return nil
}

// Walk visits every node reachable from roots in evaluation order,
// calling visit(n) for each; if visit returns false, Walk does not
// recurse into n's children (but continues with n's siblings).
func Walk(roots []Node, visit func(Node) bool) {
	for _, n := range roots {
		walk1(n, visit)
	}
}

func walk1(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch v := n.(type) {
	case *Const, *Var:
		// leaves
	case *If:
		walk1(v.Cond, visit)
		walk1(v.Then, visit)
		walk1(v.Else, visit)
	case *Lambda:
		Walk(v.Body, visit)
	case *Call:
		walk1(v.Fn, visit)
		Walk(v.Args, visit)
	case *Let:
		for _, b := range v.Bindings {
			walk1(b.Value, visit)
		}
		Walk(v.Body, visit)
	case *LetRec:
		for _, b := range v.Bindings {
			walk1(b.Value, visit)
		}
		Walk(v.Body, visit)
	case *Set:
		walk1(v.Value, visit)
	case *Cons:
		walk1(v.Car, visit)
		walk1(v.Cdr, visit)
	case *VectorLit:
		Walk(v.Elems, visit)
	case *UVectorLit:
		// leaves (contents are Const ints/floats, not separate nodes)
	case *Begin:
		Walk(v.Exprs, visit)
	case *Cond:
		for _, c := range v.Clauses {
			if c.Test != nil {
				walk1(c.Test, visit)
			}
			Walk(c.Body, visit)
		}
	case *LetStar:
		for _, b := range v.Bindings {
			walk1(b.Value, visit)
		}
		Walk(v.Body, visit)
	case *NamedLet:
		for _, b := range v.Bindings {
			walk1(b.Value, visit)
		}
		Walk(v.Body, visit)
	case *Quote:
		// datum is not an ast.Node
	case *Define:
		walk1(v.Value, visit)
	}
}
