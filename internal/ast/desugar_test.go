package ast

import "testing"

func desugarSrc(t *testing.T, src string) []Node {
	t.Helper()
	parsed := buildSrc(t, src)
	out, err := Desugar(parsed)
	if err != nil {
		t.Fatalf("Desugar: %v", err)
	}
	return out
}

func TestDesugarBeginSplicesIntoToplevel(t *testing.T) {
	out := desugarSrc(t, `(begin 1 2 3)`)
	if len(out) != 3 {
		t.Fatalf("expected begin to splice into 3 top-level nodes, got %d", len(out))
	}
	for i, want := range []int64{1, 2, 3} {
		c, ok := out[i].(*Const)
		if !ok || c.Int != want {
			t.Fatalf("node %d: expected Const %d, got %#v", i, want, out[i])
		}
	}
}

func TestDesugarBeginInIfBranchBecomesLet(t *testing.T) {
	out := desugarSrc(t, `(if #t (begin 1 2) 3)`)
	ifNode, ok := out[0].(*If)
	if !ok {
		t.Fatalf("expected *If, got %T", out[0])
	}
	let, ok := ifNode.Then.(*Let)
	if !ok {
		t.Fatalf("expected begin-as-expression to desugar to a *Let sequencer, got %T", ifNode.Then)
	}
	if len(let.Bindings) != 1 {
		t.Fatalf("expected one binding sequencing the discarded first expr, got %d", len(let.Bindings))
	}
	if _, ok := let.Body[0].(*Const); !ok {
		t.Fatalf("expected Let body to be the final expr, got %T", let.Body[0])
	}
}

func TestDesugarCondToNestedIf(t *testing.T) {
	out := desugarSrc(t, `(cond (#f 1) (#t 2) (else 3))`)
	if _, ok := out[0].(*If); !ok {
		t.Fatalf("expected cond to desugar to nested *If, got %T", out[0])
	}
	// Every Cond/Begin/LetStar/NamedLet/Quote node must be gone after
	// desugaring.
	assertNoSugarNodes(t, out[0])
}

func TestDesugarLetStarToNestedLet(t *testing.T) {
	out := desugarSrc(t, `(let* ((x 1) (y (+ x 1))) y)`)
	outer, ok := out[0].(*Let)
	if !ok {
		t.Fatalf("expected let* to desugar to *Let, got %T", out[0])
	}
	if len(outer.Bindings) != 1 || outer.Bindings[0].Name != "x" {
		t.Fatalf("expected outer Let to bind x first, got %+v", outer.Bindings)
	}
	inner, ok := outer.Body[0].(*Let)
	if !ok {
		t.Fatalf("expected nested *Let for y, got %T", outer.Body[0])
	}
	if len(inner.Bindings) != 1 || inner.Bindings[0].Name != "y" {
		t.Fatalf("expected inner Let to bind y, got %+v", inner.Bindings)
	}
}

func TestDesugarNamedLetToLetRec(t *testing.T) {
	out := desugarSrc(t, `(let loop ((x 0)) x)`)
	lr, ok := out[0].(*LetRec)
	if !ok {
		t.Fatalf("expected named let to desugar to *LetRec, got %T", out[0])
	}
	if len(lr.Bindings) != 1 || lr.Bindings[0].Name != "loop" {
		t.Fatalf("expected LetRec to bind the loop tag, got %+v", lr.Bindings)
	}
	if _, ok := lr.Bindings[0].Value.(*Lambda); !ok {
		t.Fatalf("expected loop tag bound to a *Lambda, got %T", lr.Bindings[0].Value)
	}
	call, ok := lr.Body[0].(*Call)
	if !ok {
		t.Fatalf("expected LetRec body to call the loop tag, got %T", lr.Body[0])
	}
	fn, ok := call.Fn.(*Var)
	if !ok || fn.Name != "loop" {
		t.Fatalf("expected call to Var loop, got %#v", call.Fn)
	}
}

func TestDesugarQuoteLiftsToConsAndConst(t *testing.T) {
	out := desugarSrc(t, `'(1 . 2)`)
	cons, ok := out[0].(*Cons)
	if !ok {
		t.Fatalf("expected quoted pair to lift to *Cons, got %T", out[0])
	}
	car, ok := cons.Car.(*Const)
	if !ok || car.Int != 1 {
		t.Fatalf("expected Cons.Car = Const 1, got %#v", cons.Car)
	}
	cdr, ok := cons.Cdr.(*Const)
	if !ok || cdr.Int != 2 {
		t.Fatalf("expected Cons.Cdr = Const 2, got %#v", cons.Cdr)
	}
}

// assertNoSugarNodes walks n and fails if any Begin/Cond/LetStar/NamedLet/
// Quote node survived desugaring.
func assertNoSugarNodes(t *testing.T, n Node) {
	t.Helper()
	switch v := n.(type) {
	case *Begin, *Cond, *LetStar, *NamedLet, *Quote:
		t.Fatalf("found un-desugared sugar node %T", v)
	case *If:
		assertNoSugarNodes(t, v.Cond)
		assertNoSugarNodes(t, v.Then)
		assertNoSugarNodes(t, v.Else)
	case *Let:
		for _, b := range v.Bindings {
			assertNoSugarNodes(t, b.Value)
		}
		for _, b := range v.Body {
			assertNoSugarNodes(t, b)
		}
	case *LetRec:
		for _, b := range v.Bindings {
			assertNoSugarNodes(t, b.Value)
		}
		for _, b := range v.Body {
			assertNoSugarNodes(t, b)
		}
	case *Lambda:
		for _, b := range v.Body {
			assertNoSugarNodes(t, b)
		}
	case *Call:
		assertNoSugarNodes(t, v.Fn)
		for _, a := range v.Args {
			assertNoSugarNodes(t, a)
		}
	case *Set:
		assertNoSugarNodes(t, v.Value)
	case *Cons:
		assertNoSugarNodes(t, v.Car)
		assertNoSugarNodes(t, v.Cdr)
	}
}
