package ast

import "testing"

func TestMarkTailCallsLambdaLastStatementIsTail(t *testing.T) {
	lam := &Lambda{
		base: base{sp()},
		Body: []Node{
			&Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "f"}},
			&Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "g"}},
		},
	}
	out, err := MarkTailCalls([]Node{lam})
	if err != nil {
		t.Fatalf("MarkTailCalls: %v", err)
	}
	got := out[0].(*Lambda)
	if got.Body[0].(*Call).IsTail {
		t.Error("expected first call not to be tail")
	}
	if !got.Body[1].(*Call).IsTail {
		t.Error("expected last call to be tail")
	}
}

func TestMarkTailCallsIfPropagatesToBothBranchesNotCond(t *testing.T) {
	condCall := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "p?"}}
	thenCall := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "t"}}
	elseCall := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "e"}}
	ifNode := &If{base: base{sp()}, Cond: condCall, Then: thenCall, Else: elseCall}
	lam := &Lambda{base: base{sp()}, Body: []Node{ifNode}}

	out, err := MarkTailCalls([]Node{lam})
	if err != nil {
		t.Fatalf("MarkTailCalls: %v", err)
	}
	got := out[0].(*Lambda).Body[0].(*If)
	if got.Cond.(*Call).IsTail {
		t.Error("Cond must never be marked tail")
	}
	if !got.Then.(*Call).IsTail {
		t.Error("Then should inherit tail position")
	}
	if !got.Else.(*Call).IsTail {
		t.Error("Else should inherit tail position")
	}
}

func TestMarkTailCallsCallArgumentsNeverTail(t *testing.T) {
	argCall := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "arg"}}
	outer := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "f"}, Args: []Node{argCall}}
	lam := &Lambda{base: base{sp()}, Body: []Node{outer}}

	out, err := MarkTailCalls([]Node{lam})
	if err != nil {
		t.Fatalf("MarkTailCalls: %v", err)
	}
	got := out[0].(*Lambda).Body[0].(*Call)
	if !got.IsTail {
		t.Error("expected outer call (last statement) to be tail")
	}
	if got.Args[0].(*Call).IsTail {
		t.Error("expected argument call not to be tail")
	}
}

func TestMarkTailCallsLetPropagatesOnlyToLastBodyStatement(t *testing.T) {
	first := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "a"}}
	last := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "b"}}
	bindingCall := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "init"}}
	let := &Let{
		base:     base{sp()},
		Bindings: []Binding{{Name: "x", Value: bindingCall}},
		Body:     []Node{first, last},
	}
	lam := &Lambda{base: base{sp()}, Body: []Node{let}}

	out, err := MarkTailCalls([]Node{lam})
	if err != nil {
		t.Fatalf("MarkTailCalls: %v", err)
	}
	got := out[0].(*Lambda).Body[0].(*Let)
	if got.Bindings[0].Value.(*Call).IsTail {
		t.Error("binding value must never be tail")
	}
	if got.Body[0].(*Call).IsTail {
		t.Error("expected non-last body statement not to be tail")
	}
	if !got.Body[1].(*Call).IsTail {
		t.Error("expected last body statement to be tail")
	}
}

func TestMarkTailCallsTopLevelExprIsTail(t *testing.T) {
	call := &Call{base: base{sp()}, Fn: &Var{base: base{sp()}, Name: "main"}}
	out, err := MarkTailCalls([]Node{call})
	if err != nil {
		t.Fatalf("MarkTailCalls: %v", err)
	}
	if !out[0].(*Call).IsTail {
		t.Error("expected top-level expression to be marked tail")
	}
}
