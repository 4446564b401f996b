package ast

import "testing"

func TestResolveUsesGlobalVarAllocatesGlobalId(t *testing.T) {
	v := &Var{base: base{sp()}, Name: "display"}
	res, err := ResolveUses([]Node{v}, NewVarIdGen())
	if err != nil {
		t.Fatalf("ResolveUses: %v", err)
	}
	got := res.Roots[0].(*Var)
	if got.Ref.Kind != RefGlobal {
		t.Fatalf("expected RefGlobal, got %v", got.Ref.Kind)
	}
	if res.GlobalsUsed[got.Ref.Global] != "display" {
		t.Errorf("expected globals-used entry for display, got %v", res.GlobalsUsed)
	}
}

func TestVarIdGenIsInjectiveAndCached(t *testing.T) {
	g := NewVarIdGen()
	a := g.GlobalFor("foo")
	b := g.GlobalFor("bar")
	c := g.GlobalFor("foo")
	if a == b {
		t.Error("distinct names must get distinct ids")
	}
	if a != c {
		t.Error("the same name must resolve to the same id on a second lookup")
	}
}

func TestResolveUsesLetBindingResolvesToLocal(t *testing.T) {
	let := &Let{
		base:     base{sp()},
		Bindings: []Binding{{Name: "x", Value: &Const{base: base{sp()}, Kind: ConstInt, Int: 1}}},
		Body:     []Node{&Var{base: base{sp()}, Name: "x"}},
	}
	res, err := ResolveUses([]Node{let}, NewVarIdGen())
	if err != nil {
		t.Fatalf("ResolveUses: %v", err)
	}
	got := res.Roots[0].(*Let)
	ref := got.Body[0].(*Var).Ref
	if ref.Kind != RefLocal {
		t.Fatalf("expected RefLocal, got %v", ref.Kind)
	}
	if ref.Local != got.Bindings[0].Id {
		t.Errorf("var did not resolve to the let-bound local: ref=%v bound id=%v", ref.Local, got.Bindings[0].Id)
	}
}

func TestResolveUsesLambdaCapturesOuterLocal(t *testing.T) {
	inner := &Lambda{
		base: base{sp()},
		Body: []Node{&Var{base: base{sp()}, Name: "x"}},
	}
	let := &Let{
		base:     base{sp()},
		Bindings: []Binding{{Name: "x", Value: &Const{base: base{sp()}, Kind: ConstInt, Int: 1}}},
		Body:     []Node{inner},
	}
	res, err := ResolveUses([]Node{let}, NewVarIdGen())
	if err != nil {
		t.Fatalf("ResolveUses: %v", err)
	}
	got := res.Roots[0].(*Let)
	lam := got.Body[0].(*Lambda)
	if len(lam.Captures) != 1 {
		t.Fatalf("expected lambda to capture exactly one local, got %v", lam.Captures)
	}
	boundId := got.Bindings[0].Id
	if lam.Captures[0] != boundId {
		t.Errorf("expected capture of the let-bound local %v, got %v", boundId, lam.Captures[0])
	}
	if !res.Captured[boundId] {
		t.Error("expected the outer local to be globally flagged captured")
	}
}

func TestResolveUsesBoxVarsIsCapturedAndMutated(t *testing.T) {
	setInner := &Lambda{
		base: base{sp()},
		Body: []Node{&Set{base: base{sp()}, Name: "x", Value: &Const{base: base{sp()}, Kind: ConstInt, Int: 2}}},
	}
	let := &Let{
		base:     base{sp()},
		Bindings: []Binding{{Name: "x", Value: &Const{base: base{sp()}, Kind: ConstInt, Int: 1}}},
		Body:     []Node{setInner, &Var{base: base{sp()}, Name: "x"}},
	}
	res, err := ResolveUses([]Node{let}, NewVarIdGen())
	if err != nil {
		t.Fatalf("ResolveUses: %v", err)
	}
	got := res.Roots[0].(*Let)
	boundId := got.Bindings[0].Id
	if !res.Mutated[boundId] {
		t.Error("expected the local to be flagged mutated")
	}
	if !res.Captured[boundId] {
		t.Error("expected the local to be flagged captured")
	}
	if !res.BoxVars[boundId] {
		t.Error("expected the local to be in box_vars (captured ∩ mutated)")
	}
}

func TestResolveUsesLetRecBindingsAreMutated(t *testing.T) {
	lr := &LetRec{
		base: base{sp()},
		Bindings: []Binding{
			{Name: "f", Value: &Lambda{base: base{sp()}, Body: []Node{&Const{base: base{sp()}, Kind: ConstInt, Int: 0}}}},
		},
		Body: []Node{&Var{base: base{sp()}, Name: "f"}},
	}
	res, err := ResolveUses([]Node{lr}, NewVarIdGen())
	if err != nil {
		t.Fatalf("ResolveUses: %v", err)
	}
	got := res.Roots[0].(*LetRec)
	if !res.Mutated[got.Bindings[0].Id] {
		t.Error("expected letrec binding to be unconditionally flagged mutated")
	}
}

func TestResolveUsesReferenceBeforeInitializedIsError(t *testing.T) {
	lr := &LetRec{
		base: base{sp()},
		Bindings: []Binding{
			{Name: "a", Value: &Var{base: base{sp()}, Name: "a"}},
		},
		Body: []Node{&Var{base: base{sp()}, Name: "a"}},
	}
	_, err := ResolveUses([]Node{lr}, NewVarIdGen())
	if err == nil {
		t.Fatal("expected an error referencing a letrec binding from its own initializer outside a lambda")
	}
}

func TestResolveUsesLetRecSelfReferenceThroughLambdaIsFine(t *testing.T) {
	lr := &LetRec{
		base: base{sp()},
		Bindings: []Binding{
			{Name: "f", Value: &Lambda{base: base{sp()}, Body: []Node{&Var{base: base{sp()}, Name: "f"}}}},
		},
		Body: []Node{&Var{base: base{sp()}, Name: "f"}},
	}
	_, err := ResolveUses([]Node{lr}, NewVarIdGen())
	if err != nil {
		t.Fatalf("expected self-reference through a lambda body to be legal, got %v", err)
	}
}
