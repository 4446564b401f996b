package ast

import (
	"github.com/webschembly/wsc/internal/source"
	"github.com/webschembly/wsc/internal/wserrors"
)

// VarIdGen owns the injective mapping from global source names to GlobalIds
// (spec.md §3 "Ownership and lifecycle"): it is session-wide and persists
// across every module compiled in a Compiler session, so the same free
// variable name always resolves to the same global slot.
type VarIdGen struct {
	next   GlobalId
	byName map[string]GlobalId
}

// NewVarIdGen creates an empty generator.
func NewVarIdGen() *VarIdGen {
	return &VarIdGen{byName: make(map[string]GlobalId)}
}

// GlobalFor returns name's global id, allocating a fresh one on first sight.
func (g *VarIdGen) GlobalFor(name string) GlobalId {
	if id, ok := g.byName[name]; ok {
		return id
	}
	id := g.next
	g.next++
	g.byName[name] = id
	return id
}

// Lookup returns name's global id without allocating one, for the
// compiler façade's get_global_id operation (spec.md §6: "stable across
// modules in the session").
func (g *VarIdGen) Lookup(name string) (GlobalId, bool) {
	id, ok := g.byName[name]
	return id, ok
}

// envEntry is one lexical binding: its allocated local, whether it has been
// observed crossing into a nested lambda (captured), and whether its
// initializer has run yet.
type envEntry struct {
	id          LocalId
	captured    bool
	initialized bool
}

// LambdaState accumulates, for one lambda currently being resolved, the
// locals it captures from an enclosing scope and the locals it defines
// itself (its arguments plus any of its own let/letrec-introduced locals).
type LambdaState struct {
	Captures map[LocalId]bool
	Defines  map[LocalId]bool
}

func newLambdaState() *LambdaState {
	return &LambdaState{Captures: map[LocalId]bool{}, Defines: map[LocalId]bool{}}
}

// UsedResult is the whole-AST metadata the Used phase computes in addition
// to the annotated tree itself (spec.md §3 phase table, final row).
type UsedResult struct {
	Roots       []Node
	BoxVars     map[LocalId]bool // captured ∩ mutated: must be heap cells
	Captured    map[LocalId]bool
	Mutated     map[LocalId]bool
	GlobalsUsed map[GlobalId]string
}

type resolver struct {
	globals     *VarIdGen
	nextLocal   LocalId
	captured    map[LocalId]bool
	mutated     map[LocalId]bool
	globalsUsed map[GlobalId]string
}

// ResolveUses lowers a TailCall-phase AST to Used phase: resolves every
// variable reference, computes each lambda's capture/define sets, and
// derives the box_vars set of locals that must be heap-allocated because
// they are both captured by an inner lambda and mutated (spec.md §4.3
// "Used").
func ResolveUses(roots []Node, globals *VarIdGen) (*UsedResult, error) {
	r := &resolver{
		globals:     globals,
		captured:    map[LocalId]bool{},
		mutated:     map[LocalId]bool{},
		globalsUsed: map[GlobalId]string{},
	}
	out, err := r.resolveBody(map[string]*envEntry{}, nil, roots)
	if err != nil {
		return nil, err
	}
	if err := Validate(Used, out); err != nil {
		return nil, err
	}
	boxVars := map[LocalId]bool{}
	for id := range r.captured {
		if r.mutated[id] {
			boxVars[id] = true
		}
	}
	return &UsedResult{
		Roots:       out,
		BoxVars:     boxVars,
		Captured:    r.captured,
		Mutated:     r.mutated,
		GlobalsUsed: r.globalsUsed,
	}, nil
}

func (r *resolver) freshLocal() LocalId {
	id := r.nextLocal
	r.nextLocal++
	return id
}

// noteCaptured records that local id crosses a lambda boundary: flags it
// globally captured, and propagates the capture outward through the lambda
// stack until reaching a lambda that itself defines id (spec.md: "those
// captures are also propagated to the parent's LambdaState, minus
// variables defined in the parent").
func (r *resolver) noteCaptured(id LocalId, stack []*LambdaState) {
	r.captured[id] = true
	for i := len(stack) - 1; i >= 0; i-- {
		ls := stack[i]
		if ls.Defines[id] {
			break
		}
		ls.Captures[id] = true
	}
}

func (r *resolver) resolveBody(env map[string]*envEntry, stack []*LambdaState, body []Node) ([]Node, error) {
	out := make([]Node, len(body))
	for i, n := range body {
		resolved, err := r.resolveExpr(env, stack, n)
		if err != nil {
			return nil, err
		}
		out[i] = resolved
	}
	return out, nil
}

func (r *resolver) resolveExpr(env map[string]*envEntry, stack []*LambdaState, n Node) (Node, error) {
	switch v := n.(type) {
	case *Const:
		return v, nil
	case *Var:
		ref, err := r.resolveName(env, stack, v.Name, v.Span())
		if err != nil {
			return nil, err
		}
		return &Var{base: v.base, Name: v.Name, Ref: ref}, nil
	case *If:
		cond, err := r.resolveExpr(env, stack, v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := r.resolveExpr(env, stack, v.Then)
		if err != nil {
			return nil, err
		}
		els, err := r.resolveExpr(env, stack, v.Else)
		if err != nil {
			return nil, err
		}
		return &If{base: v.base, Cond: cond, Then: then, Else: els}, nil
	case *Lambda:
		return r.resolveLambda(env, stack, v)
	case *Call:
		fn, err := r.resolveExpr(env, stack, v.Fn)
		if err != nil {
			return nil, err
		}
		args := make([]Node, len(v.Args))
		for i, a := range v.Args {
			args[i], err = r.resolveExpr(env, stack, a)
			if err != nil {
				return nil, err
			}
		}
		return &Call{base: v.base, Fn: fn, Args: args, IsTail: v.IsTail}, nil
	case *Let:
		return r.resolveLet(env, stack, v)
	case *LetRec:
		return r.resolveLetRec(env, stack, v)
	case *Set:
		val, err := r.resolveExpr(env, stack, v.Value)
		if err != nil {
			return nil, err
		}
		ref, err := r.resolveSetTarget(env, stack, v.Name, v.Span())
		if err != nil {
			return nil, err
		}
		return &Set{base: v.base, Name: v.Name, Value: val, Ref: ref}, nil
	case *Cons:
		car, err := r.resolveExpr(env, stack, v.Car)
		if err != nil {
			return nil, err
		}
		cdr, err := r.resolveExpr(env, stack, v.Cdr)
		if err != nil {
			return nil, err
		}
		return &Cons{base: v.base, Car: car, Cdr: cdr}, nil
	case *VectorLit:
		elems := make([]Node, len(v.Elems))
		for i, e := range v.Elems {
			var err error
			elems[i], err = r.resolveExpr(env, stack, e)
			if err != nil {
				return nil, err
			}
		}
		return &VectorLit{base: v.base, Elems: elems}, nil
	case *UVectorLit:
		return v, nil
	default:
		return nil, wserrors.New("ast", "AST001", "resolveExpr encountered a node the earlier phases should have eliminated", nil)
	}
}

// resolveName looks up a bare variable reference: a local in scope resolves
// to it (erroring if not yet initialized and noting a capture if the entry
// was inherited from an enclosing lambda); otherwise a global id is
// allocated or reused.
func (r *resolver) resolveName(env map[string]*envEntry, stack []*LambdaState, name string, span source.Span) (VarRef, error) {
	if e, ok := env[name]; ok {
		if !e.initialized {
			return VarRef{}, astErr("AST003", span, "%q referenced before its binding is initialized", name)
		}
		if e.captured && len(stack) > 0 {
			r.noteCaptured(e.id, stack)
		}
		return VarRef{Kind: RefLocal, Local: e.id}, nil
	}
	id := r.globals.GlobalFor(name)
	r.globalsUsed[id] = name
	return VarRef{Kind: RefGlobal, Global: id}, nil
}

func (r *resolver) resolveSetTarget(env map[string]*envEntry, stack []*LambdaState, name string, span source.Span) (VarRef, error) {
	if e, ok := env[name]; ok {
		if !e.initialized {
			return VarRef{}, astErr("AST004", span, "set! of %q before its binding is initialized", name)
		}
		r.mutated[e.id] = true
		if e.captured && len(stack) > 0 {
			r.noteCaptured(e.id, stack)
		}
		return VarRef{Kind: RefLocal, Local: e.id}, nil
	}
	id := r.globals.GlobalFor(name)
	r.globalsUsed[id] = name
	return VarRef{Kind: RefGlobal, Global: id}, nil
}

// resolveLambda clones the environment, marks every inherited entry
// captured+initialized, allocates fresh locals for the parameters, and
// resolves the body under a fresh LambdaState pushed onto the stack.
func (r *resolver) resolveLambda(env map[string]*envEntry, stack []*LambdaState, l *Lambda) (Node, error) {
	childEnv := make(map[string]*envEntry, len(env)+len(l.Params))
	for name, e := range env {
		childEnv[name] = &envEntry{id: e.id, captured: true, initialized: true}
	}
	ls := newLambdaState()
	argIds := make([]LocalId, len(l.Params))
	for i, p := range l.Params {
		id := r.freshLocal()
		argIds[i] = id
		ls.Defines[id] = true
		childEnv[p] = &envEntry{id: id, captured: false, initialized: true}
	}
	body, err := r.resolveBody(childEnv, append(stack, ls), l.Body)
	if err != nil {
		return nil, err
	}
	defines := sortedIds(ls.Defines)
	captures := sortedIds(ls.Captures)
	return &Lambda{base: l.base, Params: l.Params, Body: body, ArgIds: argIds, Defines: defines, Captures: captures}, nil
}

// resolveLet lowers bindings left-to-right: each initializer sees only the
// bindings processed before it, then its local becomes visible/initialized
// for the rest of the body.
func (r *resolver) resolveLet(env map[string]*envEntry, stack []*LambdaState, l *Let) (Node, error) {
	bodyEnv := make(map[string]*envEntry, len(env)+len(l.Bindings))
	for name, e := range env {
		bodyEnv[name] = e
	}
	bindings := make([]Binding, len(l.Bindings))
	for i, b := range l.Bindings {
		val, err := r.resolveExpr(bodyEnv, stack, b.Value)
		if err != nil {
			return nil, err
		}
		id := r.freshLocal()
		if len(stack) > 0 {
			stack[len(stack)-1].Defines[id] = true
		}
		bodyEnv[b.Name] = &envEntry{id: id, captured: false, initialized: true}
		bindings[i] = Binding{Name: b.Name, Value: val, Id: id}
	}
	body, err := r.resolveBody(bodyEnv, stack, l.Body)
	if err != nil {
		return nil, err
	}
	return &Let{base: l.base, Bindings: bindings, Body: body}, nil
}

// resolveLetRec allocates every local up front (uninitialized, so a
// reference from one initializer to a later binding is an error unless it
// passes through a nested lambda, which forces initialized=true on clone),
// resolves each initializer under the full set, then flips everything to
// initialized before the body. LetRec bindings are unconditionally flagged
// mutated (spec.md §9 Open Question: one-shot specialization deferred).
func (r *resolver) resolveLetRec(env map[string]*envEntry, stack []*LambdaState, l *LetRec) (Node, error) {
	bodyEnv := make(map[string]*envEntry, len(env)+len(l.Bindings))
	for name, e := range env {
		bodyEnv[name] = e
	}
	entries := make([]*envEntry, len(l.Bindings))
	ids := make([]LocalId, len(l.Bindings))
	for i, b := range l.Bindings {
		id := r.freshLocal()
		ids[i] = id
		if len(stack) > 0 {
			stack[len(stack)-1].Defines[id] = true
		}
		e := &envEntry{id: id, captured: false, initialized: false}
		entries[i] = e
		bodyEnv[b.Name] = e
	}
	bindings := make([]Binding, len(l.Bindings))
	for i, b := range l.Bindings {
		val, err := r.resolveExpr(bodyEnv, stack, b.Value)
		if err != nil {
			return nil, err
		}
		bindings[i] = Binding{Name: b.Name, Value: val, Id: ids[i]}
		r.mutated[ids[i]] = true
	}
	for _, e := range entries {
		e.initialized = true
	}
	body, err := r.resolveBody(bodyEnv, stack, l.Body)
	if err != nil {
		return nil, err
	}
	return &LetRec{base: l.base, Bindings: bindings, Body: body}, nil
}

func sortedIds(set map[LocalId]bool) []LocalId {
	out := make([]LocalId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	// Insertion sort: capture sets are small (typically a handful of free
	// variables per closure), and this keeps the AST package free of an
	// extra sort.Slice closure allocation per lambda.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
