package ast

import "fmt"

// defineCtx is the three-state define context of spec.md §4.3 "Defined".
type defineCtx int

const (
	ctxGlobal defineCtx = iota
	ctxLocalDefinable
	ctxLocalUndefinable
)

// ResolveDefines lowers a Desugared-phase AST to Defined phase: top-level
// `define` becomes `Set`; scope-head local defines are collected and the
// enclosing body is wrapped in a synthetic LetRec.
func ResolveDefines(roots []Node) ([]Node, error) {
	out, err := resolveDefinesBody(roots, ctxGlobal)
	if err != nil {
		return nil, err
	}
	if err := Validate(Defined, out); err != nil {
		return nil, err
	}
	return out, nil
}

// resolveDefinesBody processes one scope body: while still at the head of
// the body and context started as LocalDefinable, collects consecutive
// `define`s into bindings; the first non-define form flips the context to
// LocalUndefinable for the remainder of the scope (further `define`s in
// that scope are errors). A ctxGlobal body never wraps in a LetRec: its
// defines lower to Set in place.
func resolveDefinesBody(body []Node, startCtx defineCtx) ([]Node, error) {
	ctx := startCtx
	var bindings []Binding
	var rest []Node

	for _, n := range body {
		if def, ok := n.(*Define); ok {
			switch ctx {
			case ctxGlobal:
				val, err := resolveDefinesExpr(def.Value)
				if err != nil {
					return nil, err
				}
				rest = append(rest, &Set{base: def.base, Name: def.Name, Value: val})
				continue
			case ctxLocalDefinable:
				val, err := resolveDefinesExpr(def.Value)
				if err != nil {
					return nil, err
				}
				bindings = append(bindings, Binding{Name: def.Name, Value: val, Id: NoLocal})
				continue
			case ctxLocalUndefinable:
				return nil, astErr("AST002", def.Span(), "define not allowed here: %q follows a non-define form in this scope", def.Name)
			}
		}
		resolved, err := resolveDefinesExpr(n)
		if err != nil {
			return nil, err
		}
		rest = append(rest, resolved)
		if ctx == ctxLocalDefinable {
			ctx = ctxLocalUndefinable
		}
	}

	if len(bindings) == 0 {
		return rest, nil
	}
	// bindings is only populated while walking body, so body is non-empty here.
	span := body[0].Span()
	wrapped := &LetRec{base: base{span}, Bindings: bindings, Body: rest}
	return []Node{wrapped}, nil
}

func resolveDefinesExpr(n Node) (Node, error) {
	switch v := n.(type) {
	case *Const, *Var:
		return n, nil
	case *If:
		cond, err := resolveDefinesExpr(v.Cond)
		if err != nil {
			return nil, err
		}
		then, err := resolveDefinesExpr(v.Then)
		if err != nil {
			return nil, err
		}
		els, err := resolveDefinesExpr(v.Else)
		if err != nil {
			return nil, err
		}
		return &If{base: v.base, Cond: cond, Then: then, Else: els}, nil
	case *Lambda:
		body, err := resolveDefinesBody(v.Body, ctxLocalDefinable)
		if err != nil {
			return nil, err
		}
		return &Lambda{base: v.base, Params: v.Params, Body: body}, nil
	case *Call:
		fn, err := resolveDefinesExpr(v.Fn)
		if err != nil {
			return nil, err
		}
		args := make([]Node, len(v.Args))
		for i, a := range v.Args {
			args[i], err = resolveDefinesExpr(a)
			if err != nil {
				return nil, err
			}
		}
		return &Call{base: v.base, Fn: fn, Args: args}, nil
	case *Let:
		bindings, err := resolveDefinesBindings(v.Bindings)
		if err != nil {
			return nil, err
		}
		body, err := resolveDefinesBody(v.Body, ctxLocalDefinable)
		if err != nil {
			return nil, err
		}
		return &Let{base: v.base, Bindings: bindings, Body: body}, nil
	case *LetRec:
		bindings, err := resolveDefinesBindings(v.Bindings)
		if err != nil {
			return nil, err
		}
		body, err := resolveDefinesBody(v.Body, ctxLocalDefinable)
		if err != nil {
			return nil, err
		}
		return &LetRec{base: v.base, Bindings: bindings, Body: body}, nil
	case *Set:
		val, err := resolveDefinesExpr(v.Value)
		if err != nil {
			return nil, err
		}
		return &Set{base: v.base, Name: v.Name, Value: val}, nil
	case *Cons:
		car, err := resolveDefinesExpr(v.Car)
		if err != nil {
			return nil, err
		}
		cdr, err := resolveDefinesExpr(v.Cdr)
		if err != nil {
			return nil, err
		}
		return &Cons{base: v.base, Car: car, Cdr: cdr}, nil
	case *VectorLit:
		elems := make([]Node, len(v.Elems))
		for i, e := range v.Elems {
			var err error
			elems[i], err = resolveDefinesExpr(e)
			if err != nil {
				return nil, err
			}
		}
		return &VectorLit{base: v.base, Elems: elems}, nil
	case *UVectorLit:
		return v, nil
	default:
		return nil, fmt.Errorf("ast: resolveDefinesExpr encountered unexpected node %T (desugaring incomplete)", n)
	}
}

func resolveDefinesBindings(bs []Binding) ([]Binding, error) {
	out := make([]Binding, len(bs))
	for i, b := range bs {
		val, err := resolveDefinesExpr(b.Value)
		if err != nil {
			return nil, err
		}
		out[i] = Binding{Name: b.Name, Value: val, Id: NoLocal}
	}
	return out, nil
}
