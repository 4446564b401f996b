package ast

import (
	"fmt"

	"github.com/webschembly/wsc/internal/sexpr"
	"github.com/webschembly/wsc/internal/source"
	"github.com/webschembly/wsc/internal/wserrors"
)


// Build converts a sequence of top-level s-expressions into Parsed-phase
// AST nodes (spec.md §4.3 "Parsed <- s-expressions").
func Build(toplevel []*sexpr.SExpr) ([]Node, error) {
	out := make([]Node, 0, len(toplevel))
	for _, e := range toplevel {
		n, err := buildExpr(e)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func buildExpr(e *sexpr.SExpr) (Node, error) {
	switch e.Kind {
	case sexpr.KindBool:
		return &Const{base: base{e.Span}, Kind: ConstBool, Bool: e.Bool}, nil
	case sexpr.KindInt:
		return &Const{base: base{e.Span}, Kind: ConstInt, Int: e.Int}, nil
	case sexpr.KindFloat:
		return &Const{base: base{e.Span}, Kind: ConstFloat, Flt: e.Float}, nil
	case sexpr.KindNaN:
		return &Const{base: base{e.Span}, Kind: ConstFloat, Flt: nanValue()}, nil
	case sexpr.KindString:
		return &Const{base: base{e.Span}, Kind: ConstString, Str: e.Str}, nil
	case sexpr.KindChar:
		return &Const{base: base{e.Span}, Kind: ConstChar, Chr: e.Char}, nil
	case sexpr.KindNil:
		return &Const{base: base{e.Span}, Kind: ConstNil}, nil
	case sexpr.KindSymbol:
		return &Var{base: base{e.Span}, Name: e.Str}, nil
	case sexpr.KindVector:
		return &Quote{base: base{e.Span}, Datum: datumFromSExpr(e)}, nil
	case sexpr.KindUVector:
		return &Quote{base: base{e.Span}, Datum: datumFromSExpr(e)}, nil
	case sexpr.KindPair:
		return buildForm(e)
	default:
		return nil, astErr("AST001", e.Span, "cannot build AST from s-expression kind %v", e.Kind)
	}
}

func buildForm(e *sexpr.SExpr) (Node, error) {
	items, err := e.ToVec()
	if err != nil {
		return nil, astErr("AST001", e.Span, "improper list in operator position")
	}
	if len(items) == 0 {
		return nil, astErr("AST001", e.Span, "empty application")
	}
	head := items[0]
	if head.Kind == sexpr.KindSymbol {
		switch head.Str {
		case "quote":
			if len(items) != 2 {
				return nil, astErr("AST001", e.Span, "quote expects exactly 1 argument")
			}
			return &Quote{base: base{e.Span}, Datum: datumFromSExpr(items[1])}, nil
		case "define":
			return buildDefine(e, items)
		case "lambda":
			return buildLambda(e, items)
		case "if":
			return buildIf(e, items)
		case "cond":
			return buildCond(e, items)
		case "let":
			return buildLet(e, items)
		case "let*":
			return buildLetStar(e, items)
		case "letrec":
			return buildLetRec(e, items)
		case "begin":
			body, err := buildAll(items[1:])
			if err != nil {
				return nil, err
			}
			return &Begin{base: base{e.Span}, Exprs: body}, nil
		case "set!":
			if len(items) != 3 || items[1].Kind != sexpr.KindSymbol {
				return nil, astErr("AST001", e.Span, "invalid set! expression")
			}
			val, err := buildExpr(items[2])
			if err != nil {
				return nil, err
			}
			return &Set{base: base{e.Span}, Name: items[1].Str, Value: val}, nil
		}
	}
	// Not a recognized special form: a call.
	fn, err := buildExpr(head)
	if err != nil {
		return nil, err
	}
	args, err := buildAll(items[1:])
	if err != nil {
		return nil, err
	}
	return &Call{base: base{e.Span}, Fn: fn, Args: args}, nil
}

func buildAll(items []*sexpr.SExpr) ([]Node, error) {
	out := make([]Node, 0, len(items))
	for _, it := range items {
		n, err := buildExpr(it)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func buildDefine(e *sexpr.SExpr, items []*sexpr.SExpr) (Node, error) {
	if len(items) < 2 {
		return nil, astErr("AST001", e.Span, "invalid define expression")
	}
	target := items[1]
	switch target.Kind {
	case sexpr.KindSymbol:
		if len(items) != 3 {
			return nil, astErr("AST001", e.Span, "invalid define expression")
		}
		val, err := buildExpr(items[2])
		if err != nil {
			return nil, err
		}
		return &Define{base: base{e.Span}, Name: target.Str, Value: val}, nil
	case sexpr.KindPair:
		// (define (f args...) body...) sugar for (define f (lambda (args...) body...))
		parts, err := target.ToVec()
		if err != nil || len(parts) == 0 || parts[0].Kind != sexpr.KindSymbol {
			return nil, astErr("AST001", e.Span, "invalid define expression")
		}
		name := parts[0].Str
		params := make([]string, 0, len(parts)-1)
		for _, p := range parts[1:] {
			if p.Kind != sexpr.KindSymbol {
				return nil, astErr("AST001", e.Span, "invalid define parameter list")
			}
			params = append(params, p.Str)
		}
		body, err := buildAll(items[2:])
		if err != nil {
			return nil, err
		}
		lam := &Lambda{base: base{e.Span}, Params: params, Body: body}
		return &Define{base: base{e.Span}, Name: name, Value: lam}, nil
	default:
		return nil, astErr("AST001", e.Span, "invalid define expression")
	}
}

func buildLambda(e *sexpr.SExpr, items []*sexpr.SExpr) (Node, error) {
	if len(items) < 2 {
		return nil, astErr("AST001", e.Span, "invalid lambda expression")
	}
	paramList, err := items[1].ToVec()
	if err != nil {
		return nil, astErr("AST001", e.Span, "invalid lambda parameter list")
	}
	params := make([]string, 0, len(paramList))
	for _, p := range paramList {
		if p.Kind != sexpr.KindSymbol {
			return nil, astErr("AST001", e.Span, "lambda parameters must be identifiers")
		}
		params = append(params, p.Str)
	}
	body, err := buildAll(items[2:])
	if err != nil {
		return nil, err
	}
	return &Lambda{base: base{e.Span}, Params: params, Body: body}, nil
}

func buildIf(e *sexpr.SExpr, items []*sexpr.SExpr) (Node, error) {
	if len(items) != 3 && len(items) != 4 {
		return nil, astErr("AST001", e.Span, "invalid if expression")
	}
	cond, err := buildExpr(items[1])
	if err != nil {
		return nil, err
	}
	then, err := buildExpr(items[2])
	if err != nil {
		return nil, err
	}
	var elseN Node = &Const{base: base{e.Span}, Kind: ConstNil}
	if len(items) == 4 {
		elseN, err = buildExpr(items[3])
		if err != nil {
			return nil, err
		}
	}
	return &If{base: base{e.Span}, Cond: cond, Then: then, Else: elseN}, nil
}

func buildCond(e *sexpr.SExpr, items []*sexpr.SExpr) (Node, error) {
	var clauses []CondClause
	for _, raw := range items[1:] {
		parts, err := raw.ToVec()
		if err != nil || len(parts) == 0 {
			return nil, astErr("AST001", e.Span, "invalid cond clause")
		}
		if parts[0].Kind == sexpr.KindSymbol && parts[0].Str == "else" {
			body, err := buildAll(parts[1:])
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, CondClause{Test: nil, Body: body})
			continue
		}
		test, err := buildExpr(parts[0])
		if err != nil {
			return nil, err
		}
		if len(parts) >= 2 && parts[1].Kind == sexpr.KindSymbol && parts[1].Str == "=>" {
			if len(parts) != 3 {
				return nil, astErr("AST001", e.Span, "invalid cond => clause")
			}
			proc, err := buildExpr(parts[2])
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, CondClause{Test: test, Arrow: true, Body: []Node{proc}})
			continue
		}
		body, err := buildAll(parts[1:])
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, CondClause{Test: test, Body: body})
	}
	return &Cond{base: base{e.Span}, Clauses: clauses}, nil
}

func buildBindings(raw *sexpr.SExpr) ([]Binding, error) {
	items, err := raw.ToVec()
	if err != nil {
		return nil, astErr("AST001", raw.Span, "invalid binding list")
	}
	out := make([]Binding, 0, len(items))
	for _, b := range items {
		parts, err := b.ToVec()
		if err != nil || len(parts) != 2 || parts[0].Kind != sexpr.KindSymbol {
			return nil, astErr("AST001", raw.Span, "invalid binding")
		}
		val, err := buildExpr(parts[1])
		if err != nil {
			return nil, err
		}
		out = append(out, Binding{Name: parts[0].Str, Value: val, Id: NoLocal})
	}
	return out, nil
}

func buildLet(e *sexpr.SExpr, items []*sexpr.SExpr) (Node, error) {
	if len(items) < 2 {
		return nil, astErr("AST001", e.Span, "invalid let expression")
	}
	if items[1].Kind == sexpr.KindSymbol {
		// Named let: (let tag ((x v)...) body...)
		if len(items) < 3 {
			return nil, astErr("AST001", e.Span, "invalid named let expression")
		}
		bindings, err := buildBindings(items[2])
		if err != nil {
			return nil, err
		}
		body, err := buildAll(items[3:])
		if err != nil {
			return nil, err
		}
		return &NamedLet{base: base{e.Span}, Tag: items[1].Str, Bindings: bindings, Body: body}, nil
	}
	bindings, err := buildBindings(items[1])
	if err != nil {
		return nil, err
	}
	body, err := buildAll(items[2:])
	if err != nil {
		return nil, err
	}
	return &Let{base: base{e.Span}, Bindings: bindings, Body: body}, nil
}

func buildLetStar(e *sexpr.SExpr, items []*sexpr.SExpr) (Node, error) {
	if len(items) < 2 {
		return nil, astErr("AST001", e.Span, "invalid let* expression")
	}
	bindings, err := buildBindings(items[1])
	if err != nil {
		return nil, err
	}
	body, err := buildAll(items[2:])
	if err != nil {
		return nil, err
	}
	return &LetStar{base: base{e.Span}, Bindings: bindings, Body: body}, nil
}

func buildLetRec(e *sexpr.SExpr, items []*sexpr.SExpr) (Node, error) {
	if len(items) < 2 {
		return nil, astErr("AST001", e.Span, "invalid letrec expression")
	}
	// letrec never has a leading tag symbol; the named-let form
	// (let tag ((x v)...) body...) is handled in buildLet.
	bindings, err := buildBindings(items[1])
	if err != nil {
		return nil, err
	}
	body, err := buildAll(items[2:])
	if err != nil {
		return nil, err
	}
	return &LetRec{base: base{e.Span}, Bindings: bindings, Body: body}, nil
}

func nanValue() float64 {
	var zero float64
	return zero / zero
}

func datumFromSExpr(e *sexpr.SExpr) *QuoteDatum {
	switch e.Kind {
	case sexpr.KindNil:
		return &QuoteDatum{Kind: ConstNil}
	case sexpr.KindBool:
		return &QuoteDatum{Kind: ConstBool, Bool: e.Bool}
	case sexpr.KindInt:
		return &QuoteDatum{Kind: ConstInt, Int: e.Int}
	case sexpr.KindFloat:
		return &QuoteDatum{Kind: ConstFloat, Flt: e.Float}
	case sexpr.KindNaN:
		return &QuoteDatum{Kind: ConstFloat, Flt: nanValue()}
	case sexpr.KindString:
		return &QuoteDatum{Kind: ConstString, Str: e.Str}
	case sexpr.KindChar:
		return &QuoteDatum{Kind: ConstChar, Chr: e.Char}
	case sexpr.KindSymbol:
		return &QuoteDatum{Kind: ConstSymbol, Str: e.Str}
	case sexpr.KindPair:
		return &QuoteDatum{IsPair: true, Car: datumFromSExpr(e.Car), Cdr: datumFromSExpr(e.Cdr)}
	case sexpr.KindVector:
		vec := make([]*QuoteDatum, len(e.Vector))
		for i, el := range e.Vector {
			vec[i] = datumFromSExpr(el)
		}
		return &QuoteDatum{IsVec: true, Vec: vec}
	case sexpr.KindUVector:
		kind := UVecS64
		if e.UVecKind == sexpr.UVecF64 {
			kind = UVecF64
		}
		return &QuoteDatum{IsUVec: true, UVecKind: kind, UVecI: e.UVecI, UVecF: e.UVecF}
	default:
		return &QuoteDatum{Kind: ConstNil}
	}
}

func astErr(code string, span source.Span, format string, args ...any) error {
	return wserrors.New("ast", code, fmt.Sprintf(format, args...), &span)
}
