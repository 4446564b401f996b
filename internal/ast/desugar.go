package ast

import (
	"strconv"

	"github.com/webschembly/wsc/internal/source"
)

// Desugar lowers a Parsed-phase AST to Desugared phase (spec.md §4.3):
// eliminates Begin, Cond, LetStar, NamedLet, Quote, introducing explicit
// If/Let/LetRec/Cons/Vector/UVector/Const in their place. A monotone
// counter supplies fresh temporary names `__desugared_temp_N`.
type desugarer struct {
	tempCounter int
}

// Desugar runs the pass over a sequence of top-level expressions.
func Desugar(roots []Node) ([]Node, error) {
	d := &desugarer{}
	out := d.desugarBody(roots)
	if err := Validate(Desugared, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *desugarer) freshTemp() string {
	d.tempCounter++
	return "__desugared_temp_" + strconv.Itoa(d.tempCounter)
}

// desugarBody desugars a body sequence, splicing any top-level Begin's
// expressions directly into the enclosing sequence (spec.md: "eliminates
// Begin by inlining its expression sequence into the enclosing expression
// sequence").
func (d *desugarer) desugarBody(body []Node) []Node {
	out := make([]Node, 0, len(body))
	for _, n := range body {
		dn := d.desugarExpr(n)
		if b, ok := dn.(*Begin); ok {
			out = append(out, b.Exprs...)
			continue
		}
		out = append(out, dn)
	}
	return out
}

// desugarSeqAsExpr sequences a body into a single expression via nested
// single-binding Let forms when Begin appears where a single expression
// is syntactically required (e.g. an If branch).
func (d *desugarer) desugarSeqAsExpr(body []Node) Node {
	spliced := d.desugarBody(body)
	if len(spliced) == 0 {
		return &Const{Kind: ConstNil}
	}
	result := spliced[len(spliced)-1]
	for i := len(spliced) - 2; i >= 0; i-- {
		result = &Let{
			base:     base{spliced[i].Span()},
			Bindings: []Binding{{Name: d.freshTemp(), Value: spliced[i], Id: NoLocal}},
			Body:     []Node{result},
		}
	}
	return result
}

func (d *desugarer) desugarExpr(n Node) Node {
	switch v := n.(type) {
	case *Const, *Var:
		return n
	case *If:
		return &If{base: v.base, Cond: d.desugarExpr(v.Cond), Then: d.desugarExpr(v.Then), Else: d.desugarExpr(v.Else)}
	case *Lambda:
		return &Lambda{base: v.base, Params: v.Params, Body: d.desugarBody(v.Body)}
	case *Call:
		fn := d.desugarExpr(v.Fn)
		args := make([]Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = d.desugarExpr(a)
		}
		return &Call{base: v.base, Fn: fn, Args: args}
	case *Let:
		return &Let{base: v.base, Bindings: d.desugarBindings(v.Bindings), Body: d.desugarBody(v.Body)}
	case *LetRec:
		return &LetRec{base: v.base, Bindings: d.desugarBindings(v.Bindings), Body: d.desugarBody(v.Body)}
	case *Set:
		return &Set{base: v.base, Name: v.Name, Value: d.desugarExpr(v.Value)}
	case *Cons:
		return &Cons{base: v.base, Car: d.desugarExpr(v.Car), Cdr: d.desugarExpr(v.Cdr)}
	case *VectorLit:
		elems := make([]Node, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = d.desugarExpr(e)
		}
		return &VectorLit{base: v.base, Elems: elems}
	case *UVectorLit:
		return v
	case *Define:
		return &Define{base: v.base, Name: v.Name, Value: d.desugarExpr(v.Value)}
	case *Begin:
		return d.desugarSeqAsExpr(v.Exprs)
	case *Cond:
		return d.desugarCond(v)
	case *LetStar:
		return d.desugarLetStar(v)
	case *NamedLet:
		return d.desugarNamedLet(v)
	case *Quote:
		return d.liftDatum(v.Span(), v.Datum)
	}
	return n
}

func (d *desugarer) desugarBindings(bs []Binding) []Binding {
	out := make([]Binding, len(bs))
	for i, b := range bs {
		out[i] = Binding{Name: b.Name, Value: d.desugarExpr(b.Value), Id: NoLocal}
	}
	return out
}

func (d *desugarer) desugarCond(c *Cond) Node {
	var result Node = &Const{base: c.base, Kind: ConstNil}
	for i := len(c.Clauses) - 1; i >= 0; i-- {
		cl := c.Clauses[i]
		if cl.Test == nil {
			// else clause: unconditional branch.
			result = d.desugarSeqAsExpr(cl.Body)
			continue
		}
		test := d.desugarExpr(cl.Test)
		if cl.Arrow {
			temp := d.freshTemp()
			proc := d.desugarExpr(cl.Body[0])
			result = &Let{
				base:     base{c.Sp},
				Bindings: []Binding{{Name: temp, Value: test, Id: NoLocal}},
				Body: []Node{&If{
					base: base{c.Sp},
					Cond: &Var{base: base{c.Sp}, Name: temp},
					Then: &Call{base: base{c.Sp}, Fn: proc, Args: []Node{&Var{base: base{c.Sp}, Name: temp}}},
					Else: result,
				}},
			}
			continue
		}
		if len(cl.Body) == 0 {
			temp := d.freshTemp()
			result = &Let{
				base:     base{c.Sp},
				Bindings: []Binding{{Name: temp, Value: test, Id: NoLocal}},
				Body: []Node{&If{
					base: base{c.Sp},
					Cond: &Var{base: base{c.Sp}, Name: temp},
					Then: &Var{base: base{c.Sp}, Name: temp},
					Else: result,
				}},
			}
			continue
		}
		result = &If{base: base{c.Sp}, Cond: test, Then: d.desugarSeqAsExpr(cl.Body), Else: result}
	}
	return result
}

func (d *desugarer) desugarLetStar(l *LetStar) Node {
	body := d.desugarBody(l.Body)
	bindings := d.desugarBindings(l.Bindings)
	if len(bindings) == 0 {
		return &Let{base: l.base, Bindings: nil, Body: body}
	}
	var result Node = &Let{base: l.base, Bindings: bindings[len(bindings)-1:], Body: body}
	for i := len(bindings) - 2; i >= 0; i-- {
		result = &Let{base: l.base, Bindings: bindings[i : i+1], Body: []Node{result}}
	}
	return result
}

func (d *desugarer) desugarNamedLet(n *NamedLet) Node {
	bindings := d.desugarBindings(n.Bindings)
	params := make([]string, len(bindings))
	args := make([]Node, len(bindings))
	for i, b := range bindings {
		params[i] = b.Name
		args[i] = b.Value
	}
	lam := &Lambda{base: n.base, Params: params, Body: d.desugarBody(n.Body)}
	call := &Call{base: n.base, Fn: &Var{base: n.base, Name: n.Tag}, Args: args}
	return &LetRec{
		base:     n.base,
		Bindings: []Binding{{Name: n.Tag, Value: lam, Id: NoLocal}},
		Body:     []Node{call},
	}
}

func (d *desugarer) liftDatum(span source.Span, dat *QuoteDatum) Node {
	sp := base{Sp: span}
	switch {
	case dat.IsPair:
		return &Cons{base: sp, Car: d.liftDatum(span, dat.Car), Cdr: d.liftDatum(span, dat.Cdr)}
	case dat.IsVec:
		elems := make([]Node, len(dat.Vec))
		for i, el := range dat.Vec {
			elems[i] = d.liftDatum(span, el)
		}
		return &VectorLit{base: sp, Elems: elems}
	case dat.IsUVec:
		return &UVectorLit{base: sp, Kind: dat.UVecKind, Ints: dat.UVecI, Flts: dat.UVecF}
	default:
		return &Const{base: sp, Kind: dat.Kind, Bool: dat.Bool, Int: dat.Int, Flt: dat.Flt, Chr: dat.Chr, Str: dat.Str}
	}
}

