// Package sexpr implements the s-expression data model and parser of
// spec.md §3-§4.2: a tagged union over bool/i64/float/NaN/string/char/
// symbol/pair/vector/uniform-vector/nil, located s-expressions carrying a
// source.Span, and the recursive-descent parser that builds them from a
// lexer.Token sequence.
//
// Structurally grounded on the teacher's internal/parser package (Pratt-ish
// recursive descent over a token slice, an Errors() accumulator, a
// testutil golden-diff helper) generalized from the teacher's ML-family
// grammar down to the much smaller Scheme reader grammar.
package sexpr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/webschembly/wsc/internal/source"
)

// Kind tags the variant of a SExpr.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindInt
	KindFloat // NotNan-f64
	KindNaN
	KindString
	KindChar
	KindSymbol
	KindPair
	KindVector
	KindUVector
)

// UVecKind distinguishes the two uniform-vector element kinds.
type UVecKind int

const (
	UVecS64 UVecKind = iota
	UVecF64
)

// SExpr is a located, tagged s-expression. Exactly one of the payload
// fields is meaningful per Kind; this mirrors the teacher's habit of a
// single struct type carrying a discriminant plus a grab-bag of optional
// fields (see ast.Node's per-kind concrete structs), collapsed here into
// one type since the s-expression alphabet is small and closed.
type SExpr struct {
	Kind Kind
	Span source.Span

	Bool   bool
	Int    int64
	Float  float64 // valid only when Kind == KindFloat; never NaN
	Str    string  // String or Symbol payload
	Char   rune

	Car, Cdr *SExpr // Kind == KindPair
	Vector   []*SExpr // Kind == KindVector

	UVecKind UVecKind
	UVecI    []int64   // Kind == KindUVector, UVecKind == UVecS64
	UVecF    []float64 // Kind == KindUVector, UVecKind == UVecF64
}

// Nil is the canonical empty-list value; it carries a zero span and should
// be re-spanned by callers that need source fidelity (e.g. Cons built
// during desugaring uses synthetic spans per spec.md §4.3).
var Nil = &SExpr{Kind: KindNil}

func sym(name string, span source.Span) *SExpr {
	return &SExpr{Kind: KindSymbol, Str: name, Span: span}
}

// IsNil reports whether e is the empty list.
func (e *SExpr) IsNil() bool { return e != nil && e.Kind == KindNil }

// ToVec converts a proper list to a slice of its elements, in order.
// It fails if the list is dotted (its final Cdr is not Nil).
func (e *SExpr) ToVec() ([]*SExpr, error) {
	var out []*SExpr
	cur := e
	for {
		if cur.IsNil() {
			return out, nil
		}
		if cur.Kind != KindPair {
			return nil, fmt.Errorf("sexpr: ToVec on improper list (tail is %v, not nil or pair)", cur.Kind)
		}
		out = append(out, cur.Car)
		cur = cur.Cdr
	}
}

// String renders a canonical textual form, used both for debugging and as
// the canonical printer in the lex/parse round-trip property test
// (spec.md §8).
func (e *SExpr) String() string {
	var sb strings.Builder
	e.write(&sb)
	return sb.String()
}

func (e *SExpr) write(sb *strings.Builder) {
	switch e.Kind {
	case KindNil:
		sb.WriteString("()")
	case KindBool:
		if e.Bool {
			sb.WriteString("#t")
		} else {
			sb.WriteString("#f")
		}
	case KindInt:
		fmt.Fprintf(sb, "%d", e.Int)
	case KindFloat:
		// Plain decimal with a '.', so the lexer reads it back as a FLOAT
		// (it has no exponent syntax, and "1" would re-parse as an int).
		s := strconv.FormatFloat(e.Float, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		sb.WriteString(s)
	case KindNaN:
		sb.WriteString("+nan.0")
	case KindString:
		sb.WriteByte('"')
		sb.WriteString(e.Str)
		sb.WriteByte('"')
	case KindChar:
		fmt.Fprintf(sb, "#\\%c", e.Char)
	case KindSymbol:
		sb.WriteString(e.Str)
	case KindPair:
		sb.WriteByte('(')
		e.writePairBody(sb)
		sb.WriteByte(')')
	case KindVector:
		sb.WriteString("#(")
		for i, el := range e.Vector {
			if i > 0 {
				sb.WriteByte(' ')
			}
			el.write(sb)
		}
		sb.WriteByte(')')
	case KindUVector:
		if e.UVecKind == UVecS64 {
			sb.WriteString("#s64(")
			for i, v := range e.UVecI {
				if i > 0 {
					sb.WriteByte(' ')
				}
				fmt.Fprintf(sb, "%d", v)
			}
		} else {
			sb.WriteString("#f64(")
			for i, v := range e.UVecF {
				if i > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
			}
		}
		sb.WriteByte(')')
	}
}

func (e *SExpr) writePairBody(sb *strings.Builder) {
	sb.WriteString(e.Car.String())
	cdr := e.Cdr
	for {
		switch cdr.Kind {
		case KindNil:
			return
		case KindPair:
			sb.WriteByte(' ')
			sb.WriteString(cdr.Car.String())
			cdr = cdr.Cdr
		default:
			sb.WriteString(" . ")
			sb.WriteString(cdr.String())
			return
		}
	}
}
