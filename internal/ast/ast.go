// Package ast implements the staged AST of spec.md §3-§4.3: a phase ladder
// Parsed -> Desugared -> Defined -> TailCall -> Used, where each lowering
// pass is a total function eliminating certain node shapes and enriching
// others.
//
// Grounded on the teacher's internal/core package: one Node interface with
// a distinct concrete struct per expression form (Var, Lit, Lambda, Let,
// LetRec, App, If, ...), rather than the single tagged-struct style used
// for internal/sexpr — this is how the teacher's own Core IR (a similarly
// small, closed expression grammar) is built. Phase-specific fields live
// directly on the struct they annotate (e.g. Call.IsTail, Var.Ref) and are
// simply left at their zero value before the pass that fills them runs;
// node shapes that a phase eliminates are enforced not by the Go type
// system (which cannot express "uninhabited variant" for an interface set)
// but by the Validate function in phase.go, the idiomatic Go substitute
// spec.md §9's design notes call out explicitly.
package ast

import "github.com/webschembly/wsc/internal/source"

// Node is the common interface implemented by every AST expression.
type Node interface {
	Span() source.Span
	node()
}

type base struct {
	Sp source.Span
}

func (b base) Span() source.Span { return b.Sp }

// ConstKind tags the payload of a Const node.
type ConstKind int

const (
	ConstNil ConstKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstChar
	ConstString
	ConstSymbol
)

// Const is a literal value, introduced directly from source literals at
// Parsed-build time and additionally from Quote-lifting during Desugar
// (spec.md §4.3).
type Const struct {
	base
	Kind ConstKind
	Bool bool
	Int  int64
	Flt  float64
	Chr  rune
	Str  string // String or Symbol payload
}

func (c *Const) node() {}

// VarRefKind distinguishes a resolved Var/Set target.
type VarRefKind int

const (
	RefUnresolved VarRefKind = iota
	RefLocal
	RefGlobal
)

// VarRef is the resolution result attached to Var and Set nodes by the
// Used phase (spec.md §4.3 "Used").
type VarRef struct {
	Kind   VarRefKind
	Local  LocalId
	Global GlobalId
}

// Var is a bare-symbol variable reference.
type Var struct {
	base
	Name string
	Ref  VarRef // zero value (RefUnresolved) before the Used phase
}

func (v *Var) node() {}

// If is a conditional. IsTail propagates into Then/Else (never into Cond)
// during the TailCall phase, but the bit that is actually consulted for
// lowering lives on the enclosed Call nodes — If itself carries no
// tail flag per spec.md's "Call.is_tail" placement.
type If struct {
	base
	Cond, Then, Else Node
}

func (i *If) node() {}

// Lambda is a function literal. ArgIds/Captures/Defines are filled in by
// the Used phase; before that they are nil.
type Lambda struct {
	base
	Params  []string
	Body    []Node
	ArgIds  []LocalId
	Defines []LocalId // locals this lambda itself introduces (args ∪ its own let/letrec bindings)
	Captures []LocalId // sorted by LocalId for reproducibility (spec.md §9 Open Question)
}

func (l *Lambda) node() {}

// Call is a function application. IsTail is set by the TailCall phase.
type Call struct {
	base
	Fn     Node
	Args   []Node
	IsTail bool
}

func (c *Call) node() {}

// Binding is a single (name value) pair inside Let/LetStar/LetRec.
type Binding struct {
	Name  string
	Value Node
	Id    LocalId // filled by the Used phase
}

// Let is a non-recursive, parallel-looking (but left-to-right-lowered)
// binding form; after the Used phase its Bindings lower into explicit Set
// instructions over freshly allocated locals (spec.md §4.3).
type Let struct {
	base
	Bindings []Binding
	Body     []Node
}

func (l *Let) node() {}

// LetRec is the mutually-recursive binding form introduced both directly
// by source `letrec` and synthetically by the Defined phase wrapping local
// defines, and by Desugar rewriting NamedLet.
type LetRec struct {
	base
	Bindings []Binding
	Body     []Node
}

func (l *LetRec) node() {}

// Set is an assignment, either to a global (top-level `define`/`set!`) or
// to a captured-and-mutated local cell.
type Set struct {
	base
	Name  string
	Value Node
	Ref   VarRef
}

func (s *Set) node() {}

// Cons constructs a pair; introduced by Desugar's quote-lifting.
type Cons struct {
	base
	Car, Cdr Node
}

func (c *Cons) node() {}

// VectorLit constructs a vector; introduced by Desugar's quote-lifting or
// directly from a source `#(...)` literal.
type VectorLit struct {
	base
	Elems []Node
}

func (v *VectorLit) node() {}

// UVecKind mirrors sexpr.UVecKind without importing the sexpr package
// (ast must not depend on the surface reader representation).
type UVecKind int

const (
	UVecS64 UVecKind = iota
	UVecF64
)

// UVectorLit constructs a uniform vector of ints or floats.
type UVectorLit struct {
	base
	Kind  UVecKind
	Ints  []int64
	Flts  []float64
}

func (u *UVectorLit) node() {}

// --- Parsed-only forms, eliminated by Desugar ---

// Begin sequences expressions, the last of which is the value.
type Begin struct {
	base
	Exprs []Node
}

func (b *Begin) node() {}

// CondClause is one clause of a `cond` form.
type CondClause struct {
	Test  Node // nil means an `else` clause
	Arrow bool // `test => proc` shape
	Body  []Node
}

// Cond is the multi-way conditional, eliminated by Desugar into nested If.
type Cond struct {
	base
	Clauses []CondClause
}

func (c *Cond) node() {}

// LetStar is `let*`, eliminated by Desugar into right-folded single-binding
// Let forms.
type LetStar struct {
	base
	Bindings []Binding
	Body     []Node
}

func (l *LetStar) node() {}

// NamedLet is `(let tag ((x v)...) body...)`, eliminated by Desugar into a
// LetRec-bound self-recursive lambda.
type NamedLet struct {
	base
	Tag      string
	Bindings []Binding
	Body     []Node
}

func (n *NamedLet) node() {}

// QuoteDatum is the minimal structural mirror of sexpr.SExpr needed to
// lift quoted data into Const/Cons/VectorLit/UVectorLit constructor trees;
// it avoids an import of internal/sexpr from internal/ast (the builder,
// which does import sexpr, converts at construction time).
type QuoteDatum struct {
	Kind   ConstKind // reuses ConstKind for atoms; KindPair/KindVector/KindUVector handled below
	IsPair bool
	IsVec  bool
	IsUVec bool

	Bool bool
	Int  int64
	Flt  float64
	Chr  rune
	Str  string

	Car, Cdr *QuoteDatum
	Vec      []*QuoteDatum
	UVecKind UVecKind
	UVecI    []int64
	UVecF    []float64
}

// Quote holds a not-yet-lifted datum, eliminated by Desugar.
type Quote struct {
	base
	Datum *QuoteDatum
}

func (q *Quote) node() {}

// --- Defined-phase-only form, eliminated by the Defined pass ---

// Define is a top-level or scope-head definition. Global defines lower to
// Set; local defines are collected into an enclosing LetRec by the
// Defined pass and this node never survives past it.
type Define struct {
	base
	Name  string
	Value Node
}

func (d *Define) node() {}
