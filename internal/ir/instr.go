package ir

// InstrKind tags the payload carried by an Instruction (spec.md §3
// "Instruction. Kinds include: ..."). One flat tagged struct, not one Go
// type per kind: the instruction set is large, flat, and dispatched on
// purely by kind in every downstream pass (dataflow, copy propagation,
// DCE), which is exactly the shape internal/sexpr.SExpr already uses in
// this tree for a similarly flat tagged union — Instruction follows that
// convention rather than the ast.Node interface-per-form style, which fits
// a small closed *expression grammar*, not a wide flat instruction set.
type InstrKind int

const (
	// Constants
	ConstNil InstrKind = iota
	ConstBool
	ConstInt
	ConstFloat
	ConstChar
	ConstString

	InternSymbol // string -> symbol

	// Pairs
	Cons
	Car
	Cdr

	// Vectors / uniform vectors
	VectorNew
	VectorLen
	VectorRef
	VectorSet
	UVectorNew
	UVectorLen
	UVectorRef
	UVectorSet

	// Closures
	ClosureNew // env slot values + func-ref/boxed-func-ref -> closure

	// ClosureNewDynamic is ClosureNew's counterpart once a callee has
	// crossed a JIT module boundary (spec.md §4.8): the callable is no
	// longer a static FuncId resolvable within this module, so Args[0]
	// carries an already-read FuncRef local (typically
	// GlobalGet(G_ref)) and Args[1:] are the env slot values, in the
	// same order ClosureNew's Args would hold them; Index is still the
	// supported arity.
	ClosureNewDynamic

	ClosureField // closure, field index -> value (env slot or entrypoint table)

	// Globals
	GlobalGet
	GlobalSet

	// Mutable cells (heap-boxed captured+mutated locals)
	CellNew
	CellGet
	CellSet

	// Boxing
	ToObj   // Val(T) -> Obj
	FromObj // Obj -> Val(T), guarded by a dynamic type check at runtime

	// Arithmetic / comparison (Op names the concrete operator)
	Arith
	Compare

	// Type predicates: "is this Obj dynamically a T"
	TypeIs

	// Calls. Non-tail calls produce a result; tail calls instead appear
	// as terminators (TailCallClosure/TailCallRef) and never as
	// Instructions — see terminator.go.
	CallDirect  // statically known callee FuncId
	CallRef     // through an unboxed FuncRef value
	CallClosure // through a closure's entrypoint table; desugared to CallRef (spec.md §4.7 "Desugar")

	// SSA plumbing
	Phi
	Move

	// Module lifecycle (spec.md §4.4, §4.8)
	InitModule
	InstantiateModule

	// ConstFuncRef materializes an immutable reference to a function
	// declared in this same module (spec.md §4.8: installing a stub or
	// real implementation into a JIT global slot). Func names the
	// target; no Args.
	ConstFuncRef

	Error
	Nop
)

// ArithOp names a concrete arithmetic operator for an Arith instruction.
type ArithOp int

const (
	ArithAdd ArithOp = iota
	ArithSub
	ArithMul
	ArithDiv
	ArithRem
	ArithNeg
)

// CompareOp names a concrete comparator for a Compare instruction.
type CompareOp int

const (
	CmpEq CompareOp = iota
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpNe
)

// PhiIncoming is one (predecessor block, source local) pair of a Phi
// instruction; order matches the predecessor-traversal order of
// cfganalysis.Predecessors, which is also what downstream phi elimination
// relies on to route moves onto the matching edge.
type PhiIncoming struct {
	Pred BasicBlockId
	Val  LocalId
}

// Instruction is a single SSA assignment (or side-effecting operation with
// no result). Result is NoLocal when the instruction produces no value
// (GlobalSet, VectorSet, CellSet, Error, Nop, InitModule,
// InstantiateModule).
//
// Only the fields relevant to Kind are meaningful; the rest are left at
// their zero value. This mirrors ast.Const/ast.Var's "one struct, several
// payload fields, only some populated per variant" shape.
type Instruction struct {
	Result LocalId
	Kind   InstrKind

	// Operand locals, used per-kind: Args[0] is first operand, etc.
	Args []LocalId

	// Constant payloads
	Bool bool
	Int  int64
	Flt  float64
	Chr  rune
	Str  string

	// Global / cell / closure-field / func operand
	Global GlobalId
	Func   FuncId
	Index  int // vector index / closure field index / arity

	// Typing
	ValT ValType // target ValType for ToObj/FromObj/TypeIs/UVectorNew kind/arith result type
	Op   ArithOp
	Cmp  CompareOp

	// Phi
	Incomings []PhiIncoming

	// Module lifecycle
	Module ModuleId

	// IsTail is never set: the generator lowers tail calls directly to
	// TailCallClosure terminators (see evalCall), so every tail call is a
	// terminator, not an Instruction, and this field is always false.
	IsTail bool
}

// NewPhi constructs an empty Phi instruction for result with the given
// type; Incomings are appended as the predecessor set is discovered.
func NewPhi(result LocalId) Instruction {
	return Instruction{Result: result, Kind: Phi}
}

// IsPhi reports whether instr is a Phi, the only kind legal in a block's
// leading prefix (spec.md §3 "the instruction list begins with a
// contiguous prefix of Phi instructions").
func (i Instruction) IsPhi() bool { return i.Kind == Phi }

// HasSideEffect reports whether i must never be deleted by dead-code
// elimination even with a dead or absent result (spec.md §4.7 "DCE":
// "side-effectful instructions (globals, I/O, calls, stores, errors,
// init-module) are unconditionally live").
func (i Instruction) HasSideEffect() bool {
	switch i.Kind {
	case GlobalSet, VectorSet, UVectorSet, CellSet, CellNew,
		CallDirect, CallRef, CallClosure,
		Error, InitModule, InstantiateModule:
		return true
	default:
		return false
	}
}

// Uses returns the locals this instruction reads through Args. Phi
// incomings are not included (each is attributed to its predecessor by
// cfganalysis, not counted as a plain use here — callers that need the
// phi-per-predecessor view use Incomings directly).
func (i Instruction) Uses() []LocalId {
	return i.Args
}
