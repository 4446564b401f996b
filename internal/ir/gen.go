package ir

import (
	"fmt"

	"github.com/webschembly/wsc/internal/ast"
	"github.com/webschembly/wsc/internal/wserrors"
)

// GenOptions configures the AST-to-IR generator (spec.md §4.4). It is
// filled in by internal/compiler, which always passes EntryName "entry".
type GenOptions struct {
	// EntryName is the human name recorded for the synthesized top-level
	// entry function.
	EntryName string
}

// primInfo describes a primitive operator recognized directly by the
// generator so that e.g. `(+ 1 2)` lowers to exactly one Arith
// instruction over Val(int) operands rather than a generic closure call
// (spec.md §8 scenario 1: "a module ... whose body contains exactly one
// integer-add instruction with operands of Val(int)"). Scheme source has
// no syntax distinguishing a primitive from a user procedure — the
// generator recognizes these names directly at the unresolved-global
// boundary, the same simplification the teacher's own elaborator makes
// for built-in operators (internal/builtins is consulted by name, not by
// a dynamic dispatch instruction, in the teacher's own pipeline).
type primKind int

const (
	primArith primKind = iota
	primCompare
	primCons
	primCar
	primCdr
	primVectorRef
	primVectorSet
	primVectorLen
	primVectorNew
	primUVectorRef
	primUVectorSet
	primUVectorLen
	primTypeIs
)

type primInfo struct {
	kind primKind
	op   ArithOp
	cmp  CompareOp
	vt   ValType // target type for primTypeIs
}

var primTable = map[string]primInfo{
	"+":             {kind: primArith, op: ArithAdd},
	"-":             {kind: primArith, op: ArithSub},
	"*":             {kind: primArith, op: ArithMul},
	"/":             {kind: primArith, op: ArithDiv},
	"remainder":     {kind: primArith, op: ArithRem},
	"=":             {kind: primCompare, cmp: CmpEq},
	"<":             {kind: primCompare, cmp: CmpLt},
	"<=":            {kind: primCompare, cmp: CmpLe},
	">":             {kind: primCompare, cmp: CmpGt},
	">=":            {kind: primCompare, cmp: CmpGe},
	"cons":          {kind: primCons},
	"car":           {kind: primCar},
	"cdr":           {kind: primCdr},
	"vector-ref":     {kind: primVectorRef},
	"vector-set!":    {kind: primVectorSet},
	"vector-length":  {kind: primVectorLen},
	"vector":         {kind: primVectorNew},
	"uvector-ref":    {kind: primUVectorRef},
	"uvector-set!":   {kind: primUVectorSet},
	"uvector-length": {kind: primUVectorLen},
	"pair?":          {kind: primTypeIs, vt: ValCons},
	"null?":          {kind: primTypeIs, vt: ValNil},
	"boolean?":       {kind: primTypeIs, vt: ValBool},
	"integer?":       {kind: primTypeIs, vt: ValInt},
	"string?":        {kind: primTypeIs, vt: ValString},
	"symbol?":        {kind: primTypeIs, vt: ValSymbol},
	"vector?":        {kind: primTypeIs, vt: ValVector},
	"procedure?":     {kind: primTypeIs, vt: ValClosure},
	"char?":          {kind: primTypeIs, vt: ValChar},
}

// Generator lowers a Used-phase AST into an ir.Module (spec.md §4.4).
// One Generator is used per compile_module call; the GlobalManager it
// wraps is session-wide and threaded in from the Compiler façade.
type Generator struct {
	mod     *Module
	globals *GlobalManager
	boxVars map[ast.LocalId]bool
	mutated map[ast.LocalId]bool
	opts    GenOptions
}

// NewGenerator constructs a generator for one module compilation. boxVars
// is the captured∩mutated set the Used phase computes (spec.md §4.3); the
// generator additionally heap-boxes any other mutated-but-uncaptured
// local, since this IR is strict SSA (spec.md §3 "each local is assigned
// exactly once") and a plain local has no second assignment slot to
// receive a `set!` — only captured-and-mutated locals are *required* to be
// cells by spec.md's box_vars definition, but boxing mutated-only locals
// too is the simplest SSA-sound representation and costs nothing a
// mutated source variable wasn't already paying for at the Set site.
func NewGenerator(id ModuleId, globals *GlobalManager, boxVars, mutated map[ast.LocalId]bool, opts GenOptions) *Generator {
	return &Generator{
		mod:     NewModule(id),
		globals: globals,
		boxVars: boxVars,
		mutated: mutated,
		opts:    opts,
	}
}

// needsCell reports whether source local id must be represented as a
// heap cell in this generator's simplified boxing scheme (see NewGenerator).
func (g *Generator) needsCell(id ast.LocalId) bool {
	return g.boxVars[id] || g.mutated[id]
}

// funcCtx is the per-function lowering state: the function being built,
// the current insertion block, and the mapping from this function's
// in-scope ast.LocalIds to the ir.LocalIds that hold them.
type funcCtx struct {
	fn      *Function
	cur     BasicBlockId
	localOf map[ast.LocalId]LocalId
}

func (g *Generator) newFuncCtx(fn *Function) *funcCtx {
	entry := fn.NewBlock()
	fn.EntryBB = entry
	return &funcCtx{fn: fn, cur: entry, localOf: map[ast.LocalId]LocalId{}}
}

func (fc *funcCtx) block() *BasicBlock { return fc.fn.Block(fc.cur) }

func (fc *funcCtx) emit(instr Instruction) LocalId {
	fc.block().Append(instr)
	return instr.Result
}

// localType of an already-allocated local.
func (fc *funcCtx) typeOf(id LocalId) LocalType { return fc.fn.LocalType(id) }

// Generate lowers the whole program: top-level roots become a synthesized
// entry function (spec.md §4.4 "the top-level exprs become a synthesized
// entry function"), whose body begins with InitModule and ends by
// returning the value of its last top-level expression (if any).
func (g *Generator) Generate(roots []ast.Node) (*Module, error) {
	entryID := g.mod.NewFunc(Obj(), g.opts.EntryName)
	g.mod.Entry = entryID
	fn := g.mod.Func(entryID)
	fc := g.newFuncCtx(fn)

	fc.emit(Instruction{Result: NoLocal, Kind: InitModule})

	var last LocalId = NoLocal
	for _, n := range roots {
		val, err := g.evalExpr(fc, n)
		if err != nil {
			return nil, err
		}
		last = val
	}
	if !terminated(fc.block().Term) {
		fc.fn.Block(fc.cur).Term = Return(last)
	}
	return g.mod, nil
}

// terminated reports whether t has already been set to something other
// than the zero Terminator (TermJump to block 0, which no real pass ever
// produces as a genuine "jump to the entry block from itself" — every
// real block is given its terminator exactly once by the generator before
// being left).
func terminated(t Terminator) bool {
	switch t.Kind {
	case TermReturn, TermTailCallClosure, TermTailCallRef:
		return true
	case TermIf:
		return true
	case TermJump:
		return t.Target != 0
	default:
		return false
	}
}

// evalExpr lowers one AST expression into the current block, returning the
// local holding its value. Control-flow forms (If) may leave fc.cur
// pointing at a freshly created continuation block.
func (g *Generator) evalExpr(fc *funcCtx, n ast.Node) (LocalId, error) {
	switch v := n.(type) {
	case *ast.Const:
		return g.evalConst(fc, v)
	case *ast.Var:
		return g.evalVar(fc, v)
	case *ast.Set:
		return g.evalSet(fc, v)
	case *ast.If:
		return g.evalIf(fc, v)
	case *ast.Lambda:
		return g.evalLambda(fc, v)
	case *ast.Call:
		return g.evalCall(fc, v)
	case *ast.Let:
		return g.evalLet(fc, v)
	case *ast.LetRec:
		return g.evalLetRec(fc, v)
	case *ast.Cons:
		return g.evalCons(fc, v)
	case *ast.VectorLit:
		return g.evalVectorLit(fc, v)
	case *ast.UVectorLit:
		return g.evalUVectorLit(fc, v)
	default:
		return NoLocal, wserrors.New("ir", "IR005", fmt.Sprintf("IR generator encountered unsupported node %T", n), nil)
	}
}

func (g *Generator) evalConst(fc *funcCtx, c *ast.Const) (LocalId, error) {
	switch c.Kind {
	case ast.ConstNil:
		return fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValNil))), Kind: ConstNil}), nil
	case ast.ConstBool:
		return fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValBool))), Kind: ConstBool, Bool: c.Bool}), nil
	case ast.ConstInt:
		return fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValInt))), Kind: ConstInt, Int: c.Int}), nil
	case ast.ConstFloat:
		return fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValFloat))), Kind: ConstFloat, Flt: c.Flt}), nil
	case ast.ConstChar:
		return fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValChar))), Kind: ConstChar, Chr: c.Chr}), nil
	case ast.ConstString:
		return fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValString))), Kind: ConstString, Str: c.Str}), nil
	case ast.ConstSymbol:
		str := fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValString))), Kind: ConstString, Str: c.Str})
		return fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValSymbol))), Kind: InternSymbol, Args: []LocalId{str}}), nil
	default:
		return NoLocal, wserrors.New("ir", "IR005", "unknown Const kind", nil)
	}
}

// boxObj ensures val (of type t) is represented as an Obj local, inserting
// a ToObj instruction if it currently holds a concrete Val(T) (spec.md §3
// "Boxing discipline").
func (g *Generator) boxObj(fc *funcCtx, val LocalId, t Type) LocalId {
	if t.IsObj() {
		return val
	}
	dst := fc.fn.NewLocal(PlainType(Obj()))
	return fc.emit(Instruction{Result: dst, Kind: ToObj, Args: []LocalId{val}, ValT: t.Val})
}

// unboxVal ensures val is represented as a concrete Val(vt) local,
// inserting a FromObj instruction (a dynamic type check, folded to a move
// later by ssaopt's type-check-folding pass when provably safe) if val is
// currently Obj-typed.
func (g *Generator) unboxVal(fc *funcCtx, val LocalId, vt ValType) LocalId {
	lt := fc.typeOf(val)
	if lt.Kind == LocalPlain && lt.Elem.Kind == KindVal && lt.Elem.Val == vt {
		return val
	}
	dst := fc.fn.NewLocal(PlainType(Val(vt)))
	return fc.emit(Instruction{Result: dst, Kind: FromObj, Args: []LocalId{val}, ValT: vt})
}

// uvectorElemType resolves the element ValType a uniform-vector operand's
// static type implies (ValInt for #s64(...), ValFloat for #f64(...)):
// unlike regular vectors, a uniform vector's element type is fixed at
// construction and never boxed, so uvector-ref/uvector-set! need it known
// statically rather than read off a runtime tag.
func (g *Generator) uvectorElemType(fc *funcCtx, vec LocalId) (ValType, error) {
	switch fc.typeOf(vec).Elem.Val {
	case ValUVectorS64:
		return ValInt, nil
	case ValUVectorF64:
		return ValFloat, nil
	default:
		return 0, wserrors.New("ir", "IR005", "uvector-ref/uvector-set!/uvector-length requires a statically s64/f64 uniform-vector operand", nil)
	}
}

func (g *Generator) evalVar(fc *funcCtx, v *ast.Var) (LocalId, error) {
	switch v.Ref.Kind {
	case ast.RefLocal:
		return g.readLocal(fc, v.Ref.Local)
	case ast.RefGlobal:
		gid := GlobalId(v.Ref.Global)
		g.globals.Declare(gid, PlainType(Obj()))
		g.mod.DeclareGlobal(gid, PlainType(Obj()))
		dst := fc.fn.NewLocal(PlainType(Obj()))
		return fc.emit(Instruction{Result: dst, Kind: GlobalGet, Global: gid}), nil
	default:
		return NoLocal, wserrors.New("ir", "IR005", "unresolved variable reached IR generator", nil)
	}
}

// readLocal reads a source-level local (by its ast.LocalId) in the
// current function, dereferencing through a heap cell if it is a box var.
func (g *Generator) readLocal(fc *funcCtx, al ast.LocalId) (LocalId, error) {
	il, ok := fc.localOf[al]
	if !ok {
		return NoLocal, wserrors.New("ir", "IR005", "read of a local not bound in the current function (capture not wired)", nil)
	}
	if fc.typeOf(il).Kind == LocalRef {
		dst := fc.fn.NewLocal(PlainType(Obj()))
		return fc.emit(Instruction{Result: dst, Kind: CellGet, Args: []LocalId{il}}), nil
	}
	return il, nil
}

func (g *Generator) evalSet(fc *funcCtx, s *ast.Set) (LocalId, error) {
	val, err := g.evalExpr(fc, s.Value)
	if err != nil {
		return NoLocal, err
	}
	switch s.Ref.Kind {
	case ast.RefLocal:
		il, ok := fc.localOf[s.Ref.Local]
		if !ok {
			return NoLocal, wserrors.New("ir", "IR005", "set! of a local not bound in the current function", nil)
		}
		boxed := g.boxObj(fc, val, fc.typeOf(val).Elem)
		if fc.typeOf(il).Kind != LocalRef {
			return NoLocal, wserrors.New("ir", "IR005", "set! target local is not a heap cell (box_vars computation is unsound)", nil)
		}
		fc.emit(Instruction{Result: NoLocal, Kind: CellSet, Args: []LocalId{il, boxed}})
		return boxed, nil
	case ast.RefGlobal:
		gid := GlobalId(s.Ref.Global)
		boxed := g.boxObj(fc, val, fc.typeOf(val).Elem)
		g.globals.Declare(gid, PlainType(Obj()))
		g.globals.DefineIn(gid, g.mod.ID)
		g.mod.DeclareGlobal(gid, PlainType(Obj()))
		fc.emit(Instruction{Result: NoLocal, Kind: GlobalSet, Global: gid, Args: []LocalId{boxed}})
		return boxed, nil
	default:
		return NoLocal, wserrors.New("ir", "IR005", "unresolved set! target reached IR generator", nil)
	}
}

// evalIf splits the current block, lowers Then/Else into fresh successor
// blocks, and — if both arms produce a value the continuation needs —
// introduces a phi at a fresh continuation block (spec.md §4.4 "If split
// the current block and introduce phi nodes where both arms define a
// value the continuation consumes").
func (g *Generator) evalIf(fc *funcCtx, n *ast.If) (LocalId, error) {
	condVal, err := g.evalExpr(fc, n.Cond)
	if err != nil {
		return NoLocal, err
	}
	condBool := g.unboxVal(fc, condVal, ValBool)

	thenBB := fc.fn.NewBlock()
	elseBB := fc.fn.NewBlock()
	fc.block().Term = If(condBool, thenBB, elseBB)

	fc.cur = thenBB
	thenVal, err := g.evalExpr(fc, n.Then)
	if err != nil {
		return NoLocal, err
	}
	thenEnd := fc.cur
	thenTerminated := terminated(fc.block().Term)

	fc.cur = elseBB
	elseVal, err := g.evalExpr(fc, n.Else)
	if err != nil {
		return NoLocal, err
	}
	elseEnd := fc.cur
	elseTerminated := terminated(fc.block().Term)

	if thenTerminated && elseTerminated {
		// Both arms already end in a tail call/return; there is no
		// continuation to merge into, and the "value" is unused by the
		// caller (an is_tail If never needs its result).
		return NoLocal, nil
	}

	cont := fc.fn.NewBlock()
	if !thenTerminated {
		fc.fn.Block(thenEnd).Term = Jump(cont)
	}
	if !elseTerminated {
		fc.fn.Block(elseEnd).Term = Jump(cont)
	}
	fc.cur = cont

	if thenTerminated {
		return elseVal, nil
	}
	if elseTerminated {
		return thenVal, nil
	}

	result := fc.fn.NewLocal(PlainType(Obj()))
	phi := Instruction{Result: result, Kind: Phi, Incomings: []PhiIncoming{
		{Pred: thenEnd, Val: g.boxObjIn(fc, thenEnd, thenVal)},
		{Pred: elseEnd, Val: g.boxObjIn(fc, elseEnd, elseVal)},
	}}
	fc.block().AppendPhi(phi)
	return result, nil
}

// boxObjIn boxes val to Obj in block bb rather than fc.cur, used when the
// value to box was computed in an arm block that the generator has
// already left (both If arms must box their result in their own block,
// not in the continuation, since the phi's incoming value is read on the
// predecessor edge).
func (g *Generator) boxObjIn(fc *funcCtx, bb BasicBlockId, val LocalId) LocalId {
	t := fc.typeOf(val)
	if t.Kind == LocalPlain && t.Elem.IsObj() {
		return val
	}
	dst := fc.fn.NewLocal(PlainType(Obj()))
	fc.fn.Block(bb).Append(Instruction{Result: dst, Kind: ToObj, Args: []LocalId{val}, ValT: t.Elem.Val})
	return dst
}

// evalLambda allocates a new Function for the lambda, packs its captures
// into a ClosureNew instruction in the current (enclosing) function, and
// recursively generates the callee's body.
func (g *Generator) evalLambda(fc *funcCtx, l *ast.Lambda) (LocalId, error) {
	fnID := g.mod.NewFunc(Obj(), "")
	callee := g.mod.Func(fnID)
	callee.Closure = &ClosureMeta{Arities: []int{len(l.ArgIds)}}

	calleeFC := g.newFuncCtx(callee)

	selfClosure := callee.NewLocal(PlainType(Obj()))
	callee.Args = append(callee.Args, selfClosure)

	for i, capID := range l.Captures {
		lt := g.boxedLocalType(capID)
		envLocal := callee.NewLocal(lt)
		callee.Closure.EnvLocals = append(callee.Closure.EnvLocals, envLocal)
		calleeFC.localOf[capID] = emitField(calleeFC, selfClosure, i, lt)
	}

	for _, argID := range l.ArgIds {
		// Incoming argument registers always arrive as plain boxed values
		// (evalCall boxes every argument to Obj before the call); a
		// cell-backed parameter wraps that incoming value in a fresh cell
		// rather than being declared as a cell itself.
		argLocal := callee.NewLocal(PlainType(Obj()))
		callee.Args = append(callee.Args, argLocal)
		if g.needsCell(argID) {
			cell := callee.NewLocal(RefType(Obj()))
			calleeFC.emit(Instruction{Result: cell, Kind: CellNew, Args: []LocalId{argLocal}})
			calleeFC.localOf[argID] = cell
		} else {
			calleeFC.localOf[argID] = argLocal
		}
	}

	var last LocalId = NoLocal
	for _, n := range l.Body {
		val, err := g.evalExpr(calleeFC, n)
		if err != nil {
			return NoLocal, err
		}
		last = val
	}
	if !terminated(calleeFC.block().Term) {
		calleeFC.block().Term = Return(g.boxObj(calleeFC, last, calleeFC.typeOf(last).Elem))
	}

	// Pack the enclosing function's view of each captured source variable
	// (its own local, possibly a cell) as the ClosureNew operands.
	envArgs := make([]LocalId, len(l.Captures))
	for i, capID := range l.Captures {
		il, ok := fc.localOf[capID]
		if !ok {
			return NoLocal, wserrors.New("ir", "IR005", "capture not bound in enclosing function", nil)
		}
		envArgs[i] = il
	}
	dst := fc.fn.NewLocal(PlainType(Obj()))
	return fc.emit(Instruction{Result: dst, Kind: ClosureNew, Args: envArgs, Func: fnID, Index: len(l.ArgIds)}), nil
}

// emitField reads closure field i (of type lt) into a fresh local of the
// callee function and returns it.
func emitField(calleeFC *funcCtx, closure LocalId, i int, lt LocalType) LocalId {
	dst := calleeFC.fn.NewLocal(lt)
	return calleeFC.emit(Instruction{Result: dst, Kind: ClosureField, Args: []LocalId{closure}, Index: i})
}

// boxedLocalType returns Ref(Obj) for a cell-backed local, Obj otherwise.
func (g *Generator) boxedLocalType(id ast.LocalId) LocalType {
	if g.needsCell(id) {
		return RefType(Obj())
	}
	return PlainType(Obj())
}

func (g *Generator) evalCall(fc *funcCtx, c *ast.Call) (LocalId, error) {
	if prim, ok := g.primName(c.Fn); ok {
		if v, handled, err := g.evalPrimCall(fc, prim, c); handled {
			return v, err
		}
	}
	closureVal, err := g.evalExpr(fc, c.Fn)
	if err != nil {
		return NoLocal, err
	}
	closureBoxed := g.boxObj(fc, closureVal, fc.typeOf(closureVal).Elem)
	args := make([]LocalId, len(c.Args))
	for i, a := range c.Args {
		av, err := g.evalExpr(fc, a)
		if err != nil {
			return NoLocal, err
		}
		args[i] = g.boxObj(fc, av, fc.typeOf(av).Elem)
	}
	if c.IsTail {
		fc.block().Term = TailCallClosure(closureBoxed, args)
		return NoLocal, nil
	}
	dst := fc.fn.NewLocal(PlainType(Obj()))
	allArgs := append([]LocalId{closureBoxed}, args...)
	return fc.emit(Instruction{Result: dst, Kind: CallClosure, Args: allArgs}), nil
}

// primName reports the primitive name of fn when fn is a bare unresolved
// global reference matching primTable (see primTable's doc comment).
func (g *Generator) primName(fn ast.Node) (string, bool) {
	v, ok := fn.(*ast.Var)
	if !ok || v.Ref.Kind != ast.RefGlobal {
		return "", false
	}
	if _, ok := primTable[v.Name]; !ok {
		return "", false
	}
	return v.Name, true
}

func (g *Generator) evalPrimCall(fc *funcCtx, name string, c *ast.Call) (LocalId, bool, error) {
	info := primTable[name]
	switch info.kind {
	case primArith:
		if len(c.Args) != 2 {
			return NoLocal, false, nil
		}
		lhs, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		rhs, err := g.evalExpr(fc, c.Args[1])
		if err != nil {
			return NoLocal, true, err
		}
		vt := ValInt
		if fc.typeOf(lhs).Elem.Val == ValFloat || fc.typeOf(rhs).Elem.Val == ValFloat {
			vt = ValFloat
		}
		l := g.unboxVal(fc, lhs, vt)
		r := g.unboxVal(fc, rhs, vt)
		dst := fc.fn.NewLocal(PlainType(Val(vt)))
		v := fc.emit(Instruction{Result: dst, Kind: Arith, Args: []LocalId{l, r}, Op: info.op, ValT: vt})
		return v, true, nil
	case primCompare:
		if len(c.Args) != 2 {
			return NoLocal, false, nil
		}
		lhs, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		rhs, err := g.evalExpr(fc, c.Args[1])
		if err != nil {
			return NoLocal, true, err
		}
		vt := ValInt
		if fc.typeOf(lhs).Elem.Val == ValFloat || fc.typeOf(rhs).Elem.Val == ValFloat {
			vt = ValFloat
		}
		l := g.unboxVal(fc, lhs, vt)
		r := g.unboxVal(fc, rhs, vt)
		dst := fc.fn.NewLocal(PlainType(Val(ValBool)))
		v := fc.emit(Instruction{Result: dst, Kind: Compare, Args: []LocalId{l, r}, Cmp: info.cmp})
		return v, true, nil
	case primCons:
		if len(c.Args) != 2 {
			return NoLocal, false, nil
		}
		car, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		cdr, err := g.evalExpr(fc, c.Args[1])
		if err != nil {
			return NoLocal, true, err
		}
		carB := g.boxObj(fc, car, fc.typeOf(car).Elem)
		cdrB := g.boxObj(fc, cdr, fc.typeOf(cdr).Elem)
		dst := fc.fn.NewLocal(PlainType(Val(ValCons)))
		v := fc.emit(Instruction{Result: dst, Kind: Cons, Args: []LocalId{carB, cdrB}})
		return v, true, nil
	case primCar, primCdr:
		if len(c.Args) != 1 {
			return NoLocal, false, nil
		}
		pair, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		p := g.unboxVal(fc, pair, ValCons)
		kind := Car
		if info.kind == primCdr {
			kind = Cdr
		}
		dst := fc.fn.NewLocal(PlainType(Obj()))
		v := fc.emit(Instruction{Result: dst, Kind: kind, Args: []LocalId{p}})
		return v, true, nil
	case primVectorNew:
		elems := make([]LocalId, len(c.Args))
		for i, a := range c.Args {
			av, err := g.evalExpr(fc, a)
			if err != nil {
				return NoLocal, true, err
			}
			elems[i] = g.boxObj(fc, av, fc.typeOf(av).Elem)
		}
		dst := fc.fn.NewLocal(PlainType(Val(ValVector)))
		v := fc.emit(Instruction{Result: dst, Kind: VectorNew, Args: elems})
		return v, true, nil
	case primVectorRef:
		if len(c.Args) != 2 {
			return NoLocal, false, nil
		}
		vec, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		idx, err := g.evalExpr(fc, c.Args[1])
		if err != nil {
			return NoLocal, true, err
		}
		v := g.unboxVal(fc, vec, ValVector)
		i := g.unboxVal(fc, idx, ValInt)
		dst := fc.fn.NewLocal(PlainType(Obj()))
		res := fc.emit(Instruction{Result: dst, Kind: VectorRef, Args: []LocalId{v, i}})
		return res, true, nil
	case primVectorSet:
		if len(c.Args) != 3 {
			return NoLocal, false, nil
		}
		vec, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		idx, err := g.evalExpr(fc, c.Args[1])
		if err != nil {
			return NoLocal, true, err
		}
		val, err := g.evalExpr(fc, c.Args[2])
		if err != nil {
			return NoLocal, true, err
		}
		v := g.unboxVal(fc, vec, ValVector)
		i := g.unboxVal(fc, idx, ValInt)
		val = g.boxObj(fc, val, fc.typeOf(val).Elem)
		fc.emit(Instruction{Result: NoLocal, Kind: VectorSet, Args: []LocalId{v, i, val}})
		return NoLocal, true, nil
	case primVectorLen:
		if len(c.Args) != 1 {
			return NoLocal, false, nil
		}
		vec, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		v := g.unboxVal(fc, vec, ValVector)
		dst := fc.fn.NewLocal(PlainType(Val(ValInt)))
		res := fc.emit(Instruction{Result: dst, Kind: VectorLen, Args: []LocalId{v}})
		return res, true, nil
	case primUVectorRef:
		if len(c.Args) != 2 {
			return NoLocal, false, nil
		}
		vec, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		idx, err := g.evalExpr(fc, c.Args[1])
		if err != nil {
			return NoLocal, true, err
		}
		elemT, err := g.uvectorElemType(fc, vec)
		if err != nil {
			return NoLocal, true, err
		}
		i := g.unboxVal(fc, idx, ValInt)
		dst := fc.fn.NewLocal(PlainType(Val(elemT)))
		res := fc.emit(Instruction{Result: dst, Kind: UVectorRef, Args: []LocalId{vec, i}, ValT: elemT})
		return res, true, nil
	case primUVectorSet:
		if len(c.Args) != 3 {
			return NoLocal, false, nil
		}
		vec, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		idx, err := g.evalExpr(fc, c.Args[1])
		if err != nil {
			return NoLocal, true, err
		}
		elemT, err := g.uvectorElemType(fc, vec)
		if err != nil {
			return NoLocal, true, err
		}
		val, err := g.evalExpr(fc, c.Args[2])
		if err != nil {
			return NoLocal, true, err
		}
		i := g.unboxVal(fc, idx, ValInt)
		val = g.unboxVal(fc, val, elemT)
		fc.emit(Instruction{Result: NoLocal, Kind: UVectorSet, Args: []LocalId{vec, i, val}, ValT: elemT})
		return NoLocal, true, nil
	case primUVectorLen:
		if len(c.Args) != 1 {
			return NoLocal, false, nil
		}
		vec, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		if _, err := g.uvectorElemType(fc, vec); err != nil {
			return NoLocal, true, err
		}
		dst := fc.fn.NewLocal(PlainType(Val(ValInt)))
		res := fc.emit(Instruction{Result: dst, Kind: UVectorLen, Args: []LocalId{vec}})
		return res, true, nil
	case primTypeIs:
		if len(c.Args) != 1 {
			return NoLocal, false, nil
		}
		arg, err := g.evalExpr(fc, c.Args[0])
		if err != nil {
			return NoLocal, true, err
		}
		boxed := g.boxObj(fc, arg, fc.typeOf(arg).Elem)
		dst := fc.fn.NewLocal(PlainType(Val(ValBool)))
		res := fc.emit(Instruction{Result: dst, Kind: TypeIs, Args: []LocalId{boxed}, ValT: info.vt})
		return res, true, nil
	default:
		return NoLocal, false, nil
	}
}

func (g *Generator) evalLet(fc *funcCtx, l *ast.Let) (LocalId, error) {
	for _, b := range l.Bindings {
		val, err := g.evalExpr(fc, b.Value)
		if err != nil {
			return NoLocal, err
		}
		g.bindLocal(fc, b.Id, val)
	}
	return g.evalBody(fc, l.Body)
}

func (g *Generator) evalLetRec(fc *funcCtx, l *ast.LetRec) (LocalId, error) {
	// Pre-allocate every binding's storage (a cell, since LetRec bindings
	// are unconditionally mutated per spec.md §4.3) before evaluating any
	// initializer, so mutually-recursive references resolve.
	cells := make([]LocalId, len(l.Bindings))
	for i, b := range l.Bindings {
		cell := fc.fn.NewLocal(RefType(Obj()))
		cells[i] = cell
		fc.localOf[b.Id] = cell
	}
	for i, b := range l.Bindings {
		val, err := g.evalExpr(fc, b.Value)
		if err != nil {
			return NoLocal, err
		}
		boxed := g.boxObj(fc, val, fc.typeOf(val).Elem)
		fc.emit(Instruction{Result: NoLocal, Kind: CellSet, Args: []LocalId{cells[i], boxed}})
	}
	return g.evalBody(fc, l.Body)
}

// bindLocal records al's storage: a fresh Ref cell if needsCell reports
// it (captured-and-mutated, or mutated at all), otherwise the evaluated
// value's own local directly.
func (g *Generator) bindLocal(fc *funcCtx, al ast.LocalId, val LocalId) {
	if g.needsCell(al) {
		boxed := g.boxObj(fc, val, fc.typeOf(val).Elem)
		cell := fc.fn.NewLocal(RefType(Obj()))
		fc.emit(Instruction{Result: cell, Kind: CellNew, Args: []LocalId{boxed}})
		fc.localOf[al] = cell
		return
	}
	fc.localOf[al] = val
}

func (g *Generator) evalBody(fc *funcCtx, body []ast.Node) (LocalId, error) {
	var last LocalId = NoLocal
	for _, n := range body {
		val, err := g.evalExpr(fc, n)
		if err != nil {
			return NoLocal, err
		}
		last = val
	}
	return last, nil
}

func (g *Generator) evalCons(fc *funcCtx, c *ast.Cons) (LocalId, error) {
	car, err := g.evalExpr(fc, c.Car)
	if err != nil {
		return NoLocal, err
	}
	cdr, err := g.evalExpr(fc, c.Cdr)
	if err != nil {
		return NoLocal, err
	}
	carB := g.boxObj(fc, car, fc.typeOf(car).Elem)
	cdrB := g.boxObj(fc, cdr, fc.typeOf(cdr).Elem)
	dst := fc.fn.NewLocal(PlainType(Val(ValCons)))
	return fc.emit(Instruction{Result: dst, Kind: Cons, Args: []LocalId{carB, cdrB}}), nil
}

func (g *Generator) evalVectorLit(fc *funcCtx, v *ast.VectorLit) (LocalId, error) {
	elems := make([]LocalId, len(v.Elems))
	for i, e := range v.Elems {
		ev, err := g.evalExpr(fc, e)
		if err != nil {
			return NoLocal, err
		}
		elems[i] = g.boxObj(fc, ev, fc.typeOf(ev).Elem)
	}
	dst := fc.fn.NewLocal(PlainType(Val(ValVector)))
	return fc.emit(Instruction{Result: dst, Kind: VectorNew, Args: elems}), nil
}

// evalUVectorLit lowers a #s64(...)/#f64(...) literal to a UVectorNew of
// the right length followed by one UVectorSet per element, so the literal's
// values (u.Ints/u.Flts) actually end up in the vector instead of being
// dropped on the floor — UVectorNew alone only reserves storage.
func (g *Generator) evalUVectorLit(fc *funcCtx, u *ast.UVectorLit) (LocalId, error) {
	switch u.Kind {
	case ast.UVecS64:
		dst := fc.fn.NewLocal(PlainType(Val(ValUVectorS64)))
		vec := fc.emit(Instruction{Result: dst, Kind: UVectorNew, ValT: ValUVectorS64, Int: int64(len(u.Ints))})
		for i, n := range u.Ints {
			idx := fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValInt))), Kind: ConstInt, Int: int64(i)})
			elem := fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValInt))), Kind: ConstInt, Int: n})
			fc.emit(Instruction{Result: NoLocal, Kind: UVectorSet, Args: []LocalId{vec, idx, elem}, ValT: ValInt})
		}
		return vec, nil
	case ast.UVecF64:
		dst := fc.fn.NewLocal(PlainType(Val(ValUVectorF64)))
		vec := fc.emit(Instruction{Result: dst, Kind: UVectorNew, ValT: ValUVectorF64, Int: int64(len(u.Flts))})
		for i, n := range u.Flts {
			idx := fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValInt))), Kind: ConstInt, Int: int64(i)})
			elem := fc.emit(Instruction{Result: fc.fn.NewLocal(PlainType(Val(ValFloat))), Kind: ConstFloat, Flt: n})
			fc.emit(Instruction{Result: NoLocal, Kind: UVectorSet, Args: []LocalId{vec, idx, elem}, ValT: ValFloat})
		}
		return vec, nil
	default:
		return NoLocal, wserrors.New("ir", "IR005", "unknown UVector kind", nil)
	}
}
