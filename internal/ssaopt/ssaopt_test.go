package ssaopt

import (
	"testing"

	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/ir"
)

func TestCopyPropagateRoundtrip(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	bb := fn.NewBlock()
	fn.EntryBB = bb

	a := fn.NewLocal(ir.PlainType(ir.Val(ir.ValInt)))
	b := fn.NewLocal(ir.PlainType(ir.Obj()))
	c := fn.NewLocal(ir.PlainType(ir.Val(ir.ValInt)))
	block := fn.Block(bb)
	block.Instrs = []ir.Instruction{
		{Result: b, Kind: ir.ToObj, Args: []ir.LocalId{a}, ValT: ir.ValInt},
		{Result: c, Kind: ir.FromObj, Args: []ir.LocalId{b}, ValT: ir.ValInt},
	}
	block.Term = ir.Return(c)

	CopyPropagate(block)

	if block.Instrs[1].Kind != ir.Move {
		t.Fatalf("expected from-obj(to-obj(a)) to fold to a Move, got %v", block.Instrs[1].Kind)
	}
	if block.Instrs[1].Args[0] != a {
		t.Errorf("expected the Move to read a directly, got %v", block.Instrs[1].Args[0])
	}
	if block.Term.Ret != a {
		t.Errorf("expected terminator's Ret resolved through the copy chain to a, got %v", block.Term.Ret)
	}
}

func TestFoldTypeChecksConstantFolds(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	bb := fn.NewBlock()
	fn.EntryBB = bb

	a := fn.NewLocal(ir.PlainType(ir.Val(ir.ValInt)))
	boxed := fn.NewLocal(ir.PlainType(ir.Obj()))
	res := fn.NewLocal(ir.PlainType(ir.Val(ir.ValBool)))
	block := fn.Block(bb)
	block.Instrs = []ir.Instruction{
		{Result: boxed, Kind: ir.ToObj, Args: []ir.LocalId{a}, ValT: ir.ValInt},
		{Result: res, Kind: ir.TypeIs, Args: []ir.LocalId{boxed}, ValT: ir.ValInt},
	}
	block.Term = ir.Return(res)

	FoldTypeChecks(block)

	if block.Instrs[1].Kind != ir.ConstBool || !block.Instrs[1].Bool {
		t.Fatalf("expected is<int>(to-obj<int>(a)) to fold to ConstBool(true), got %v/%v", block.Instrs[1].Kind, block.Instrs[1].Bool)
	}
}

func TestDCERemovesDeadPureInstruction(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	bb := fn.NewBlock()
	fn.EntryBB = bb

	dead := fn.NewLocal(ir.PlainType(ir.Val(ir.ValInt)))
	live := fn.NewLocal(ir.PlainType(ir.Val(ir.ValInt)))
	block := fn.Block(bb)
	block.Instrs = []ir.Instruction{
		{Result: dead, Kind: ir.ConstInt, Int: 99},
		{Result: live, Kind: ir.ConstInt, Int: 1},
	}
	block.Term = ir.Return(live)

	cfg := cfganalysis.Analyze(fn)
	liveness := cfganalysis.ComputeLiveness(fn, cfg)
	DCE(fn, cfg, liveness)

	if block.Instrs[0].Kind != ir.Nop {
		t.Errorf("expected the dead constant to become Nop, got %v", block.Instrs[0].Kind)
	}
	if block.Instrs[1].Kind != ir.ConstInt {
		t.Errorf("expected the live constant to survive DCE, got %v", block.Instrs[1].Kind)
	}
}

func TestDCEKeepsSideEffectfulInstruction(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	bb := fn.NewBlock()
	fn.EntryBB = bb

	g := fn.NewLocal(ir.PlainType(ir.Obj()))
	block := fn.Block(bb)
	block.Instrs = []ir.Instruction{
		{Result: ir.NoLocal, Kind: ir.GlobalSet, Global: 0, Args: []ir.LocalId{g}},
	}
	block.Term = ir.Return(ir.NoLocal)

	cfg := cfganalysis.Analyze(fn)
	liveness := cfganalysis.ComputeLiveness(fn, cfg)
	DCE(fn, cfg, liveness)

	if block.Instrs[0].Kind != ir.GlobalSet {
		t.Errorf("expected GlobalSet to survive DCE unconditionally, got %v", block.Instrs[0].Kind)
	}
}

func TestPhiEliminationDiamond(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	entry := fn.NewBlock()
	thenBB := fn.NewBlock()
	elseBB := fn.NewBlock()
	merge := fn.NewBlock()
	fn.EntryBB = entry

	cond := fn.NewLocal(ir.PlainType(ir.Val(ir.ValBool)))
	y := fn.NewLocal(ir.PlainType(ir.Obj()))
	z := fn.NewLocal(ir.PlainType(ir.Obj()))
	phiResult := fn.NewLocal(ir.PlainType(ir.Obj()))

	fn.Block(entry).Term = ir.If(cond, thenBB, elseBB)
	fn.Block(thenBB).Instrs = []ir.Instruction{{Result: y, Kind: ir.ConstNil}}
	fn.Block(thenBB).Term = ir.Jump(merge)
	fn.Block(elseBB).Instrs = []ir.Instruction{{Result: z, Kind: ir.ConstNil}}
	fn.Block(elseBB).Term = ir.Jump(merge)

	phi := ir.NewPhi(phiResult)
	phi.Incomings = []ir.PhiIncoming{{Pred: thenBB, Val: y}, {Pred: elseBB, Val: z}}
	fn.Block(merge).Instrs = []ir.Instruction{phi}
	fn.Block(merge).Term = ir.Return(phiResult)

	cfg := cfganalysis.Analyze(fn)
	if err := PhiElimination(fn, cfg); err != nil {
		t.Fatalf("PhiElimination: %v", err)
	}

	if fn.Block(merge).PhiCount() != 0 {
		t.Fatalf("expected the phi to be deleted, got %d remaining", fn.Block(merge).PhiCount())
	}
	var sawMoveInThen, sawMoveInElse bool
	for _, in := range fn.Block(thenBB).Instrs {
		if in.Kind == ir.Move && in.Result == phiResult && in.Args[0] == y {
			sawMoveInThen = true
		}
	}
	for _, in := range fn.Block(elseBB).Instrs {
		if in.Kind == ir.Move && in.Result == phiResult && in.Args[0] == z {
			sawMoveInElse = true
		}
	}
	if !sawMoveInThen {
		t.Error("expected then-arm to gain a move phiResult <- y")
	}
	if !sawMoveInElse {
		t.Error("expected else-arm to gain a move phiResult <- z")
	}
}

func TestPhiEliminationBreaksSwapCycle(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	preheader := fn.NewBlock()
	header := fn.NewBlock()
	body := fn.NewBlock()
	exit := fn.NewBlock()
	fn.EntryBB = preheader

	initA := fn.NewLocal(ir.PlainType(ir.Obj()))
	initB := fn.NewLocal(ir.PlainType(ir.Obj()))
	a := fn.NewLocal(ir.PlainType(ir.Obj()))
	b := fn.NewLocal(ir.PlainType(ir.Obj()))
	cond := fn.NewLocal(ir.PlainType(ir.Val(ir.ValBool)))

	fn.Block(preheader).Instrs = []ir.Instruction{
		{Result: initA, Kind: ir.ConstNil},
		{Result: initB, Kind: ir.ConstNil},
	}
	fn.Block(preheader).Term = ir.Jump(header)

	// The loop swaps a and b on every iteration: phi incomings from body
	// name the *other* phi's prior value, forming a 2-cycle in the
	// dependency graph that PhiElimination's move sequencing must break
	// with a temporary.
	phiA := ir.NewPhi(a)
	phiA.Incomings = []ir.PhiIncoming{{Pred: preheader, Val: initA}, {Pred: body, Val: b}}
	phiB := ir.NewPhi(b)
	phiB.Incomings = []ir.PhiIncoming{{Pred: preheader, Val: initB}, {Pred: body, Val: a}}
	fn.Block(header).Instrs = []ir.Instruction{phiA, phiB}
	fn.Block(header).Term = ir.If(cond, body, exit)
	fn.Block(body).Term = ir.Jump(header)
	fn.Block(exit).Term = ir.Return(a)

	cfg := cfganalysis.Analyze(fn)
	if err := PhiElimination(fn, cfg); err != nil {
		t.Fatalf("PhiElimination: %v", err)
	}

	// body's half of the swap needs a fresh temporary beyond the 5 locals
	// already allocated (initA, initB, a, b, cond).
	if fn.Locals.Len() <= 5 {
		t.Fatalf("expected a fresh temporary local for the swap cycle, locals len=%d", fn.Locals.Len())
	}
	var moveCount int
	for _, in := range fn.Block(body).Instrs {
		if in.Kind == ir.Move {
			moveCount++
		}
	}
	if moveCount != 3 {
		t.Errorf("expected 3 moves sequentializing the 2-cycle swap in body, got %d", moveCount)
	}
	var preheaderMoves int
	for _, in := range fn.Block(preheader).Instrs {
		if in.Kind == ir.Move {
			preheaderMoves++
		}
	}
	if preheaderMoves != 2 {
		t.Errorf("expected 2 acyclic moves in preheader (a<-initA, b<-initB), got %d", preheaderMoves)
	}
}

func TestConstantClosurePropagationAndDesugar(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	bb := fn.NewBlock()
	fn.EntryBB = bb

	closure := fn.NewLocal(ir.PlainType(ir.Val(ir.ValClosure)))
	arg := fn.NewLocal(ir.PlainType(ir.Obj()))
	res := fn.NewLocal(ir.PlainType(ir.Obj()))
	block := fn.Block(bb)
	block.Instrs = []ir.Instruction{
		{Result: closure, Kind: ir.ClosureNew, Func: 7},
		{Result: res, Kind: ir.CallClosure, Args: []ir.LocalId{closure, arg}},
	}
	block.Term = ir.Return(res)

	cfg := cfganalysis.Analyze(fn)
	vals := PropagateConstantClosures(fn, cfg)
	if vals[closure].State != ccConstant || vals[closure].Func != 7 {
		t.Fatalf("expected closure local resolved to Constant(func=7), got %+v", vals[closure])
	}

	DesugarCallClosures(fn, cfg, vals)
	var sawCallDirect bool
	for _, in := range block.Instrs {
		if in.Kind == ir.CallDirect && in.Func == 7 {
			sawCallDirect = true
		}
		if in.Kind == ir.CallClosure {
			t.Error("expected CallClosure to be fully desugared")
		}
	}
	if !sawCallDirect {
		t.Error("expected the resolved constant closure call to desugar to CallDirect(func=7)")
	}
}

func TestInlineSplicesSingleReturnCallee(t *testing.T) {
	mod := ir.NewModule(0)
	calleeID := mod.NewFunc(ir.Obj(), "callee")
	callee := mod.Func(calleeID)
	calleeArg := callee.NewLocal(ir.PlainType(ir.Obj()))
	callee.Args = []ir.LocalId{calleeArg}
	calleeEntry := callee.NewBlock()
	callee.EntryBB = calleeEntry
	callee.Block(calleeEntry).Term = ir.Return(calleeArg)

	callerID := mod.NewFunc(ir.Obj(), "caller")
	caller := mod.Func(callerID)
	callerEntry := caller.NewBlock()
	caller.EntryBB = callerEntry
	argVal := caller.NewLocal(ir.PlainType(ir.Obj()))
	res := caller.NewLocal(ir.PlainType(ir.Obj()))
	caller.Block(callerEntry).Instrs = []ir.Instruction{
		{Result: argVal, Kind: ir.ConstNil},
		{Result: res, Kind: ir.CallDirect, Func: calleeID, Args: []ir.LocalId{argVal}},
	}
	caller.Block(callerEntry).Term = ir.Return(res)

	Inline(mod, DefaultInlineBlockBudget)

	var sawCallDirect bool
	for _, bid := range caller.BlockIds() {
		for _, in := range caller.Block(bid).Instrs {
			if in.Kind == ir.CallDirect {
				sawCallDirect = true
			}
		}
	}
	if sawCallDirect {
		t.Error("expected the CallDirect call site to be inlined away")
	}
	if caller.Blocks.Len() < 2 {
		t.Errorf("expected caller to have gained the callee's cloned blocks, got %d", caller.Blocks.Len())
	}
}

func TestReuseRegistersShrinksLocalCount(t *testing.T) {
	fn := ir.NewFunction(0, ir.Val(ir.ValInt))
	intT := ir.PlainType(ir.Val(ir.ValInt))

	v0 := fn.NewLocal(intT)
	v1 := fn.NewLocal(intT)
	v2 := fn.NewLocal(intT)
	v3 := fn.NewLocal(intT)
	v4 := fn.NewLocal(intT)
	fn.Args = []ir.LocalId{v0, v1}

	bb := fn.NewBlock()
	fn.EntryBB = bb
	fn.Block(bb).Instrs = []ir.Instruction{
		{Result: v2, Kind: ir.Arith, Args: []ir.LocalId{v0, v1}, Op: ir.ArithAdd, ValT: ir.ValInt},
		{Result: v3, Kind: ir.ConstInt, Int: 30},
		{Result: v4, Kind: ir.Arith, Args: []ir.LocalId{v2, v3}, Op: ir.ArithAdd, ValT: ir.ValInt},
	}
	fn.Block(bb).Term = ir.Return(v4)

	if fn.Locals.Len() != 5 {
		t.Fatalf("expected 5 locals before reuse, got %d", fn.Locals.Len())
	}

	cfg := cfganalysis.Analyze(fn)
	ReuseRegisters(fn, cfg)

	if n := fn.Locals.Len(); n >= 5 {
		t.Fatalf("expected ReuseRegisters to shrink the local count below 5, got %d", n)
	}

	// The function must still type-check and return the same value: args
	// remain distinct live-simultaneously locals, and the final Arith's
	// result must still be what the terminator returns.
	if fn.Args[0] == fn.Args[1] {
		t.Errorf("expected the two simultaneously-live arguments to keep distinct slots, got %v == %v", fn.Args[0], fn.Args[1])
	}
	last := fn.Block(bb).Instrs[len(fn.Block(bb).Instrs)-1]
	if last.Result != fn.Block(bb).Term.Ret {
		t.Errorf("expected the terminator to still read the final Arith's result, got Ret=%v, last result=%v", fn.Block(bb).Term.Ret, last.Result)
	}
}
