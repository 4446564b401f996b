package cfganalysis

import (
	"testing"

	"github.com/webschembly/wsc/internal/ir"
)

// buildDiamond builds entry -> {then, else} -> merge, the canonical
// if/merge shape an ir.Generator emits for a value-producing If.
func buildDiamond(t *testing.T) (*ir.Function, ir.BasicBlockId, ir.BasicBlockId, ir.BasicBlockId, ir.BasicBlockId) {
	t.Helper()
	fn := ir.NewFunction(0, ir.Obj())
	entry := fn.NewBlock()
	thenBB := fn.NewBlock()
	elseBB := fn.NewBlock()
	merge := fn.NewBlock()
	fn.EntryBB = entry

	cond := fn.NewLocal(ir.PlainType(ir.Val(ir.ValBool)))
	fn.Block(entry).Term = ir.If(cond, thenBB, elseBB)
	fn.Block(thenBB).Term = ir.Jump(merge)
	fn.Block(elseBB).Term = ir.Jump(merge)
	ret := fn.NewLocal(ir.PlainType(ir.Obj()))
	fn.Block(merge).Term = ir.Return(ret)
	return fn, entry, thenBB, elseBB, merge
}

func TestAnalyzeDiamondRPOAndPreds(t *testing.T) {
	fn, entry, thenBB, elseBB, merge := buildDiamond(t)
	c := Analyze(fn)

	if len(c.RPO) != 4 {
		t.Fatalf("expected 4 reachable blocks, got %d: %v", len(c.RPO), c.RPO)
	}
	if c.RPO[0] != entry {
		t.Errorf("expected entry first in RPO, got %v", c.RPO[0])
	}
	if c.RPONum[merge] <= c.RPONum[thenBB] || c.RPONum[merge] <= c.RPONum[elseBB] {
		t.Error("expected merge to have a higher RPO number than both arms")
	}

	preds := c.Preds[merge]
	if len(preds) != 2 {
		t.Fatalf("expected merge to have 2 predecessors, got %d", len(preds))
	}
	if !c.MergeNodes[merge] {
		t.Error("expected merge to be flagged a merge node")
	}
	if c.MergeNodes[thenBB] || c.MergeNodes[elseBB] || c.MergeNodes[entry] {
		t.Error("only merge should be flagged a merge node in a diamond")
	}
}

func TestAnalyzeDiamondDominators(t *testing.T) {
	fn, entry, thenBB, elseBB, merge := buildDiamond(t)
	c := Analyze(fn)

	if !c.Dom[merge][entry] {
		t.Error("expected entry to dominate merge")
	}
	if c.Dom[merge][thenBB] || c.Dom[merge][elseBB] {
		t.Error("neither arm should dominate merge (each is only one of its two predecessors)")
	}
	if c.IDom[merge] != entry {
		t.Errorf("expected merge's immediate dominator to be entry, got %v", c.IDom[merge])
	}
	if c.IDom[thenBB] != entry || c.IDom[elseBB] != entry {
		t.Error("expected both arms' immediate dominator to be entry")
	}
}

func TestAnalyzeDiamondDominanceFrontier(t *testing.T) {
	fn, _, thenBB, elseBB, merge := buildDiamond(t)
	c := Analyze(fn)

	if !c.DF[thenBB][merge] {
		t.Error("expected merge in then-arm's dominance frontier")
	}
	if !c.DF[elseBB][merge] {
		t.Error("expected merge in else-arm's dominance frontier")
	}
	if len(c.DF[merge]) != 0 {
		t.Errorf("expected merge's own dominance frontier empty, got %v", c.DF[merge])
	}
}

func TestAnalyzeDiamondNoCriticalEdges(t *testing.T) {
	fn, _, _, _, _ := buildDiamond(t)
	c := Analyze(fn)
	if edges := c.CriticalEdges(); len(edges) != 0 {
		t.Errorf("expected no critical edges in a diamond (each arm has exactly 1 pred/1 succ), got %v", edges)
	}
}

// buildLoop builds entry -> header -> {body, exit}; body -> header (back
// edge), the canonical shape of a tail-recursive loop lowered to a jump
// back to its header.
func buildLoop(t *testing.T) (fn *ir.Function, entry, header, body, exit ir.BasicBlockId) {
	t.Helper()
	fn = ir.NewFunction(0, ir.Obj())
	entry = fn.NewBlock()
	header = fn.NewBlock()
	body = fn.NewBlock()
	exit = fn.NewBlock()
	fn.EntryBB = entry

	fn.Block(entry).Term = ir.Jump(header)
	cond := fn.NewLocal(ir.PlainType(ir.Val(ir.ValBool)))
	fn.Block(header).Term = ir.If(cond, body, exit)
	fn.Block(body).Term = ir.Jump(header)
	ret := fn.NewLocal(ir.PlainType(ir.Obj()))
	fn.Block(exit).Term = ir.Return(ret)
	return fn, entry, header, body, exit
}

func TestAnalyzeLoopHeaderAndBackEdge(t *testing.T) {
	fn, _, header, body, _ := buildLoop(t)
	c := Analyze(fn)

	if !c.LoopHeaders[header] {
		t.Error("expected header to be flagged a loop header")
	}
	if len(c.BackEdges) != 1 || c.BackEdges[0].From != body || c.BackEdges[0].To != header {
		t.Errorf("expected a single back edge body->header, got %v", c.BackEdges)
	}
	// The back edge must not be counted toward merge-node forward-predecessor
	// counting: header has one forward predecessor (entry) despite also
	// being targeted by the back edge from body.
	if c.MergeNodes[header] {
		t.Error("header should not be a merge node: its second predecessor arrives via a back edge, not a forward edge")
	}
}

func TestComputeLivenessAcrossDiamond(t *testing.T) {
	fn := ir.NewFunction(0, ir.Obj())
	entry := fn.NewBlock()
	thenBB := fn.NewBlock()
	elseBB := fn.NewBlock()
	merge := fn.NewBlock()
	fn.EntryBB = entry

	x := fn.NewLocal(ir.PlainType(ir.Obj()))
	cond := fn.NewLocal(ir.PlainType(ir.Val(ir.ValBool)))
	fn.Block(entry).Instrs = append(fn.Block(entry).Instrs, ir.Instruction{Result: x, Kind: ir.ConstInt, Int: 1})
	fn.Block(entry).Term = ir.If(cond, thenBB, elseBB)

	y := fn.NewLocal(ir.PlainType(ir.Obj()))
	fn.Block(thenBB).Instrs = append(fn.Block(thenBB).Instrs, ir.Instruction{Result: y, Kind: ir.Move, Args: []ir.LocalId{x}})
	fn.Block(thenBB).Term = ir.Jump(merge)

	z := fn.NewLocal(ir.PlainType(ir.Obj()))
	fn.Block(elseBB).Instrs = append(fn.Block(elseBB).Instrs, ir.Instruction{Result: z, Kind: ir.Move, Args: []ir.LocalId{x}})
	fn.Block(elseBB).Term = ir.Jump(merge)

	phiResult := fn.NewLocal(ir.PlainType(ir.Obj()))
	phi := ir.NewPhi(phiResult)
	phi.Incomings = []ir.PhiIncoming{{Pred: thenBB, Val: y}, {Pred: elseBB, Val: z}}
	fn.Block(merge).Instrs = append(fn.Block(merge).Instrs, phi)
	fn.Block(merge).Term = ir.Return(phiResult)

	c := Analyze(fn)
	live := ComputeLiveness(fn, c)

	if !live.LiveOut[thenBB][y] {
		t.Error("expected y live-out of thenBB (consumed by merge's phi incoming)")
	}
	if !live.LiveOut[elseBB][z] {
		t.Error("expected z live-out of elseBB (consumed by merge's phi incoming)")
	}
	if live.LiveOut[thenBB][z] || live.LiveOut[elseBB][y] {
		t.Error("phi incomings must only extend the naming predecessor's live-out, not the other arm's")
	}
	if !live.LiveOut[entry][x] {
		t.Error("expected x live across entry into both arms")
	}
}
