package ssaopt

import "github.com/webschembly/wsc/internal/ir"

// DefaultInlineBlockBudget is the ceiling spec.md §9 calls out ("noted as
// 100 in comments... expose as configuration") for the combined block
// count of a module: its blocks before inlining plus the blocks of every
// callee body spliced in may not exceed it.
const DefaultInlineBlockBudget = 100

// Inline splices CallDirect call sites across mod's functions into their
// caller, bounded by a whole-module block-count budget (spec.md §4.7
// "Inlining"). budget <= 0 selects DefaultInlineBlockBudget.
//
// Grounded on the teacher's internal/elaborate/scc.go: its call-graph
// abstraction (nodes, edges, a worklist walked with a visited set) is the
// shape reused here for "don't re-inline a function into itself" cycle
// avoidance — this pass never inlines a CallDirect back into the function
// that defines the callee, exactly the self-loop scc.go's Tarjan pass
// would flag as its own trivial one-node SCC.
//
// A callee whose body contains any tail-call terminator is never inlined:
// splicing a tail call into a non-tail calling context would require
// either rewriting it into an ordinary call (losing tail-call semantics)
// or threading a trampoline, neither of which spec.md's terminator set
// gives this pass a sound way to express — so such callees are left as
// genuine calls.
func Inline(mod *ir.Module, budget int) {
	if budget <= 0 {
		budget = DefaultInlineBlockBudget
	}
	totalBlocks := 0
	mod.Funcs.Each(func(_ ir.FuncId, fn *ir.Function) { totalBlocks += fn.Blocks.Len() })

	for _, fid := range mod.Funcs.Keys() {
		fn := mod.Func(fid)
		inlineIntoFunction(mod, fn, fid, &totalBlocks, budget)
	}
}

func inlineIntoFunction(mod *ir.Module, fn *ir.Function, fid ir.FuncId, totalBlocks *int, budget int) {
	queue := fn.BlockIds()
	for len(queue) > 0 {
		bid := queue[0]
		queue = queue[1:]
		block := fn.Block(bid)

		for i := 0; i < len(block.Instrs); i++ {
			instr := block.Instrs[i]
			if instr.Kind != ir.CallDirect || instr.Func == fid {
				continue
			}
			callee, ok := mod.Funcs.Get(instr.Func)
			if !ok || hasTailCall(callee) {
				continue
			}
			if *totalBlocks+callee.Blocks.Len() > budget {
				continue
			}
			contBB := spliceCall(fn, bid, i, instr, callee)
			*totalBlocks += callee.Blocks.Len()
			queue = append(queue, contBB)
			break
		}
	}
}

func hasTailCall(fn *ir.Function) bool {
	for _, bid := range fn.BlockIds() {
		switch fn.Block(bid).Term.Kind {
		case ir.TermTailCallClosure, ir.TermTailCallRef:
			return true
		}
	}
	return false
}

type returnSite struct {
	pred ir.BasicBlockId
	val  ir.LocalId
}

// spliceCall replaces the call instruction at callerBB.Instrs[idx] with a
// jump into a freshly cloned copy of callee's body, wires callee's
// parameters from the call's arguments via leading Moves, rejoins every
// cloned Return into a new continuation block (via a Move or a Phi when
// the callee returns from more than one site), and returns that
// continuation block's id so the caller can keep scanning it for further
// call sites.
func spliceCall(fn *ir.Function, callerBB ir.BasicBlockId, idx int, call ir.Instruction, callee *ir.Function) ir.BasicBlockId {
	block := fn.Block(callerBB)
	before := append([]ir.Instruction(nil), block.Instrs[:idx]...)
	after := append([]ir.Instruction(nil), block.Instrs[idx+1:]...)
	origTerm := block.Term

	contBB := fn.NewBlock()
	fn.Block(contBB).Instrs = after
	fn.Block(contBB).Term = origTerm
	block.Instrs = before

	localMap := make(map[ir.LocalId]ir.LocalId, callee.Locals.Len())
	for _, lid := range callee.Locals.Keys() {
		localMap[lid] = fn.NewLocal(callee.LocalType(lid))
	}
	blockMap := make(map[ir.BasicBlockId]ir.BasicBlockId, callee.Blocks.Len())
	for _, bbid := range callee.BlockIds() {
		blockMap[bbid] = fn.NewBlock()
	}
	remapLocal := func(l ir.LocalId) ir.LocalId {
		if l == ir.NoLocal {
			return ir.NoLocal
		}
		return localMap[l]
	}
	remapBlock := func(b ir.BasicBlockId) ir.BasicBlockId { return blockMap[b] }

	var returns []returnSite
	for _, bbid := range callee.BlockIds() {
		src := callee.Block(bbid)
		dst := fn.Block(blockMap[bbid])

		instrs := make([]ir.Instruction, len(src.Instrs))
		for i, in := range src.Instrs {
			instrs[i] = remapInstruction(in, remapLocal, remapBlock)
		}
		dst.Instrs = instrs

		switch src.Term.Kind {
		case ir.TermReturn:
			dst.Term = ir.Jump(contBB)
			returns = append(returns, returnSite{pred: blockMap[bbid], val: remapLocal(src.Term.Ret)})
		case ir.TermJump:
			dst.Term = ir.Jump(remapBlock(src.Term.Target))
		case ir.TermIf:
			dst.Term = ir.If(remapLocal(src.Term.Cond), remapBlock(src.Term.Then), remapBlock(src.Term.Else))
		}
	}

	entryDst := blockMap[callee.EntryBB]
	argMoves := make([]ir.Instruction, len(callee.Args))
	for i, argLocal := range callee.Args {
		argMoves[i] = ir.Instruction{Result: localMap[argLocal], Kind: ir.Move, Args: []ir.LocalId{call.Args[i]}}
	}
	fn.Block(entryDst).Instrs = append(argMoves, fn.Block(entryDst).Instrs...)
	block.Term = ir.Jump(entryDst)

	if call.Result != ir.NoLocal {
		switch len(returns) {
		case 0:
			// Callee body never reaches a Return (e.g. every path raises
			// Error); the result is unreachable and left for DCE to Nop.
		case 1:
			mv := ir.Instruction{Result: call.Result, Kind: ir.Move, Args: []ir.LocalId{returns[0].val}}
			fn.Block(contBB).Instrs = append([]ir.Instruction{mv}, fn.Block(contBB).Instrs...)
		default:
			phi := ir.NewPhi(call.Result)
			for _, r := range returns {
				phi.Incomings = append(phi.Incomings, ir.PhiIncoming{Pred: r.pred, Val: r.val})
			}
			fn.Block(contBB).AppendPhi(phi)
		}
	}

	return contBB
}

// remapInstruction clones in with every local/block reference routed
// through rl/rb; non-local payload fields (Global, Func, Module, constant
// values, Op/Cmp/ValT) are copied verbatim since they name session-wide
// or dense-per-module ids unaffected by inlining one function's body into
// another.
func remapInstruction(in ir.Instruction, rl func(ir.LocalId) ir.LocalId, rb func(ir.BasicBlockId) ir.BasicBlockId) ir.Instruction {
	out := in
	out.Result = rl(in.Result)
	if in.Args != nil {
		args := make([]ir.LocalId, len(in.Args))
		for i, a := range in.Args {
			args[i] = rl(a)
		}
		out.Args = args
	}
	if in.Incomings != nil {
		incs := make([]ir.PhiIncoming, len(in.Incomings))
		for i, inc := range in.Incomings {
			incs[i] = ir.PhiIncoming{Pred: rb(inc.Pred), Val: rl(inc.Val)}
		}
		out.Incomings = incs
	}
	return out
}
