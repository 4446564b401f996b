package jit

import "github.com/webschembly/wsc/internal/ir"

// cloneFunctionInto copies src's locals, blocks, instructions, and
// terminators into dst (already allocated empty in its own module) with
// every LocalId/BasicBlockId renumbered through dst's own fresh id
// space. Func/Global/Module fields on cloned instructions are left
// verbatim; redirectCrossModuleRefs resolves the Func fields of
// CallDirect/ClosureNew afterward, since doing so requires knowing dst's
// own new FuncId (for the self-recursive case) which isn't assigned until
// after this copy completes. Global and Module fields stay as they are.
func cloneFunctionInto(dst *ir.Function, src *ir.Function) {
	localMap := make(map[ir.LocalId]ir.LocalId, src.Locals.Len())
	for _, lid := range src.Locals.Keys() {
		localMap[lid] = dst.NewLocal(src.LocalType(lid))
	}
	for _, a := range src.Args {
		dst.Args = append(dst.Args, localMap[a])
	}

	blockMap := make(map[ir.BasicBlockId]ir.BasicBlockId, src.Blocks.Len())
	for _, bid := range src.BlockIds() {
		blockMap[bid] = dst.NewBlock()
	}
	dst.EntryBB = blockMap[src.EntryBB]

	if src.Closure != nil {
		env := make([]ir.LocalId, len(src.Closure.EnvLocals))
		for i, l := range src.Closure.EnvLocals {
			env[i] = localMap[l]
		}
		dst.Closure = &ir.ClosureMeta{EnvLocals: env, Arities: append([]int(nil), src.Closure.Arities...)}
	}

	rl := func(l ir.LocalId) ir.LocalId {
		if l == ir.NoLocal {
			return ir.NoLocal
		}
		return localMap[l]
	}
	rb := func(b ir.BasicBlockId) ir.BasicBlockId { return blockMap[b] }

	for _, bid := range src.BlockIds() {
		srcB := src.Block(bid)
		dstB := dst.Block(blockMap[bid])
		instrs := make([]ir.Instruction, len(srcB.Instrs))
		for i, in := range srcB.Instrs {
			instrs[i] = remapInstruction(in, rl, rb)
		}
		dstB.Instrs = instrs
		dstB.Term = remapTerminator(srcB.Term, rl, rb)
	}
}

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

func remapTerminator(t ir.Terminator, rl func(ir.LocalId) ir.LocalId, rb func(ir.BasicBlockId) ir.BasicBlockId) ir.Terminator {
	switch t.Kind {
	case ir.TermJump:
		return ir.Jump(rb(t.Target))
	case ir.TermIf:
		return ir.If(rl(t.Cond), rb(t.Then), rb(t.Else))
	case ir.TermReturn:
		return ir.Return(rl(t.Ret))
	case ir.TermTailCallClosure:
		args := make([]ir.LocalId, len(t.Args))
		for i, a := range t.Args {
			args[i] = rl(a)
		}
		return ir.TailCallClosure(rl(t.Closure), args)
	case ir.TermTailCallRef:
		args := make([]ir.LocalId, len(t.Args))
		for i, a := range t.Args {
			args[i] = rl(a)
		}
		return ir.TailCallRef(rl(t.Ref), args)
	default:
		return t
	}
}

// redirectCrossModuleRefs rewrites every CallDirect/ClosureNew in real
// (already a renumbered clone of the original function selfOrig
// identified within mod's own FuncId space) so that a reference to
// selfOrig itself becomes the recursive reference to real's own new
// FuncId selfNew, and a reference to any other original function is
// translated to read that function's F_ref slot and call or close over
// it dynamically (spec.md §4.8 "translates every FuncRef(G) to
// Unbox(GlobalGet(G_ref)) and every direct Call(G,…) to CallRef"). This
// package's FuncRefType globals are already unboxed function references,
// so the explicit Unbox spec.md calls for has no separate instruction
// here — the simplification is deliberate and documented once, here.
func redirectCrossModuleRefs(body *ir.Module, real *ir.Function, selfOrig, selfNew ir.FuncId, refOf map[ir.FuncId]ir.GlobalId) {
	for _, bid := range real.BlockIds() {
		block := real.Block(bid)
		out := make([]ir.Instruction, 0, len(block.Instrs))
		for _, in := range block.Instrs {
			switch in.Kind {
			case ir.CallDirect:
				if in.Func == selfOrig {
					in.Func = selfNew
					out = append(out, in)
					continue
				}
				gid := refOf[in.Func]
				body.DeclareGlobal(gid, ir.FuncRefType())
				ref := real.NewLocal(ir.FuncRefType())
				out = append(out, ir.Instruction{Result: ref, Kind: ir.GlobalGet, Global: gid})
				out = append(out, ir.Instruction{Result: in.Result, Kind: ir.CallRef, Args: append([]ir.LocalId{ref}, in.Args...)})
			case ir.ClosureNew:
				if in.Func == selfOrig {
					in.Func = selfNew
					out = append(out, in)
					continue
				}
				gid := refOf[in.Func]
				body.DeclareGlobal(gid, ir.FuncRefType())
				ref := real.NewLocal(ir.FuncRefType())
				out = append(out, ir.Instruction{Result: ref, Kind: ir.GlobalGet, Global: gid})
				out = append(out, ir.Instruction{Result: in.Result, Kind: ir.ClosureNewDynamic, Args: append([]ir.LocalId{ref}, in.Args...), Index: in.Index})
			default:
				out = append(out, in)
			}
		}
		block.Instrs = out
	}
}
