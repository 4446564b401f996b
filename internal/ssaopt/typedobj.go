package ssaopt

import "github.com/webschembly/wsc/internal/ir"

// TypedObj records what a block-local Obj value is known to concretely
// hold: its ValType and the local carrying the unboxed content (spec.md
// §4.7 "Typed-Obj analysis").
type TypedObj struct {
	ValType ir.ValType
	Content ir.LocalId
}

// AnalyzeTypedObjs collects, for a single block, every local known to be
// an Obj wrapping a statically-known concrete value by inspecting its
// ToObj/FromObj/Move instructions, and propagates the relation backward
// through a chain of Moves as long as each def inside the block is itself
// a Move (spec.md §4.7). Only facts derivable from this block alone are
// returned; a local defined in a different block is never present even if
// used here, since the pass is intentionally block-local.
func AnalyzeTypedObjs(block *ir.BasicBlock) map[ir.LocalId]TypedObj {
	typed := make(map[ir.LocalId]TypedObj)
	for _, instr := range block.Instrs {
		switch instr.Kind {
		case ir.ToObj:
			typed[instr.Result] = TypedObj{ValType: instr.ValT, Content: instr.Args[0]}
		case ir.FromObj:
			// c = from-obj<T>(b): if b is itself known typed T, c's content
			// is the same underlying local.
			if t, ok := typed[instr.Args[0]]; ok && t.ValType == instr.ValT {
				typed[instr.Result] = TypedObj{ValType: t.ValType, Content: t.Content}
			}
		case ir.Move:
			if t, ok := typed[instr.Args[0]]; ok {
				typed[instr.Result] = t
			}
		}
	}
	return typed
}
