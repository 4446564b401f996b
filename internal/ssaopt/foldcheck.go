package ssaopt

import "github.com/webschembly/wsc/internal/ir"

// FoldTypeChecks folds TypeIs to a constant bool, and FromObj to a Move
// from the known content local, wherever AnalyzeTypedObjs already proves
// the operand's concrete content (spec.md §4.7 "Type-check folding").
// Because TypedObj facts here are block-local by construction, the
// "val_type definition dominates the use within the block" precondition
// spec.md states is automatically satisfied: a fact is only recorded
// after its defining instruction has already been visited in the same
// single forward pass.
func FoldTypeChecks(block *ir.BasicBlock) {
	typed := AnalyzeTypedObjs(block)
	for i := range block.Instrs {
		instr := &block.Instrs[i]
		switch instr.Kind {
		case ir.TypeIs:
			if t, ok := typed[instr.Args[0]]; ok {
				instr.Kind = ir.ConstBool
				instr.Bool = t.ValType == instr.ValT
				instr.Args = nil
			}
		case ir.FromObj:
			if t, ok := typed[instr.Args[0]]; ok && t.ValType == instr.ValT {
				instr.Kind = ir.Move
				instr.Args = []ir.LocalId{t.Content}
			}
		}
	}
}
