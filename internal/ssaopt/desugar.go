package ssaopt

import (
	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/ir"
)

// entrypointFieldIndex is the closure-field index holding the callable
// function reference (spec.md §3 closure layout: "env slots + entrypoint
// table"). This pass's generic, non-constant-propagated fallback can only
// read a dynamic closure's entry through a convention fixed at every
// ClosureNew site, so it reads field 0 uniformly; a closure's remaining
// fields are its captured environment, in ClosureMeta.EnvLocals order.
const entrypointFieldIndex = 0

// DesugarCallClosures lowers every CallClosure instruction and
// TailCallClosure terminator to the concrete calling convention it
// resolves to (spec.md §4.7 "CallClosure -> CallRef desugar"): a
// CallClosure whose callee is constant-closure-propagated becomes a
// direct CallDirect; any other CallClosure, and every TailCallClosure,
// reads the callee's function reference off the closure object itself
// and becomes CallRef/TailCallRef. This must run
// after PropagateConstantClosures so vals reflects every resolvable
// closure operand.
func DesugarCallClosures(fn *ir.Function, cfg *cfganalysis.CFG, vals map[ir.LocalId]ccValue) {
	for _, bid := range cfg.RPO {
		block := fn.Block(bid)
		for i := range block.Instrs {
			instr := &block.Instrs[i]
			if instr.Kind != ir.CallClosure || len(instr.Args) == 0 {
				continue
			}
			closure, args := instr.Args[0], instr.Args[1:]
			if v := vals[closure]; v.State == ccConstant {
				instr.Kind = ir.CallDirect
				instr.Func = v.Func
				instr.Args = args
				continue
			}
			ref := fn.NewLocal(ir.FuncRefType())
			field := ir.Instruction{Result: ref, Kind: ir.ClosureField, Args: []ir.LocalId{closure}, Index: entrypointFieldIndex}
			newArgs := append([]ir.LocalId{ref}, args...)
			*instr = ir.Instruction{Result: instr.Result, Kind: ir.CallRef, Args: newArgs}
			block.Instrs = append(block.Instrs, ir.Instruction{})
			copy(block.Instrs[i+1:], block.Instrs[i:])
			block.Instrs[i] = field
		}

		if block.Term.Kind == ir.TermTailCallClosure {
			// The IR has no TailCallDirect terminator (spec.md §3 lists only
			// TailCallClosure/TailCallRef), so even a constant-propagated
			// tail callee is lowered through the same ClosureField read as
			// the dynamic case. Inline only splices CallDirect sites, so a
			// TailCallRef produced here is never inlined.
			closure, args := block.Term.Closure, block.Term.Args
			ref := fn.NewLocal(ir.FuncRefType())
			block.Instrs = append(block.Instrs, ir.Instruction{Result: ref, Kind: ir.ClosureField, Args: []ir.LocalId{closure}, Index: entrypointFieldIndex})
			block.Term = ir.TailCallRef(ref, args)
		}
	}
}
