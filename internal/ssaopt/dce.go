package ssaopt

import (
	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/ir"
)

// DCE performs dead-code elimination over every reachable block of fn
// (spec.md §4.7 "Dead-code elimination"): starting from the set of locals
// live on block exit (terminator uses, plus whatever cfganalysis's
// liveness computed as externally live-out, including phi-incoming
// attribution), it walks each block in reverse marking defs of live
// locals live and their uses live; side-effectful instructions are
// unconditionally live. Dead instructions become Nop rather than being
// removed, so LocalId/BasicBlockId numbering stays stable for any pass
// that ran before this one.
func DCE(fn *ir.Function, cfg *cfganalysis.CFG, live *cfganalysis.Liveness) {
	for _, bid := range cfg.RPO {
		block := fn.Block(bid)

		liveSet := make(map[ir.LocalId]bool, len(live.LiveOut[bid]))
		for x := range live.LiveOut[bid] {
			liveSet[x] = true
		}
		for _, u := range block.Term.Uses() {
			liveSet[u] = true
		}

		for i := len(block.Instrs) - 1; i >= 0; i-- {
			instr := &block.Instrs[i]
			isLive := instr.HasSideEffect()
			if instr.Result != ir.NoLocal && liveSet[instr.Result] {
				isLive = true
			}
			if !isLive {
				*instr = ir.Instruction{Kind: ir.Nop, Result: ir.NoLocal}
				continue
			}
			if !instr.IsPhi() {
				for _, u := range instr.Uses() {
					liveSet[u] = true
				}
			}
			// A live phi's incoming uses are attributed to their naming
			// predecessor's own live-out set (already folded into this
			// block's liveSet via ComputeLiveness), not marked here.
		}
	}
}
