package cfganalysis

import "github.com/webschembly/wsc/internal/ir"

// BlockDefUse is a block's def/use set for liveness (spec.md §4.6).
type BlockDefUse struct {
	Defs map[ir.LocalId]bool
	Uses map[ir.LocalId]bool
}

// DefUse computes, for every reachable block of fn, the locals it defines
// and the locals it reads before any local def in the block (spec.md §4.6
// "Def/use per block"). Phi incomings are attributed to the *predecessor*
// named by the incoming, not to the block containing the phi — handled by
// phiUsesByPred, not by this per-block pass, since a phi incoming is a use
// in the predecessor's exit context, not the phi's own block.
func DefUse(fn *ir.Function, c *CFG) map[ir.BasicBlockId]*BlockDefUse {
	out := make(map[ir.BasicBlockId]*BlockDefUse, len(c.RPO))
	for _, id := range c.RPO {
		bb := fn.Block(id)
		du := &BlockDefUse{Defs: map[ir.LocalId]bool{}, Uses: map[ir.LocalId]bool{}}
		for _, instr := range bb.Instrs {
			if instr.IsPhi() {
				// A phi's own result is a def of this block; its incomings
				// are uses of the naming predecessor, not of this block.
				if instr.Result != ir.NoLocal {
					du.Defs[instr.Result] = true
				}
				continue
			}
			for _, use := range instr.Uses() {
				if !du.Defs[use] {
					du.Uses[use] = true
				}
			}
			if instr.Result != ir.NoLocal {
				du.Defs[instr.Result] = true
			}
		}
		for _, use := range bb.Term.Uses() {
			if !du.Defs[use] {
				du.Uses[use] = true
			}
		}
		out[id] = du
	}
	return out
}

// phiUsesByPred maps, for each block containing phis, each predecessor to
// the set of locals that predecessor's incoming names (spec.md §4.6: these
// count as live-out of the predecessor, not as a use inside the phi's own
// block).
func phiUsesByPred(fn *ir.Function, c *CFG) map[ir.BasicBlockId]map[ir.BasicBlockId][]ir.LocalId {
	out := make(map[ir.BasicBlockId]map[ir.BasicBlockId][]ir.LocalId)
	for _, id := range c.RPO {
		bb := fn.Block(id)
		for _, phi := range bb.Phis() {
			for _, inc := range phi.Incomings {
				if out[id] == nil {
					out[id] = make(map[ir.BasicBlockId][]ir.LocalId)
				}
				out[id][inc.Pred] = append(out[id][inc.Pred], inc.Val)
			}
		}
	}
	return out
}

// Liveness holds the live-in/live-out sets of every reachable block.
type Liveness struct {
	LiveIn  map[ir.BasicBlockId]map[ir.LocalId]bool
	LiveOut map[ir.BasicBlockId]map[ir.LocalId]bool
}

// ComputeLiveness runs the backward dataflow fixed point specified in
// spec.md §4.6:
//
//	live_in[b]  = uses[b] ∪ (live_out[b] \ defs[b])
//	live_out[b] = ⋃ live_in[s] for each successor s, plus, for each phi in
//	              s whose incoming from b names local x, the local x.
//
// Convergence runs in reverse-RPO order, matching the backward direction
// of the dataflow.
func ComputeLiveness(fn *ir.Function, c *CFG) *Liveness {
	defUse := DefUse(fn, c)
	phiPred := phiUsesByPred(fn, c)

	live := &Liveness{
		LiveIn:  make(map[ir.BasicBlockId]map[ir.LocalId]bool, len(c.RPO)),
		LiveOut: make(map[ir.BasicBlockId]map[ir.LocalId]bool, len(c.RPO)),
	}
	for _, id := range c.RPO {
		live.LiveIn[id] = map[ir.LocalId]bool{}
		live.LiveOut[id] = map[ir.LocalId]bool{}
	}

	reverseRPO := make([]ir.BasicBlockId, len(c.RPO))
	for i, id := range c.RPO {
		reverseRPO[len(c.RPO)-1-i] = id
	}

	for changed := true; changed; {
		changed = false
		for _, b := range reverseRPO {
			out := map[ir.LocalId]bool{}
			for _, s := range fn.Successors(b) {
				if !c.Reachable[s] {
					continue
				}
				for x := range live.LiveIn[s] {
					out[x] = true
				}
				for _, x := range phiPred[s][b] {
					out[x] = true
				}
			}

			in := map[ir.LocalId]bool{}
			du := defUse[b]
			for x := range du.Uses {
				in[x] = true
			}
			for x := range out {
				if !du.Defs[x] {
					in[x] = true
				}
			}

			if !setEqualLocal(in, live.LiveIn[b]) || !setEqualLocal(out, live.LiveOut[b]) {
				live.LiveIn[b] = in
				live.LiveOut[b] = out
				changed = true
			}
		}
	}
	return live
}

func setEqualLocal(a, b map[ir.LocalId]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
