package ssaopt

import (
	"fmt"

	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/ir"
	"github.com/webschembly/wsc/internal/wserrors"
)

type copyPair struct {
	dst, src ir.LocalId
}

// PhiElimination lowers every phi in fn to parallel-copy moves appended to
// each predecessor, then deletes the phis (spec.md §4.7 "Phi
// elimination"). Its precondition is that fn has no critical edges; it
// reports an IR003 error rather than silently producing wrong code if a
// phi-bearing block has a critical-edge predecessor.
func PhiElimination(fn *ir.Function, cfg *cfganalysis.CFG) error {
	critical := make(map[cfganalysis.Edge]bool)
	for _, e := range cfg.CriticalEdges() {
		critical[e] = true
	}

	for _, bid := range cfg.RPO {
		block := fn.Block(bid)
		n := block.PhiCount()
		if n == 0 {
			continue
		}
		phis := append([]ir.Instruction(nil), block.Instrs[:n]...)

		predPairs := make(map[ir.BasicBlockId][]copyPair)
		for _, phi := range phis {
			for _, inc := range phi.Incomings {
				if critical[cfganalysis.Edge{From: inc.Pred, To: bid}] {
					return wserrors.New("ssaopt", wserrors.IR003,
						fmt.Sprintf("phi elimination precondition violated: critical edge %v->%v feeds a phi in block %v", inc.Pred, bid, bid), nil)
				}
				if inc.Val == phi.Result {
					continue
				}
				predPairs[inc.Pred] = append(predPairs[inc.Pred], copyPair{dst: phi.Result, src: inc.Val})
			}
		}

		for pred, pairs := range predPairs {
			moves := sequentializeParallelCopy(fn, pairs)
			predBlock := fn.Block(pred)
			for _, mv := range moves {
				predBlock.Instrs = append(predBlock.Instrs, ir.Instruction{Result: mv.dst, Kind: ir.Move, Args: []ir.LocalId{mv.src}})
			}
		}

		block.Instrs = block.Instrs[n:]
	}
	return nil
}

// sequentializeParallelCopy turns a set of simultaneous dst:=src copies
// (spec.md §4.7: "build the dependency graph, emit safe copies first,
// break cycles by introducing one fresh temporary") into a safe sequence
// of ordinary Moves. Because phi results are each assigned by at most one
// phi per block, the dst->src relation here is a partial function, so
// each component of the dependency graph is a tree of copies (several
// dsts may share one src), possibly hanging off one simple cycle.
func sequentializeParallelCopy(fn *ir.Function, pairs []copyPair) []copyPair {
	srcOf := make(map[ir.LocalId]ir.LocalId, len(pairs))
	order := make([]ir.LocalId, 0, len(pairs))
	usedAsSrc := make(map[ir.LocalId]int)
	for _, p := range pairs {
		srcOf[p.dst] = p.src
		order = append(order, p.dst)
		usedAsSrc[p.src]++
	}

	var out []copyPair
	done := make(map[ir.LocalId]bool)

	ready := make([]ir.LocalId, 0, len(order))
	for _, d := range order {
		if usedAsSrc[d] == 0 {
			ready = append(ready, d)
		}
	}
	for len(ready) > 0 {
		d := ready[len(ready)-1]
		ready = ready[:len(ready)-1]
		if done[d] {
			continue
		}
		s := srcOf[d]
		out = append(out, copyPair{dst: d, src: s})
		done[d] = true
		usedAsSrc[s]--
		if usedAsSrc[s] == 0 {
			if _, isDst := srcOf[s]; isDst && !done[s] {
				ready = append(ready, s)
			}
		}
	}

	visited := make(map[ir.LocalId]bool)
	for _, d := range order {
		if done[d] || visited[d] {
			continue
		}
		var cycle []ir.LocalId
		cur := d
		for !visited[cur] {
			visited[cur] = true
			cycle = append(cycle, cur)
			cur = srcOf[cur]
		}
		if len(cycle) == 1 {
			done[cycle[0]] = true
			continue
		}
		temp := fn.NewLocal(fn.LocalType(cycle[0]))
		out = append(out, copyPair{dst: temp, src: cycle[0]})
		for i := 0; i < len(cycle)-1; i++ {
			out = append(out, copyPair{dst: cycle[i], src: cycle[i+1]})
			done[cycle[i]] = true
		}
		out = append(out, copyPair{dst: cycle[len(cycle)-1], src: temp})
		done[cycle[len(cycle)-1]] = true
	}
	return out
}
