package ssaopt

import (
	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/ir"
)

// ccState is the three-point lattice of spec.md §4.7 "Constant-closure
// propagation": Top (unconstrained, the initial state), Constant (proven
// to always hold the closure created at one particular ClosureNew site),
// Bottom (unknown / merges more than one site).
type ccState int

const (
	ccTop ccState = iota
	ccConstant
	ccBottom
)

// ccValue is one lattice element. Site is the LocalId of the ClosureNew
// instruction that produced the value when State == ccConstant — a
// closure's defining instruction is a unique identifier for "this one
// allocation point" since the IR is SSA, standing in for the "env_index"
// spec.md mentions without pinning down a concrete representation.
type ccValue struct {
	State ccState
	Func  ir.FuncId
	Site  ir.LocalId
}

func ccMeet(a, b ccValue) ccValue {
	if a.State == ccTop {
		return b
	}
	if b.State == ccTop {
		return a
	}
	if a.State == ccBottom || b.State == ccBottom {
		return ccValue{State: ccBottom}
	}
	if a.Func == b.Func && a.Site == b.Site {
		return a
	}
	return ccValue{State: ccBottom}
}

// PropagateConstantClosures runs the lattice fixed point over fn in RPO
// (spec.md §4.7): ClosureNew yields a fresh Constant, Move copies its
// operand's value, and Phi takes the meet of its incomings (a phi that
// does not have one incoming per predecessor — "non_exhaustive" — is
// forced to Bottom, since some predecessor's contribution is unknown to
// this pass). Any other instruction defining a result starts that result
// at Bottom: nothing else in this IR creates or exactly preserves a
// closure identity, so it's never safe to infer Constant through it.
func PropagateConstantClosures(fn *ir.Function, cfg *cfganalysis.CFG) map[ir.LocalId]ccValue {
	vals := make(map[ir.LocalId]ccValue)
	get := func(id ir.LocalId) ccValue {
		if v, ok := vals[id]; ok {
			return v
		}
		return ccValue{State: ccTop}
	}

	for changed := true; changed; {
		changed = false
		for _, bid := range cfg.RPO {
			block := fn.Block(bid)
			for _, instr := range block.Instrs {
				if instr.Result == ir.NoLocal {
					continue
				}
				var next ccValue
				switch instr.Kind {
				case ir.ClosureNew:
					next = ccValue{State: ccConstant, Func: instr.Func, Site: instr.Result}
				case ir.Move:
					next = get(instr.Args[0])
				case ir.Phi:
					if len(instr.Incomings) < len(cfg.Preds[bid]) {
						next = ccValue{State: ccBottom}
						break
					}
					next = ccValue{State: ccTop}
					for _, inc := range instr.Incomings {
						next = ccMeet(next, get(inc.Val))
					}
				default:
					next = ccValue{State: ccBottom}
				}
				if cur := get(instr.Result); cur != next {
					vals[instr.Result] = next
					changed = true
				}
			}
		}
	}
	return vals
}

// RefineCallClosures annotates every CallClosure instruction whose closure
// operand resolved to a Constant with the statically known callee FuncId,
// repurposing the otherwise-unused Func field (spec.md §4.7: "refine
// Closure(None) to Closure(Some(constant)), enabling the inliner"). Tail
// calls (TailCallClosure terminators) are resolved the same way directly
// by the CallClosure -> CallRef Desugar pass, which takes vals as an
// input rather than relying on a field Terminator has no room for.
func RefineCallClosures(fn *ir.Function, cfg *cfganalysis.CFG, vals map[ir.LocalId]ccValue) {
	for _, bid := range cfg.RPO {
		block := fn.Block(bid)
		for i := range block.Instrs {
			instr := &block.Instrs[i]
			if instr.Kind != ir.CallClosure || len(instr.Args) == 0 {
				continue
			}
			if v := vals[instr.Args[0]]; v.State == ccConstant {
				instr.Func = v.Func
			}
		}
	}
}
