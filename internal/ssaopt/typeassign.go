// Package ssaopt implements the SSA-level transformations of spec.md
// §4.7: type-argument assignment, typed-Obj analysis, type-check
// folding, copy propagation, dead-code elimination, phi elimination,
// constant-closure propagation, the CallClosure -> CallRef desugar, and
// inlining.
//
// Grounded on the teacher's internal/types/unification.go: its
// Substitution (map[string]Type) threaded through a fixed-point pass is
// the same shape this package's lattice passes use, specialized to
// locals-to-lattice-value maps instead of type-variable substitutions.
package ssaopt

import (
	"github.com/webschembly/wsc/internal/container"
	"github.com/webschembly/wsc/internal/ir"
)

// AssignTypeArguments rewrites bb so that each local named by paramLocals
// for a type parameter present in assignment is retyped Val(T), and every
// instruction/terminator/phi-incoming in the block that used the original
// Obj-typed local is redirected through a freshly inserted ToObj at block
// entry (spec.md §4.7 "Type-argument assignment"). It returns the map from
// each rewritten parametric local to its new Obj-form local, for the JIT
// splitter to thread into stub call sites.
func AssignTypeArguments(fn *ir.Function, bb ir.BasicBlockId, paramLocals *container.FxBiHashMap[ir.TypeParamId, ir.LocalId], assignment map[ir.TypeParamId]ir.ValType) map[ir.LocalId]ir.LocalId {
	block := fn.Block(bb)
	objForm := make(map[ir.LocalId]ir.LocalId, len(assignment))

	var toObjInstrs []ir.Instruction
	for paramID, vt := range assignment {
		localID, ok := paramLocals.Forward(paramID)
		if !ok {
			continue
		}
		fn.Locals.Set(localID, ir.PlainType(ir.Val(vt)))
		objLocal := fn.NewLocal(ir.PlainType(ir.Obj()))
		toObjInstrs = append(toObjInstrs, ir.Instruction{
			Result: objLocal, Kind: ir.ToObj, Args: []ir.LocalId{localID}, ValT: vt,
		})
		objForm[localID] = objLocal
	}
	if len(objForm) == 0 {
		return objForm
	}

	redirect := func(args []ir.LocalId) {
		for i, a := range args {
			if repl, ok := objForm[a]; ok {
				args[i] = repl
			}
		}
	}
	for i := range block.Instrs {
		redirect(block.Instrs[i].Args)
		for j := range block.Instrs[i].Incomings {
			if repl, ok := objForm[block.Instrs[i].Incomings[j].Val]; ok {
				block.Instrs[i].Incomings[j].Val = repl
			}
		}
	}
	redirectTerminator(&block.Term, func(id ir.LocalId) ir.LocalId {
		if r, ok := objForm[id]; ok {
			return r
		}
		return id
	})

	n := block.PhiCount()
	rest := append([]ir.Instruction(nil), block.Instrs[n:]...)
	block.Instrs = append(append(block.Instrs[:n:n], toObjInstrs...), rest...)

	return objForm
}

// redirectTerminator rewrites every local a terminator reads through swap,
// shared by every pass in this package that needs to rename locals
// block-wide (type-argument assignment, copy propagation, register reuse).
func redirectTerminator(t *ir.Terminator, swap func(ir.LocalId) ir.LocalId) {
	t.Cond = swap(t.Cond)
	t.Ret = swap(t.Ret)
	t.Closure = swap(t.Closure)
	t.Ref = swap(t.Ref)
	for i, a := range t.Args {
		t.Args[i] = swap(a)
	}
}
