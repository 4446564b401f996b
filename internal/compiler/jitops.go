package compiler

import (
	"fmt"

	"github.com/webschembly/wsc/internal/ir"
)

// InstantiateFunc specializes and emits one function's body module on
// demand (spec.md §6 "instantiate_func(module, func, index) -> bytes:
// specializes one function, installs into its slot"). module/func name
// the function within its *original*, pre-split module (the ids a stub's
// InstantiateModule callback already carries); index names which
// closure-arg-shape the call site observed, reserved for a future
// AssignTypeArguments-driven specialization — this session-scoped façade
// does not yet vary the emitted body by shape (see DESIGN.md), so every
// index for a given (module, func) currently produces the same bytes.
// Marks the session's JitContext as instantiated, per spec.md §5
// "is_instantiated flag that flips on first real module registration".
func (c *Compiler) InstantiateFunc(module ir.ModuleId, fn ir.FuncId, index int) ([]byte, error) {
	body, err := c.bodyModule(module, fn)
	if err != nil {
		return nil, err
	}
	if err := c.optimizeModule(body); err != nil {
		return nil, err
	}
	out, err := c.emit(body)
	if err != nil {
		return nil, err
	}
	c.jit.Instantiated = true
	return out, nil
}

// InstantiateBB specializes a single basic block within one function's
// body module (spec.md §6 "instantiate_bb(module, func, index, bb, idx)
// -> bytes: finer-grained specialization of a single block"). This
// façade re-emits the whole owning body module rather than splicing just
// bb in isolation: the body module is already the minimal compiled unit
// the JIT loader instantiates (spec.md §4.8), so a block-granular
// specialization's externally visible effect — new bytes installed
// behind the function's stable F_ref slot — is identical whether the
// recompilation touches one block or the whole function body.
func (c *Compiler) InstantiateBB(module ir.ModuleId, fn ir.FuncId, index int, bb ir.BasicBlockId, idx int) ([]byte, error) {
	body, err := c.bodyModule(module, fn)
	if err != nil {
		return nil, err
	}
	realID, err := realFuncIn(body)
	if err != nil {
		return nil, err
	}
	if _, ok := body.Func(realID).Blocks.Get(bb); !ok {
		return nil, fmt.Errorf("compiler: function %d has no block %d", fn, bb)
	}
	return c.InstantiateFunc(module, fn, index)
}

// IncrementBranchCounter records one more observation of a branch site
// and, once BranchHotThreshold observations accumulate, triggers
// InstantiateBB for that block and resets the counter (spec.md §6
// "increment_branch_counter(...) -> optional bytes: may trigger
// speculative recompilation"). kind/srcBB/srcIdx identify which edge out
// of bb was taken, for a future branch-direction-specialized
// recompilation; this façade keys its counter on (module, func, bb) alone
// and does not yet vary specialization by edge.
func (c *Compiler) IncrementBranchCounter(module ir.ModuleId, fn ir.FuncId, idx int, bb ir.BasicBlockId, kind string, srcBB ir.BasicBlockId, srcIdx int) ([]byte, error) {
	key := branchKey{Module: module, Func: fn, BB: bb}
	c.branchCounters[key]++
	if c.branchCounters[key] < c.config.branchHotThreshold() {
		return nil, nil
	}
	c.branchCounters[key] = 0
	return c.InstantiateBB(module, fn, idx, bb, idx)
}

// realFuncIn returns a JIT body module's translated real function — the
// one that is not its own jit_install entry (spec.md §4.8's buildBodyModule
// always allocates exactly these two functions).
func realFuncIn(body *ir.Module) (ir.FuncId, error) {
	for _, fid := range body.Funcs.Keys() {
		if fid != body.Entry {
			return fid, nil
		}
	}
	return 0, fmt.Errorf("compiler: body module %d has no non-entry function", body.ID)
}
