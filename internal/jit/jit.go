// Package jit implements the module-splitting and stub-generation
// transformation of spec.md §4.8: given a whole compiled module, produce
// a family of smaller modules — one "entry stub" module holding a stub
// per function, and one "body" module per function holding its real
// translated implementation — that together realize the same behavior
// but let the host loader instantiate each function's real code lazily.
//
// Grounded on the teacher's internal/link package: ModuleLinker's
// per-module interface table (ifaces map[string]*iface.Iface) is the
// same "session holds one resolvable slot per cross-unit reference"
// shape JitContext.StubGlobals generalizes to WebAssembly global slots,
// and Loader's identity/cache discipline (module.go's cache map plus
// cycle-safe load stack) is the shape ModuleIDAllocator borrows for
// handing out one fresh, stable identity per split unit.
package jit

import (
	"fmt"

	"github.com/webschembly/wsc/internal/ast"
	"github.com/webschembly/wsc/internal/container"
	"github.com/webschembly/wsc/internal/ir"
)

// StubKey names one function's F_ref slot within the originating
// session: the module that declared it plus its FuncId within that
// module (spec.md §6 "function naming by dense FuncId within the
// module" — FuncId alone is not session-unique, so JitContext keys on
// the pair).
type StubKey struct {
	Module ir.ModuleId
	Func   ir.FuncId
}

// JitContext is the session-scoped state spec.md §5 assigns to the JIT
// machinery: "the closure-arg-shape layout table, stub globals table,
// and an is_instantiated flag that flips on first real module
// registration". The closure-arg-shape layout table belongs to the
// generator's entrypoint-table construction (internal/ir/gen.go) rather
// than this package; what Split needs and owns here is the stub-globals
// table and the instantiation flag.
type JitContext struct {
	StubGlobals  *container.FxBiHashMap[StubKey, ir.GlobalId]
	Instantiated bool
}

// NewJitContext constructs an empty context, meant to be held for the
// lifetime of a Compiler session and threaded into every Split call.
func NewJitContext() *JitContext {
	return &JitContext{StubGlobals: container.NewFxBiHashMap[StubKey, ir.GlobalId]()}
}

// ModuleIDAllocator hands out fresh, session-wide ModuleIds for the body
// modules Split synthesizes — one per original function, in addition to
// whatever ModuleIds the Compiler already assigns to top-level
// compile_module calls.
type ModuleIDAllocator struct {
	next ir.ModuleId
}

// NewModuleIDAllocator constructs an allocator starting at start.
func NewModuleIDAllocator(start ir.ModuleId) *ModuleIDAllocator {
	return &ModuleIDAllocator{next: start}
}

// Next returns a fresh ModuleId.
func (a *ModuleIDAllocator) Next() ir.ModuleId {
	id := a.next
	a.next++
	return id
}

// Result is the family of modules Split produces from one source module.
type Result struct {
	EntryStub *ir.Module
	// Bodies maps each original FuncId to its one-real-function body
	// module.
	Bodies map[ir.FuncId]*ir.Module
	// BodyModuleID maps each original FuncId to its body module's
	// ModuleId, the value an InstantiateModule instruction names.
	BodyModuleID map[ir.FuncId]ir.ModuleId
}

// Split performs spec.md §4.8's JIT module splitting over mod. varGen
// allocates the session-wide GlobalIds for each function's F_ref slot
// (reusing ast.VarIdGen.GlobalFor's by-name interning under a name built
// from the module id and FuncId, so repeated Split calls on the same
// module converge on the same slot; functions of different modules never
// share one); gm records each slot's declared type and
// exporter; jc remembers which slot belongs to which (module, func) pair
// across calls; modIDs allocates one fresh ModuleId per body module.
func Split(mod *ir.Module, varGen *ast.VarIdGen, gm *ir.GlobalManager, jc *JitContext, modIDs *ModuleIDAllocator) *Result {
	refOf := make(map[ir.FuncId]ir.GlobalId, mod.Funcs.Len())
	for _, fid := range mod.Funcs.Keys() {
		refOf[fid] = stubGlobalFor(mod, fid, varGen, gm, jc)
	}

	bodyModIDs := make(map[ir.FuncId]ir.ModuleId, mod.Funcs.Len())
	for _, fid := range mod.Funcs.Keys() {
		bodyModIDs[fid] = modIDs.Next()
	}

	entryStub := buildEntryStub(mod, refOf, bodyModIDs, gm)

	bodies := make(map[ir.FuncId]*ir.Module, mod.Funcs.Len())
	for _, fid := range mod.Funcs.Keys() {
		bodies[fid] = buildBodyModule(mod, fid, bodyModIDs[fid], refOf)
	}

	return &Result{EntryStub: entryStub, Bodies: bodies, BodyModuleID: bodyModIDs}
}

// stubGlobalFor returns fid's F_ref slot, allocating it on first sight
// and remembering the association in jc so a later Split call (e.g. the
// next module in a session that calls back into this one) reuses the
// same slot rather than aliasing a fresh one.
func stubGlobalFor(mod *ir.Module, fid ir.FuncId, varGen *ast.VarIdGen, gm *ir.GlobalManager, jc *JitContext) ir.GlobalId {
	key := StubKey{Module: mod.ID, Func: fid}
	if gid, ok := jc.StubGlobals.Forward(key); ok {
		return gid
	}
	name := fmt.Sprintf("$jit-stub-ref$%d$%d", mod.ID, fid)
	gid := ir.GlobalId(varGen.GlobalFor(name))
	gm.Declare(gid, ir.FuncRefType())
	jc.StubGlobals.Insert(key, gid)
	return gid
}
