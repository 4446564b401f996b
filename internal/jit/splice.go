package jit

import "github.com/webschembly/wsc/internal/ir"

// buildEntryStub constructs the module spec.md §4.8 describes: one stub
// function per function of mod, plus a module entry that runs
// InitModule, installs every stub's FuncRef into its F_ref slot, and
// tail-calls the stub standing in for mod's own entry.
func buildEntryStub(mod *ir.Module, refOf map[ir.FuncId]ir.GlobalId, bodyModIDs map[ir.FuncId]ir.ModuleId, gm *ir.GlobalManager) *ir.Module {
	stub := ir.NewModule(mod.ID)
	stubFuncOf := make(map[ir.FuncId]ir.FuncId, mod.Funcs.Len())

	for _, fid := range mod.Funcs.Keys() {
		orig := mod.Func(fid)
		stubFuncOf[fid] = stub.NewFunc(orig.RetType, stubName(mod.FuncNames[fid]))
	}
	for _, fid := range mod.Funcs.Keys() {
		buildStubFunc(stub, stub.Func(stubFuncOf[fid]), mod.Func(fid), refOf[fid], bodyModIDs[fid])
	}

	entryID := stub.NewFunc(ir.Val(ir.ValNil), "jit_init")
	stub.Entry = entryID
	entry := stub.Func(entryID)
	bb := entry.NewBlock()
	entry.EntryBB = bb
	block := entry.Block(bb)
	block.Append(ir.Instruction{Result: ir.NoLocal, Kind: ir.InitModule})

	for _, fid := range mod.Funcs.Keys() {
		gid := refOf[fid]
		stub.DeclareGlobal(gid, ir.FuncRefType())
		gm.DefineIn(gid, stub.ID)
		ref := entry.NewLocal(ir.FuncRefType())
		block.Append(ir.Instruction{Result: ref, Kind: ir.ConstFuncRef, Func: stubFuncOf[fid]})
		block.Append(ir.Instruction{Result: ir.NoLocal, Kind: ir.GlobalSet, Global: gid, Args: []ir.LocalId{ref}})
	}

	entryRef := entry.NewLocal(ir.FuncRefType())
	block.Append(ir.Instruction{Result: entryRef, Kind: ir.ConstFuncRef, Func: stubFuncOf[mod.Entry]})
	block.Term = ir.TailCallRef(entryRef, nil)

	return stub
}

func stubName(name string) string {
	if name == "" {
		return "jit_stub"
	}
	return "jit_stub_" + name
}

// buildStubFunc fills in fn (already allocated in stub, with id matching
// the slot buildEntryStub reserved for it) with the dispatch spec.md
// §4.8 specifies: compare F_ref to the stub's own reference; if still
// self-referential, trigger instantiation of the function's body module
// (which side-effects F_ref); reread F_ref and tail-call through it. orig
// supplies the parameter shape the stub must mirror so its ABI matches
// the real function it stands in for.
func buildStubFunc(stub *ir.Module, fn *ir.Function, orig *ir.Function, ref ir.GlobalId, bodyModID ir.ModuleId) {
	args := make([]ir.LocalId, len(orig.Args))
	for i, a := range orig.Args {
		args[i] = fn.NewLocal(orig.LocalType(a))
	}
	fn.Args = args

	checkBB := fn.NewBlock()
	fn.EntryBB = checkBB
	instBB := fn.NewBlock()
	afterBB := fn.NewBlock()

	check := fn.Block(checkBB)
	selfRef := fn.NewLocal(ir.FuncRefType())
	check.Append(ir.Instruction{Result: selfRef, Kind: ir.ConstFuncRef, Func: fn.ID})
	cur := fn.NewLocal(ir.FuncRefType())
	check.Append(ir.Instruction{Result: cur, Kind: ir.GlobalGet, Global: ref})
	eq := fn.NewLocal(ir.PlainType(ir.Val(ir.ValBool)))
	check.Append(ir.Instruction{Result: eq, Kind: ir.Compare, Cmp: ir.CmpEq, Args: []ir.LocalId{cur, selfRef}})
	check.Term = ir.If(eq, instBB, afterBB)

	inst := fn.Block(instBB)
	inst.Append(ir.Instruction{Result: ir.NoLocal, Kind: ir.InstantiateModule, Module: bodyModID})
	inst.Term = ir.Jump(afterBB)

	after := fn.Block(afterBB)
	ref2 := fn.NewLocal(ir.FuncRefType())
	after.Append(ir.Instruction{Result: ref2, Kind: ir.GlobalGet, Global: ref})
	after.Term = ir.TailCallRef(ref2, args)

	stub.DeclareGlobal(ref, ir.FuncRefType())
}

// buildBodyModule constructs the one-real-function module spec.md §4.8
// describes for the original function fid: its entry installs the
// translated function's FuncRef into F_ref (so a waiting stub's re-read
// observes it); the translated function itself routes every other
// original function it calls or closes over through that function's own
// F_ref slot, since that callee now lives in a separate body module and
// is no longer reachable by a same-module CallDirect/ClosureNew.
func buildBodyModule(mod *ir.Module, fid ir.FuncId, modID ir.ModuleId, refOf map[ir.FuncId]ir.GlobalId) *ir.Module {
	body := ir.NewModule(modID)
	orig := mod.Func(fid)
	name := mod.FuncNames[fid]

	realID := body.NewFunc(orig.RetType, name)
	real := body.Func(realID)
	cloneFunctionInto(real, orig)
	redirectCrossModuleRefs(body, real, fid, realID, refOf)

	entryID := body.NewFunc(ir.Val(ir.ValNil), "jit_install_"+name)
	body.Entry = entryID
	entry := body.Func(entryID)
	bb := entry.NewBlock()
	entry.EntryBB = bb
	block := entry.Block(bb)
	block.Append(ir.Instruction{Result: ir.NoLocal, Kind: ir.InitModule})
	ref := entry.NewLocal(ir.FuncRefType())
	block.Append(ir.Instruction{Result: ref, Kind: ir.ConstFuncRef, Func: realID})
	body.DeclareGlobal(refOf[fid], ir.FuncRefType())
	block.Append(ir.Instruction{Result: ir.NoLocal, Kind: ir.GlobalSet, Global: refOf[fid], Args: []ir.LocalId{ref}})
	block.Term = ir.Return(ir.NoLocal)

	return body
}
