package ir

import "github.com/webschembly/wsc/internal/container"

// ClosureMeta is present on a Function compiled from a source Lambda
// (spec.md §3 "Function... optional closure metadata"): the shapes of its
// environment slots, in the order the IR generator packed them into the
// closure object, and the entrypoint-table arities it supports.
type ClosureMeta struct {
	// EnvLocals lists, in packing order, the function's own LocalId for
	// each captured environment slot (a CellNew-typed local when the
	// captured source variable is also mutated, a plain local otherwise).
	EnvLocals []LocalId
	// Arities lists the supported call shapes this closure's entrypoint
	// table dispatches on (fixed-arity entries, plus a variadic entry
	// when the source lambda takes a rest parameter).
	Arities []int
}

// Function is one compiled lambda or the module's synthesized entry
// function (spec.md §3 "Function").
type Function struct {
	ID       FuncId
	Name     string // not set by NewFunction or Module.NewFunc; names are kept in Module.FuncNames
	Locals   *container.VecMap[LocalId, LocalType]
	Args     []LocalId // positional arguments, indices into Locals
	RetType  Type
	EntryBB  BasicBlockId
	Blocks   *container.VecMap[BasicBlockId, *BasicBlock]
	Closure  *ClosureMeta // nil for non-closure (e.g. the module entry) functions
}

// NewFunction allocates an empty function with a fresh local table and
// block map, ready for the IR generator to fill in.
func NewFunction(id FuncId, retType Type) *Function {
	return &Function{
		ID:      id,
		Locals:  container.NewVecMap[LocalId, LocalType](),
		Blocks:  container.NewVecMap[BasicBlockId, *BasicBlock](),
		RetType: retType,
	}
}

// NewLocal allocates a fresh local of the given type and returns its id.
func (f *Function) NewLocal(lt LocalType) LocalId {
	return f.Locals.PushWith(func(LocalId) LocalType { return lt })
}

// NewBlock allocates a fresh empty basic block and returns its id.
func (f *Function) NewBlock() BasicBlockId {
	return f.Blocks.PushWith(func(id BasicBlockId) *BasicBlock { return NewBasicBlock(id) })
}

// Block returns the block for id, panicking if it does not exist (callers
// within a single function's own well-formed CFG already know the id is
// valid).
func (f *Function) Block(id BasicBlockId) *BasicBlock {
	return f.Blocks.MustGet(id)
}

// BlockIds returns every live block id in insertion order.
func (f *Function) BlockIds() []BasicBlockId {
	return f.Blocks.Keys()
}

// LocalType returns the declared type of local id.
func (f *Function) LocalType(id LocalId) LocalType {
	return f.Locals.MustGet(id)
}

// Successors returns id's block's successor ids.
func (f *Function) Successors(id BasicBlockId) []BasicBlockId {
	return f.Block(id).Term.Successors()
}
