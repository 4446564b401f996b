package ir

import "github.com/webschembly/wsc/internal/container"

// Module is a set of globals, an indexed collection of functions, an
// entry function id, and a metadata table mapping ids to human names
// (spec.md §3 "Module").
type Module struct {
	ID      ModuleId
	Globals *container.VecMap[GlobalId, LocalType]
	Funcs   *container.VecMap[FuncId, *Function]
	Entry   FuncId

	// FuncNames and GlobalNames map FuncIds and GlobalIds to
	// human-readable names for diagnostics and
	// the JIT splitter's per-function module naming (spec.md §6 "Global
	// naming is by dense GlobalId; function naming by dense FuncId within
	// the module").
	FuncNames   map[FuncId]string
	GlobalNames map[GlobalId]string

	// UsedGlobals is this module's per-module transient view of which
	// globals it references (spec.md §5 "Per-module transient state
	// (which globals this module uses) is reset before each module").
	UsedGlobals map[GlobalId]bool
}

// NewModule allocates an empty module ready for the IR generator to
// populate.
func NewModule(id ModuleId) *Module {
	return &Module{
		ID:          id,
		Globals:     container.NewVecMap[GlobalId, LocalType](),
		Funcs:       container.NewVecMap[FuncId, *Function](),
		FuncNames:   make(map[FuncId]string),
		GlobalNames: make(map[GlobalId]string),
		UsedGlobals: make(map[GlobalId]bool),
	}
}

// NewFunc allocates a fresh function in the module and returns its id.
func (m *Module) NewFunc(retType Type, name string) FuncId {
	id := m.Funcs.PushWith(func(id FuncId) *Function { return NewFunction(id, retType) })
	if name != "" {
		m.FuncNames[id] = name
	}
	return id
}

// Func returns the function for id.
func (m *Module) Func(id FuncId) *Function {
	return m.Funcs.MustGet(id)
}

// DeclareGlobal registers g as referenced by this module (UsedGlobals) and
// records its storage type if not already declared.
func (m *Module) DeclareGlobal(g GlobalId, lt LocalType) {
	// A slot below g may already exist as setGlobal padding, so presence
	// in Globals does not mean g was declared; UsedGlobals does.
	if !m.UsedGlobals[g] {
		// GlobalId is allocated by VarIdGen, not by this VecMap's own
		// Push, so we record it at its own key directly rather than
		// relying on monotone Push allocation.
		m.setGlobal(g, lt)
	}
	m.UsedGlobals[g] = true
}

// setGlobal inserts lt at key g, growing the backing slots as needed; used
// because GlobalId identity is shared across modules (VarIdGen-issued),
// unlike FuncId/BasicBlockId which are always module/function-local and
// fit VecMap's own monotone Push discipline.
func (m *Module) setGlobal(g GlobalId, lt LocalType) {
	for m.Globals.Len() <= int(g) {
		m.Globals.Push(LocalType{})
	}
	m.Globals.Set(g, lt)
}
