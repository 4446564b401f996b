package ir

// GlobalManager owns the global-id space and the export/import discipline
// across every module compiled in a Compiler session (spec.md §5
// "GlobalManager... any given GlobalId is exported by exactly one module
// (the first that defines it) and imported by all others that reference
// it"). It outlives any single compile_module call.
//
// Grounded on the teacher's internal/link package (GlobalEnv/ImportedSym
// in env.go): a session-wide table mapping a global name/id to which
// compilation unit owns its definition, reused here for WebAssembly
// global-slot export/import status instead of the teacher's symbol-table
// linking.
type GlobalManager struct {
	types    map[GlobalId]LocalType
	owner    map[GlobalId]ModuleId // module that exports (first defines) this global
	defined  map[GlobalId]bool     // has DefineIn been called at all yet
}

// NewGlobalManager constructs an empty manager.
func NewGlobalManager() *GlobalManager {
	return &GlobalManager{
		types:   make(map[GlobalId]LocalType),
		owner:   make(map[GlobalId]ModuleId),
		defined: make(map[GlobalId]bool),
	}
}

// Declare records id's storage type the first time it is seen (from
// whichever module references it first); later calls are no-ops so the
// type recorded at first sight is authoritative.
func (g *GlobalManager) Declare(id GlobalId, lt LocalType) {
	if _, ok := g.types[id]; !ok {
		g.types[id] = lt
	}
}

// TypeOf returns id's declared storage type.
func (g *GlobalManager) TypeOf(id GlobalId) LocalType {
	return g.types[id]
}

// DefineIn marks id as defined (assigned to) by module m. The first
// module to define a given id becomes its exporter; this is idempotent
// across repeated calls from the same module but the *first* caller across
// the whole session wins ownership, per spec.md's "first definer exports"
// rule being enforced centrally rather than per-pass.
func (g *GlobalManager) DefineIn(id GlobalId, m ModuleId) {
	if !g.defined[id] {
		g.defined[id] = true
		g.owner[id] = m
	}
}

// IsExportedBy reports whether module m is id's exporter (the module whose
// emitted code should `export` rather than `import` this global).
func (g *GlobalManager) IsExportedBy(id GlobalId, m ModuleId) bool {
	owner, ok := g.owner[id]
	return ok && owner == m
}

// IsInstantiated reports whether id has been defined by any module yet
// (spec.md §8 scenario 6: "GlobalManager marks it instantiated after the
// first [module] and only imports thereafter").
func (g *GlobalManager) IsInstantiated(id GlobalId) bool {
	return g.defined[id]
}
