package ast

// LocalId is a dense local-variable identifier. Allocated by the Used
// phase's resolver (spec.md §4.3) from one counter shared by the whole
// AST passed to ResolveUses; one LocalId per argument or let/letrec
// binding.
type LocalId int32

// GlobalId is a dense, session-wide identifier for a top-level (module)
// binding. Allocated lazily by VarIdGen and shared across every module
// compiled in a session (spec.md §5 "Shared cross-module identity").
type GlobalId int32

// NoLocal is the sentinel meaning "not a local reference".
const NoLocal LocalId = -1

// NoGlobal is the sentinel meaning "not a global reference".
const NoGlobal GlobalId = -1
