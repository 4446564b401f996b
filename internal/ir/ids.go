// Package ir implements the typed SSA intermediate representation of
// spec.md §3 "IR" and §4.4's AST-to-IR generator: modules, functions,
// basic blocks, instructions, terminators, and the three-level type
// system (ValType/Type/LocalType).
//
// Grounded on the teacher's internal/core package (core.go) for the
// closed-node-shape convention and internal/link/env.go's GlobalRef
// pattern for global-slot identity, generalized to the SSA/CFG shape
// spec.md §3-§4.4 actually calls for (the teacher's Core IR is ANF, not
// SSA with basic blocks; the block/instruction/terminator split here has
// no 1:1 teacher referent and is built directly from spec.md's data
// model instead).
package ir

// LocalId is a dense, per-function SSA local. Every local is assigned
// exactly once across the whole function body (spec.md §3 "IR is SSA");
// arguments count as their own sole assignment.
type LocalId int32

// GlobalId is a dense, session-wide top-level slot identifier, shared
// with ast.GlobalId by numeric value (ast.VarIdGen allocates it; the IR
// generator converts the Used phase's id directly and records it with
// GlobalManager).
type GlobalId int32

// FuncId is a dense, per-module function identifier.
type FuncId int32

// BasicBlockId is a dense, per-function basic-block identifier.
type BasicBlockId int32

// ModuleId is a dense, session-wide compiled-module identifier, used by
// the JIT splitter (spec.md §4.8) to name per-function body modules.
type ModuleId int32

// TypeParamId names one parametric slot consulted by the type-argument
// assignment pass (spec.md §4.7).
type TypeParamId int32

// NoLocal is the sentinel meaning "this instruction produces no result".
const NoLocal LocalId = -1
