package compiler

import (
	"fmt"

	"github.com/webschembly/wsc/internal/ir"
	"github.com/webschembly/wsc/internal/relooper"
)

// Emitter turns a fully-optimized module plus its per-function structured
// control-flow tree into the bytes compile_module returns. spec.md §1
// scopes "the WebAssembly binary emitter proper" out of the core as an
// external collaborator ("we specify only the structured-control output
// it consumes"); Emitter is the narrow interface §6 describes across
// that boundary. Compiler is constructed with one; production callers
// supply a real wasm encoder, and DebugEmitter below is the structural
// stand-in this repo ships so compile_module is exercisable end to end
// without that external component.
type Emitter interface {
	EmitModule(mod *ir.Module, structured map[ir.FuncId]relooper.Node) ([]byte, error)
}

// DebugEmitter renders a deterministic, human-readable summary of a
// module's functions and their structured-control trees instead of a
// real wasm binary. It exists so this repo's compile_module is a
// complete, runnable pipeline on its own; swapping in the real
// WebAssembly encoder external to this core only requires implementing
// Emitter and installing it with Compiler.WithEmitter, nothing in this
// package changes.
type DebugEmitter struct{}

// EmitModule implements Emitter.
func (DebugEmitter) EmitModule(mod *ir.Module, structured map[ir.FuncId]relooper.Node) ([]byte, error) {
	out := fmt.Sprintf("module %d entry=%d funcs=%d globals=%d\n", mod.ID, mod.Entry, mod.Funcs.Len(), mod.Globals.Len())
	for _, fid := range mod.Funcs.Keys() {
		fn := mod.Func(fid)
		name := mod.FuncNames[fid]
		tree := structured[fid]
		out += fmt.Sprintf("func %d %q blocks=%d locals=%d structured=%v\n", fid, name, fn.Blocks.Len(), fn.Locals.Len(), tree)
	}
	return []byte(out), nil
}
