package jit

import (
	"testing"

	"github.com/webschembly/wsc/internal/ast"
	"github.com/webschembly/wsc/internal/ir"
	"github.com/webschembly/wsc/internal/lexer"
	"github.com/webschembly/wsc/internal/sexpr"
)

// compileModule runs the full lexer/parser/AST/IR pipeline on src and
// returns the generated module, mirroring internal/relooper's own
// compileEntry test helper since this package cannot import a _test.go
// file from another package.
func compileModule(t *testing.T, varGen *ast.VarIdGen, gm *ir.GlobalManager, modID ir.ModuleId, src string) *ir.Module {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	sexprs, err := sexpr.ParseAll(toks)
	if err != nil {
		t.Fatalf("ParseAll: %v", err)
	}
	parsed, err := ast.Build(sexprs)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	desugared, err := ast.Desugar(parsed)
	if err != nil {
		t.Fatalf("Desugar: %v", err)
	}
	defined, err := ast.ResolveDefines(desugared)
	if err != nil {
		t.Fatalf("ResolveDefines: %v", err)
	}
	tailMarked, err := ast.MarkTailCalls(defined)
	if err != nil {
		t.Fatalf("MarkTailCalls: %v", err)
	}
	used, err := ast.ResolveUses(tailMarked, varGen)
	if err != nil {
		t.Fatalf("ResolveUses: %v", err)
	}
	gen := ir.NewGenerator(modID, gm, used.BoxVars, used.Mutated, ir.GenOptions{EntryName: "entry"})
	mod, err := gen.Generate(used.Roots)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return mod
}

// realFuncIn returns the one FuncId in a body module that is not its own
// jit_install entry, mirroring internal/compiler's helper of the same
// name (duplicated here so this package's test stays self-contained).
func realFuncIn(t *testing.T, body *ir.Module) ir.FuncId {
	t.Helper()
	for _, fid := range body.Funcs.Keys() {
		if fid != body.Entry {
			return fid
		}
	}
	t.Fatalf("body module %d has no non-entry function", body.ID)
	return 0
}

func TestSplitProducesOneBodyPerFunction(t *testing.T) {
	varGen := ast.NewVarIdGen()
	gm := ir.NewGlobalManager()
	mod := compileModule(t, varGen, gm, 0, `(define (id x) x) (id 5)`)

	jc := NewJitContext()
	modIDs := NewModuleIDAllocator(100)
	result := Split(mod, varGen, gm, jc, modIDs)

	if result.EntryStub == nil {
		t.Fatal("expected a non-nil entry stub module")
	}
	if len(result.Bodies) != mod.Funcs.Len() {
		t.Fatalf("expected %d body modules, got %d", mod.Funcs.Len(), len(result.Bodies))
	}
	if len(result.BodyModuleID) != mod.Funcs.Len() {
		t.Fatalf("expected %d body module ids, got %d", mod.Funcs.Len(), len(result.BodyModuleID))
	}

	seen := make(map[ir.ModuleId]bool)
	for fid, body := range result.Bodies {
		if body.ID != result.BodyModuleID[fid] {
			t.Errorf("func %d: body.ID %d does not match BodyModuleID %d", fid, body.ID, result.BodyModuleID[fid])
		}
		if seen[body.ID] {
			t.Errorf("body module id %d reused across functions", body.ID)
		}
		seen[body.ID] = true

		if body.Funcs.Len() != 2 {
			t.Fatalf("func %d: expected exactly 2 functions in its body module (real + jit_install), got %d", fid, body.Funcs.Len())
		}
		realID := realFuncIn(t, body)
		if realID == body.Entry {
			t.Errorf("func %d: real function id must not equal the body module's jit_install entry", fid)
		}
	}

	// Every body module id the allocator handed out must be at or above
	// the 100 starting point, and distinct from the entry stub's own id
	// (which reuses mod.ID, per buildEntryStub).
	if result.EntryStub.ID != mod.ID {
		t.Errorf("expected entry stub to keep the original module id %d, got %d", mod.ID, result.EntryStub.ID)
	}
	for fid, id := range result.BodyModuleID {
		if id < 100 {
			t.Errorf("func %d: body module id %d predates the allocator's start", fid, id)
		}
	}
}

func TestSplitStubGlobalsStableAcrossCalls(t *testing.T) {
	varGen := ast.NewVarIdGen()
	gm := ir.NewGlobalManager()
	jc := NewJitContext()
	modIDs := NewModuleIDAllocator(0)

	modA := compileModule(t, varGen, gm, 0, `(define (f x) x)`)
	resultA := Split(modA, varGen, gm, jc, modIDs)

	// A second, unrelated module sharing this JitContext gets its own
	// stub globals, not reused ones, since StubKey includes ModuleId: the
	// cross-call reuse JitContext exists for is re-splitting the *same*
	// (module, func) pair, not aliasing distinct functions together.
	modB := compileModule(t, varGen, gm, 1, `(define (g y) y)`)
	resultB := Split(modB, varGen, gm, jc, modIDs)

	if resultA.EntryStub.ID == resultB.EntryStub.ID {
		t.Fatalf("expected distinct entry stub module ids, got %d for both", resultA.EntryStub.ID)
	}

	gid, ok := jc.StubGlobals.Forward(StubKey{Module: modA.ID, Func: modA.Entry})
	if !ok {
		t.Fatal("expected modA's entry function to have an F_ref slot recorded")
	}

	// Re-splitting modA with the same JitContext must reuse the exact
	// same F_ref globals rather than allocating fresh ones.
	_ = Split(modA, varGen, gm, jc, modIDs)

	gid2, ok := jc.StubGlobals.Forward(StubKey{Module: modA.ID, Func: modA.Entry})
	if !ok || gid != gid2 {
		t.Fatalf("expected re-splitting modA to reuse the same F_ref global, got %d then %d", gid, gid2)
	}
}

func TestSplitBodyFunctionsMirrorOriginalArity(t *testing.T) {
	varGen := ast.NewVarIdGen()
	gm := ir.NewGlobalManager()
	mod := compileModule(t, varGen, gm, 0, `(define (add2 x y) (+ x y)) (add2 1 2)`)

	jc := NewJitContext()
	modIDs := NewModuleIDAllocator(0)
	result := Split(mod, varGen, gm, jc, modIDs)

	for _, fid := range mod.Funcs.Keys() {
		orig := mod.Func(fid)
		body := result.Bodies[fid]
		realID := realFuncIn(t, body)
		real := body.Func(realID)
		if len(real.Args) != len(orig.Args) {
			t.Errorf("func %d: expected %d args in cloned body, got %d", fid, len(orig.Args), len(real.Args))
		}
	}
}
