package compiler

import (
	"fmt"

	"github.com/webschembly/wsc/internal/ast"
	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/ir"
	"github.com/webschembly/wsc/internal/jit"
	"github.com/webschembly/wsc/internal/lexer"
	"github.com/webschembly/wsc/internal/relooper"
	"github.com/webschembly/wsc/internal/sexpr"
	"github.com/webschembly/wsc/internal/ssaopt"
	"github.com/webschembly/wsc/internal/wserrors"
)

// Compiler is the long-lived session object spec.md §5 describes:
// "compilation state (variable-id generator, global manager, JIT
// context) lives for the lifetime of the Compiler session; successive
// modules share it." One Compiler compiles a sequence of
// compile_module calls that share global identity and, with JIT
// enabled, a single JIT stub-global table.
type Compiler struct {
	config Config

	varGen  *ast.VarIdGen
	globals *ir.GlobalManager
	jit     *jit.JitContext
	modIDs  *jit.ModuleIDAllocator

	emitter Emitter

	// splits remembers the jit.Split result for every module this session
	// has split, keyed by the *original* (pre-split) ModuleId, so
	// instantiate_func/instantiate_bb (which name a function by its
	// original module+func id per spec.md §6) can find the right body
	// module.
	splits map[ir.ModuleId]*jit.Result

	// branchCounters backs increment_branch_counter's "may trigger
	// speculative recompilation" behavior (spec.md §6).
	branchCounters map[branchKey]int
}

type branchKey struct {
	Module ir.ModuleId
	Func   ir.FuncId
	BB     ir.BasicBlockId
}

// New constructs a Compiler session (spec.md §6 "new(Config)"). A
// zero-value cfg (nil Jit) disables JIT splitting.
func New(cfg Config) *Compiler {
	return &Compiler{
		config:         cfg,
		varGen:         ast.NewVarIdGen(),
		globals:        ir.NewGlobalManager(),
		jit:            jit.NewJitContext(),
		modIDs:         jit.NewModuleIDAllocator(0),
		emitter:        DebugEmitter{},
		splits:         make(map[ir.ModuleId]*jit.Result),
		branchCounters: make(map[branchKey]int),
	}
}

// WithEmitter overrides the default DebugEmitter with a real wasm
// encoder (the §1 "external collaborator" this package leaves pluggable).
func (c *Compiler) WithEmitter(e Emitter) *Compiler {
	c.emitter = e
	return c
}

// CompileModule lowers Scheme source through the full pipeline — lexer,
// s-expression parser, the five-phase AST ladder, IR generation, SSA
// optimization, and (if configured) JIT module splitting — and emits the
// resulting module(s) (spec.md §6 "compile_module(src, is_stdlib)").
// isStdlib is accepted for the façade's signature but is neither used
// by the pipeline nor stored on the Compiler or the module.
func (c *Compiler) CompileModule(src string, isStdlib bool) ([]byte, error) {
	roots, err := c.lowerToUsed(src)
	if err != nil {
		return nil, err
	}

	modID := c.modIDs.Next()
	gen := ir.NewGenerator(modID, c.globals, roots.BoxVars, roots.Mutated, ir.GenOptions{EntryName: "entry"})
	mod, err := gen.Generate(roots.Roots)
	if err != nil {
		return nil, wserrors.New("ir", wserrors.IR005, err.Error(), nil)
	}

	if err := c.optimizeModule(mod); err != nil {
		return nil, err
	}

	if !c.config.jitEnabled() {
		return c.emit(mod)
	}

	result := jit.Split(mod, c.varGen, c.globals, c.jit, c.modIDs)
	c.splits[mod.ID] = result
	return c.emit(result.EntryStub)
}

// lowerToUsed runs spec.md §4.1-§4.3: lexer, s-expression parser, and the
// Parsed -> Desugared -> Defined -> TailCall -> Used AST phase ladder.
func (c *Compiler) lowerToUsed(src string) (*ast.UsedResult, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return nil, err
	}
	sexprs, err := sexpr.ParseAll(toks)
	if err != nil {
		return nil, err
	}
	parsed, err := ast.Build(sexprs)
	if err != nil {
		return nil, err
	}
	desugared, err := ast.Desugar(parsed)
	if err != nil {
		return nil, err
	}
	defined, err := ast.ResolveDefines(desugared)
	if err != nil {
		return nil, err
	}
	tailMarked, err := ast.MarkTailCalls(defined)
	if err != nil {
		return nil, err
	}
	return ast.ResolveUses(tailMarked, c.varGen)
}

// optimizeModule runs spec.md §4.7's SSA optimizations over every
// function of mod: per-block type-check folding and copy propagation,
// then module-wide constant-closure propagation feeding the
// CallClosure->CallDirect/CallRef desugar, then budget-bounded inlining,
// and finally per-function dead-code elimination, phi elimination, and
// register reuse (run last, in that order, matching spec.md §2's "phi
// removal, register reuse": inlining is the one pass that adds blocks
// and phis, and register reuse is the one pass that wants phi
// elimination's move temporaries already in the local table).
func (c *Compiler) optimizeModule(mod *ir.Module) error {
	for _, fid := range mod.Funcs.Keys() {
		fn := mod.Func(fid)
		cfg := cfganalysis.Analyze(fn)

		for _, bid := range fn.BlockIds() {
			block := fn.Block(bid)
			ssaopt.FoldTypeChecks(block)
			ssaopt.CopyPropagate(block)
		}

		vals := ssaopt.PropagateConstantClosures(fn, cfg)
		ssaopt.RefineCallClosures(fn, cfg, vals)
		ssaopt.DesugarCallClosures(fn, cfg, vals)
	}

	ssaopt.Inline(mod, c.config.inlineBudget())

	for _, fid := range mod.Funcs.Keys() {
		fn := mod.Func(fid)
		cfg := cfganalysis.Analyze(fn)

		live := cfganalysis.ComputeLiveness(fn, cfg)
		ssaopt.DCE(fn, cfg, live)

		if err := ssaopt.PhiElimination(fn, cfg); err != nil {
			return err
		}

		ssaopt.ReuseRegisters(fn, cfg)
	}
	return nil
}

// emit runs the relooper (spec.md §4.9) over every function of mod and
// hands the module plus its structured-control trees to the configured
// Emitter.
func (c *Compiler) emit(mod *ir.Module) ([]byte, error) {
	structured := make(map[ir.FuncId]relooper.Node, mod.Funcs.Len())
	for _, fid := range mod.Funcs.Keys() {
		fn := mod.Func(fid)
		cfg := cfganalysis.Analyze(fn)
		tree, err := relooper.Reloop(fn, cfg)
		if err != nil {
			return nil, wserrors.New("ir", wserrors.IR004, err.Error(), nil)
		}
		structured[fid] = tree
	}
	return c.emitter.EmitModule(mod, structured)
}

// GetGlobalId looks up name's session-wide GlobalId without allocating
// one (spec.md §6 "get_global_id(name) -> optional integer... stable
// across modules in the session").
func (c *Compiler) GetGlobalId(name string) (ir.GlobalId, bool) {
	gid, ok := c.varGen.Lookup(name)
	if !ok {
		return 0, false
	}
	return ir.GlobalId(gid), true
}

func (c *Compiler) bodyModule(modID ir.ModuleId, fid ir.FuncId) (*ir.Module, error) {
	result, ok := c.splits[modID]
	if !ok {
		return nil, fmt.Errorf("compiler: module %d was not JIT-split (or is unknown to this session)", modID)
	}
	body, ok := result.Bodies[fid]
	if !ok {
		return nil, fmt.Errorf("compiler: module %d has no function %d", modID, fid)
	}
	return body, nil
}
