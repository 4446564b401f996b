package ssaopt

import (
	"sort"

	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/container"
	"github.com/webschembly/wsc/internal/ir"
)

// unvisited marks an interval whose local was never assigned a live range
// (a local left in the table by an earlier pass but no longer defined or
// used anywhere) — it is dropped rather than reused.
const unvisited = 1 << 30

// interval is one local's live range, expressed in the function-wide
// instruction numbering buildIntervals assigns (spec.md §2's "register
// reuse": SPEC_FULL.md's supplemented-features section grounds this on
// original_source/webschembly-compiler/src/ir_processor/register_allocation.rs's
// linear-scan-over-live-intervals algorithm).
type interval struct {
	local      ir.LocalId
	start, end int
}

// ReuseRegisters shrinks the number of distinct locals fn's local table
// holds by packing locals whose live ranges never overlap into the same
// slot, provided they share a LocalType (spec.md §3's typed-local
// discipline: a slot's type is fixed at definition, so reuse never
// crosses a type boundary). This is the "register reuse" spec.md §2 item
// 5 names as part of the in-scope IR-processors stage but never details
// further in §4.7 — grounded directly on the original linear-scan pass,
// adapted to this tree's separate-Terminator block shape (the original's
// instruction list includes the terminator as its own Instr variant; here
// the terminator's Uses() are scanned as the block's final position
// instead).
//
// Intended to run immediately after phi elimination (spec.md §2: "phi
// removal, register reuse"), so the locals it reuses include the move
// temporaries phi elimination itself introduces.
func ReuseRegisters(fn *ir.Function, cfg *cfganalysis.CFG) {
	live := cfganalysis.ComputeLiveness(fn, cfg)
	ivs := buildIntervals(fn, cfg, live)
	if len(ivs) == 0 {
		return
	}

	// Group by LocalType, preserving the type's first-seen order in the
	// local table so allocation (and so the new dense ids) stays
	// deterministic across runs (spec.md §5: "ids are drawn from monotone
	// counters" — reuse must not introduce nondeterminism here either).
	var typeOrder []ir.LocalType
	groups := make(map[ir.LocalType][]*interval)
	for _, it := range ivs {
		lt := fn.LocalType(it.local)
		if _, ok := groups[lt]; !ok {
			typeOrder = append(typeOrder, lt)
		}
		groups[lt] = append(groups[lt], it)
	}

	newLocals := container.NewVecMap[ir.LocalId, ir.LocalType]()
	newID := make(map[ir.LocalId]ir.LocalId, len(ivs))

	for _, lt := range typeOrder {
		group := groups[lt]
		sort.SliceStable(group, func(i, j int) bool { return group[i].start < group[j].start })

		type activeReg struct {
			it  *interval
			reg int
		}
		var active []activeReg
		var free []int
		regCount := 0
		regOf := make(map[ir.LocalId]int, len(group))

		for _, it := range group {
			var kept []activeReg
			for _, a := range active {
				if a.it.end < it.start {
					free = append(free, a.reg)
				} else {
					kept = append(kept, a)
				}
			}
			active = kept

			var reg int
			if n := len(free); n > 0 {
				reg = free[n-1]
				free = free[:n-1]
			} else {
				reg = regCount
				regCount++
			}
			regOf[it.local] = reg
			active = append(active, activeReg{it: it, reg: reg})
		}

		regToNew := make(map[int]ir.LocalId, regCount)
		for _, it := range group {
			reg := regOf[it.local]
			nid, ok := regToNew[reg]
			if !ok {
				lt := lt
				nid = newLocals.PushWith(func(ir.LocalId) ir.LocalType { return lt })
				regToNew[reg] = nid
			}
			newID[it.local] = nid
		}
	}

	swap := func(id ir.LocalId) ir.LocalId {
		if id == ir.NoLocal {
			return id
		}
		if nid, ok := newID[id]; ok {
			return nid
		}
		return id
	}

	for i, a := range fn.Args {
		fn.Args[i] = swap(a)
	}
	if fn.Closure != nil {
		for i, l := range fn.Closure.EnvLocals {
			fn.Closure.EnvLocals[i] = swap(l)
		}
	}

	for _, bid := range fn.BlockIds() {
		bb := fn.Block(bid)
		for i := range bb.Instrs {
			in := &bb.Instrs[i]
			if in.Result != ir.NoLocal {
				if nid, ok := newID[in.Result]; ok {
					in.Result = nid
				} else {
					in.Result = ir.NoLocal
				}
			}
			for j, a := range in.Args {
				in.Args[j] = swap(a)
			}
			for j := range in.Incomings {
				in.Incomings[j].Val = swap(in.Incomings[j].Val)
			}
		}
		redirectTerminator(&bb.Term, swap)
	}

	fn.Locals = newLocals
}

// buildIntervals computes one live interval per local that is ever
// defined or used in fn, numbering instructions function-wide in RPO
// order and then visiting them in reverse RPO order (mirroring the original's
// reverse walk so that a local's one SSA definition — visited last,
// since it dominates every use — always wins over the coarser
// block-start approximation a same-block use records first). Each
// instruction gets a position two apart from its neighbors so a def's
// start (pos+1) falls strictly between its own slot and the next.
func buildIntervals(fn *ir.Function, cfg *cfganalysis.CFG, live *cfganalysis.Liveness) []*interval {
	type span struct{ start, end int }
	spans := make(map[ir.BasicBlockId]span, len(cfg.RPO))
	pos := 0
	for _, bid := range cfg.RPO {
		bb := fn.Block(bid)
		start := pos
		pos += len(bb.Instrs) * 2
		pos += 2 // the terminator's own slot, plus a gap before the next block
		spans[bid] = span{start: start, end: pos}
	}

	ivs := make(map[ir.LocalId]*interval, fn.Locals.Len())
	for _, id := range fn.Locals.Keys() {
		ivs[id] = &interval{local: id, start: unvisited, end: 0}
	}
	for _, a := range fn.Args {
		ivs[a].start = 0
	}

	for i := len(cfg.RPO) - 1; i >= 0; i-- {
		bid := cfg.RPO[i]
		bb := fn.Block(bid)
		sp := spans[bid]

		for x := range live.LiveOut[bid] {
			it := ivs[x]
			it.end = max(it.end, sp.end)
			it.start = min(it.start, sp.start)
		}

		termPos := sp.start + len(bb.Instrs)*2
		for _, use := range bb.Term.Uses() {
			it := ivs[use]
			it.end = max(it.end, termPos)
			it.start = min(it.start, sp.start)
		}

		for idx := len(bb.Instrs) - 1; idx >= 0; idx-- {
			in := bb.Instrs[idx]
			instrPos := sp.start + idx*2
			if in.Result != ir.NoLocal {
				ivs[in.Result].start = instrPos + 1
			}
			for _, use := range in.Uses() {
				it := ivs[use]
				it.end = max(it.end, instrPos)
				it.start = min(it.start, sp.start)
			}
		}
	}

	out := make([]*interval, 0, len(ivs))
	for _, id := range fn.Locals.Keys() {
		it := ivs[id]
		if it.start != unvisited {
			out = append(out, it)
		}
	}
	return out
}
