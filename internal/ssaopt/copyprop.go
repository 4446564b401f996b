package ssaopt

import "github.com/webschembly/wsc/internal/ir"

type roundtripSrc struct {
	valT ir.ValType
	src  ir.LocalId
}

// CopyPropagate rewrites a single block in two steps (spec.md §4.7 "Copy
// propagation"):
//
//  1. Round-trip cancellation: `c = from-obj<T>(b)` where `b = to-obj<T>(a)`
//     becomes `c = move a`, and symmetrically `c = to-obj<T>(b)` where
//     `b = from-obj<T>(a)` becomes `c = move a`.
//  2. Move-chain propagation: every use of a local defined by a Move is
//     rewritten to read the move's ultimate source directly, including
//     the block's terminator.
func CopyPropagate(block *ir.BasicBlock) {
	toObjSrc := make(map[ir.LocalId]roundtripSrc)
	fromObjSrc := make(map[ir.LocalId]roundtripSrc)

	for i := range block.Instrs {
		in := &block.Instrs[i]
		switch in.Kind {
		case ir.ToObj:
			if fo, ok := fromObjSrc[in.Args[0]]; ok && fo.valT == in.ValT {
				in.Kind = ir.Move
				in.Args = []ir.LocalId{fo.src}
			} else {
				toObjSrc[in.Result] = roundtripSrc{valT: in.ValT, src: in.Args[0]}
			}
		case ir.FromObj:
			if to, ok := toObjSrc[in.Args[0]]; ok && to.valT == in.ValT {
				in.Kind = ir.Move
				in.Args = []ir.LocalId{to.src}
			} else {
				fromObjSrc[in.Result] = roundtripSrc{valT: in.ValT, src: in.Args[0]}
			}
		}
	}

	copyOf := make(map[ir.LocalId]ir.LocalId)
	resolve := func(id ir.LocalId) ir.LocalId {
		for {
			src, ok := copyOf[id]
			if !ok {
				return id
			}
			id = src
		}
	}

	for i := range block.Instrs {
		in := &block.Instrs[i]
		for j, a := range in.Args {
			in.Args[j] = resolve(a)
		}
		for j := range in.Incomings {
			in.Incomings[j].Val = resolve(in.Incomings[j].Val)
		}
		if in.Kind == ir.Move {
			copyOf[in.Result] = resolve(in.Args[0])
		}
	}
	redirectTerminator(&block.Term, resolve)
}
