// Package relooper reconstructs structured control flow — blocks, loops,
// labeled breaks — from a reducible CFG, per spec.md §4.9. The emitted
// tree is what the (out-of-scope) WebAssembly emitter consumes in place
// of raw basic-block jumps, since wasm has no goto.
//
// Grounded on the teacher's internal/dtree/decision_tree.go: its
// DecisionTree sum type (LeafNode/FailNode/SwitchNode behind an
// isDecisionTree() marker method, compiled by recursive matrix
// specialization) is the shape this package's Node sum type and its
// recursive doTree/nodeWithin construction follow, generalized from
// pattern-matrix rows to basic-block successors. The traversal algorithm
// itself — peel merge-node children into enclosing Blocks, recurse with
// an extended context, turn back edges and edges to an enclosing
// Block/Loop's target into Break — is Ramsey 2022's relooper as spec.md
// §4.9 describes it; no teacher file implements that algorithm directly.
package relooper

import (
	"fmt"
	"sort"

	"github.com/webschembly/wsc/internal/cfganalysis"
	"github.com/webschembly/wsc/internal/ir"
)

// Node is one member of the structured-control-flow tree spec.md §4.9
// enumerates: Simple, If, Block, Loop, Break, Terminator, plus the Seq
// sequencing wrapper needed to chain two nodes that run one after the
// other (the algorithm's ";" in "emit Block{...} ; doTree(y, context)").
type Node interface {
	isNode()
	String() string
}

// Seq runs each of Nodes in order. A two-element Seq is how "Block{...}
// followed by the merge target's subtree" and "Simple(bb) followed by
// its translated branch" are represented.
type Seq struct{ Nodes []Node }

// Simple names one original basic block, emitted as-is (its instructions,
// minus the terminator, which the enclosing Seq's next element encodes).
type Simple struct{ BB ir.BasicBlockId }

// If is a two-way conditional; Then and Else are themselves structured
// subtrees (spec.md §4.9 "If{cond,then,else}").
type If struct {
	Cond       ir.LocalId
	Then, Else Node
}

// Block is a single-entry, single-exit region; Break(0) from inside Body
// exits to just after Block.
type Block struct{ Body Node }

// Loop is a single-entry region that repeats; Break(0) from inside Body
// continues the loop (re-enters Body) in this tree's Break/loop-entry
// convention, matching spec.md's "relooper produces one Loop containing
// an If with Break on the exit arm" — this tree does not distinguish
// "continue" from "restart the loop body", since with no intervening
// Block between a loop header and its own back edge the two coincide.
type Loop struct{ Body Node }

// Break exits Depth enclosing Block/Loop constructs, counting the
// innermost as 0 (spec.md §4.9 "Break(depth)").
type Break struct{ Depth int }

// Terminator wraps a leaf terminator with no CFG successors (Return or a
// tail call) that ends the structured tree at this point.
type Terminator struct{ Term ir.Terminator }

func (*Seq) isNode()        {}
func (*Simple) isNode()     {}
func (*If) isNode()         {}
func (*Block) isNode()      {}
func (*Loop) isNode()       {}
func (*Break) isNode()      {}
func (*Terminator) isNode() {}

func (n *Seq) String() string {
	return fmt.Sprintf("Seq%v", n.Nodes)
}
func (n *Simple) String() string     { return fmt.Sprintf("Simple(%d)", n.BB) }
func (n *If) String() string         { return fmt.Sprintf("If(then=%v, else=%v)", n.Then, n.Else) }
func (n *Block) String() string      { return fmt.Sprintf("Block(%v)", n.Body) }
func (n *Loop) String() string       { return fmt.Sprintf("Loop(%v)", n.Body) }
func (n *Break) String() string      { return fmt.Sprintf("Break(%d)", n.Depth) }
func (n *Terminator) String() string { return fmt.Sprintf("Terminator(%v)", n.Term.Kind) }

// marker is one entry of the context stack doTree/nodeWithin thread
// downward: either "LoopHeadedBy(node)" or "BlockFollowedBy(node)"
// (spec.md §4.9). The innermost marker is ctx[0].
type marker struct {
	isLoop bool
	target ir.BasicBlockId
}

// reloop holds the per-function state one Reloop call needs.
type reloop struct {
	fn  *ir.Function
	cfg *cfganalysis.CFG
}

// Reloop runs the algorithm over fn's reducible CFG (cfg must already be
// computed by cfganalysis.Analyze(fn)) and returns the structured tree
// rooted at the entry block. It returns an error if the CFG is
// irreducible — a Break target not present anywhere in the enclosing
// context, spec.md §4.9's "the current design rejects (panic on 'target
// not in context')", translated here to a returned error since this is a
// library, not the CLI.
func Reloop(fn *ir.Function, cfg *cfganalysis.CFG) (Node, error) {
	r := &reloop{fn: fn, cfg: cfg}
	return r.doTree(fn.EntryBB, nil)
}

// doTree is spec.md §4.9's doTree(node, context): wrap node in a Loop if
// it is a loop header (pushing a fresh LoopHeadedBy marker for the
// recursive call), otherwise go straight to nodeWithin.
func (r *reloop) doTree(node ir.BasicBlockId, ctx []marker) (Node, error) {
	if r.cfg.LoopHeaders[node] {
		inner := append([]marker{{isLoop: true, target: node}}, ctx...)
		body, err := r.nodeWithin(node, r.mergeChildren(node), inner)
		if err != nil {
			return nil, err
		}
		return &Loop{Body: body}, nil
	}
	return r.nodeWithin(node, r.mergeChildren(node), ctx)
}

// mergeChildren returns node's dominator-tree children that are merge
// nodes, ordered by decreasing RPO number so that earlier-reachable
// joins end up nested in inner Blocks (spec.md §4.9 "Merge children are
// ordered by decreasing RPO...").
func (r *reloop) mergeChildren(node ir.BasicBlockId) []ir.BasicBlockId {
	var out []ir.BasicBlockId
	for _, c := range r.cfg.DomTreeChildren[node] {
		if r.cfg.MergeNodes[c] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.cfg.RPONum[out[i]] > r.cfg.RPONum[out[j]]
	})
	return out
}

// nodeWithin is spec.md §4.9's nodeWithin(node, remaining_merge_children,
// context): peel merge children off one at a time into enclosing Blocks;
// once none remain, emit the Simple node and its translated branch.
func (r *reloop) nodeWithin(node ir.BasicBlockId, remaining []ir.BasicBlockId, ctx []marker) (Node, error) {
	if len(remaining) > 0 {
		y := remaining[0]
		rest := remaining[1:]
		inner := append([]marker{{isLoop: false, target: y}}, ctx...)
		body, err := r.nodeWithin(node, rest, inner)
		if err != nil {
			return nil, err
		}
		tail, err := r.doTree(y, ctx)
		if err != nil {
			return nil, err
		}
		return &Seq{Nodes: []Node{&Block{Body: body}, tail}}, nil
	}

	branch, err := r.translateBranch(node, ctx)
	if err != nil {
		return nil, err
	}
	return &Seq{Nodes: []Node{&Simple{BB: node}, branch}}, nil
}

// translateBranch converts node's terminator into its structured
// equivalent: an If whose arms are each doBranch'd, an inlined/broken
// subtree for an unconditional Jump, or a bare Terminator leaf for
// Return/tail-call terminators (spec.md §4.9's "branch translation").
func (r *reloop) translateBranch(node ir.BasicBlockId, ctx []marker) (Node, error) {
	term := r.fn.Block(node).Term
	switch term.Kind {
	case ir.TermIf:
		then, err := r.doBranch(node, term.Then, ctx)
		if err != nil {
			return nil, err
		}
		els, err := r.doBranch(node, term.Else, ctx)
		if err != nil {
			return nil, err
		}
		return &If{Cond: term.Cond, Then: then, Else: els}, nil
	case ir.TermJump:
		return r.doBranch(node, term.Target, ctx)
	default:
		return &Terminator{Term: term}, nil
	}
}

// doBranch is spec.md §4.9's doBranch(source, target, context): a back
// edge or an edge to a merge node becomes Break(depth) to the matching
// context entry; otherwise the target's subtree is inlined in place via
// doTree.
func (r *reloop) doBranch(source, target ir.BasicBlockId, ctx []marker) (Node, error) {
	isBackEdge := r.cfg.RPONum[source] >= r.cfg.RPONum[target]
	if isBackEdge {
		depth, ok := findMarker(ctx, true, target)
		if !ok {
			return nil, fmt.Errorf("relooper: back edge to block %d has no enclosing loop in context (irreducible CFG)", target)
		}
		return &Break{Depth: depth}, nil
	}
	if r.cfg.MergeNodes[target] {
		depth, ok := findMarker(ctx, false, target)
		if !ok {
			return nil, fmt.Errorf("relooper: merge target %d not in context (irreducible CFG)", target)
		}
		return &Break{Depth: depth}, nil
	}
	return r.doTree(target, ctx)
}

// findMarker searches ctx (innermost first, at index 0) for a marker of
// the given kind naming target, returning its depth.
func findMarker(ctx []marker, isLoop bool, target ir.BasicBlockId) (int, bool) {
	for i, m := range ctx {
		if m.isLoop == isLoop && m.target == target {
			return i, true
		}
	}
	return 0, false
}
