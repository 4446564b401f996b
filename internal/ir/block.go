package ir

// BasicBlock is an ordered instruction sequence ending in one Terminator
// (spec.md §3 "Basic block"). The instruction list's leading prefix is
// exactly its Phi instructions; Instrs[PhiCount():] holds the rest.
type BasicBlock struct {
	ID     BasicBlockId
	Instrs []Instruction
	Term   Terminator
}

// NewBasicBlock constructs an empty block with id, to be filled in by the
// IR generator or a later pass.
func NewBasicBlock(id BasicBlockId) *BasicBlock {
	return &BasicBlock{ID: id}
}

// PhiCount returns the length of the leading Phi-only prefix.
func (b *BasicBlock) PhiCount() int {
	n := 0
	for n < len(b.Instrs) && b.Instrs[n].IsPhi() {
		n++
	}
	return n
}

// Phis returns the leading Phi prefix.
func (b *BasicBlock) Phis() []Instruction {
	return b.Instrs[:b.PhiCount()]
}

// AppendPhi inserts a Phi instruction at the end of the current Phi
// prefix, keeping the "Phis only at block start" invariant.
func (b *BasicBlock) AppendPhi(instr Instruction) {
	n := b.PhiCount()
	b.Instrs = append(b.Instrs, Instruction{})
	copy(b.Instrs[n+1:], b.Instrs[n:])
	b.Instrs[n] = instr
}

// Append adds a non-phi instruction at the end of the block.
func (b *BasicBlock) Append(instr Instruction) {
	b.Instrs = append(b.Instrs, instr)
}
