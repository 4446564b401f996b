package container

// FxBiHashMap is a bidirectional hash map between two comparable key
// spaces. Used by the JIT layer's stub-globals table
// (jit.JitContext.StubGlobals) and by ssaopt.AssignTypeArguments's
// type-param<->local table. The "Fx" prefix follows the teacher's habit of naming fast,
// special-purpose maps after their role rather than a generic "Map" (see
// the teacher's internal/sid dense-id naming); no hashing algorithm
// substitution is implied, it is a plain Go map pair.
type FxBiHashMap[A, B comparable] struct {
	fwd map[A]B
	rev map[B]A
}

// NewFxBiHashMap constructs an empty bidirectional map.
func NewFxBiHashMap[A, B comparable]() *FxBiHashMap[A, B] {
	return &FxBiHashMap[A, B]{fwd: make(map[A]B), rev: make(map[B]A)}
}

// Insert records a<->b, overwriting any prior association for either side.
func (m *FxBiHashMap[A, B]) Insert(a A, b B) {
	if oldB, ok := m.fwd[a]; ok {
		delete(m.rev, oldB)
	}
	if oldA, ok := m.rev[b]; ok {
		delete(m.fwd, oldA)
	}
	m.fwd[a] = b
	m.rev[b] = a
}

// Forward looks up b given a.
func (m *FxBiHashMap[A, B]) Forward(a A) (B, bool) {
	b, ok := m.fwd[a]
	return b, ok
}

// Reverse looks up a given b.
func (m *FxBiHashMap[A, B]) Reverse(b B) (A, bool) {
	a, ok := m.rev[b]
	return a, ok
}

// GetOrInsert returns the existing b for a, or computes and inserts one via
// makeB if absent, so an index can be allocated lazily on first sight.
func (m *FxBiHashMap[A, B]) GetOrInsert(a A, makeB func() B) B {
	if b, ok := m.fwd[a]; ok {
		return b
	}
	b := makeB()
	m.Insert(a, b)
	return b
}

// Len returns the number of associations.
func (m *FxBiHashMap[A, B]) Len() int {
	return len(m.fwd)
}
