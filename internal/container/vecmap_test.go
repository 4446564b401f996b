package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type localID int

func TestVecMapPushAndGet(t *testing.T) {
	m := NewVecMap[localID, string]()
	a := m.Push("alpha")
	b := m.Push("beta")

	assert.Equal(t, localID(0), a)
	assert.Equal(t, localID(1), b)

	got, ok := m.Get(a)
	require.True(t, ok)
	assert.Equal(t, "alpha", got)
	assert.Equal(t, 2, m.Len())
}

func TestVecMapDeletePreservesGaps(t *testing.T) {
	m := NewVecMap[localID, string]()
	a := m.Push("a")
	b := m.Push("b")
	c := m.Push("c")

	m.Delete(b)

	_, ok := m.Get(b)
	assert.False(t, ok, "Get(b) should fail after delete")
	assert.Equal(t, 2, m.Len())

	// c keeps its original dense id even though b was removed.
	got, ok := m.Get(c)
	require.True(t, ok)
	assert.Equal(t, "c", got)
	assert.Equal(t, []localID{a, c}, m.Keys())
}

func TestVecMapPushWith(t *testing.T) {
	type node struct {
		self localID
	}
	m := NewVecMap[localID, node]()
	id := m.PushWith(func(id localID) node { return node{self: id} })
	got := m.MustGet(id)
	assert.Equal(t, id, got.self, "PushWith did not see its own allocated id")
}

func TestVecMapEqIgnoresTombstones(t *testing.T) {
	eq := func(a, b string) bool { return a == b }

	m1 := NewVecMap[localID, string]()
	m1.Push("x")
	m1.Push("y")
	m1.Delete(0)

	m2 := NewVecMap[localID, string]()
	m2.Push("y")

	a := NewVecMapEq(m1, eq)
	b := NewVecMapEq(m2, eq)

	assert.False(t, a.Equal(b), "maps with different slot numbering but same live content should still only equal when keys match")
}

func TestFxBiHashMapRoundTrip(t *testing.T) {
	m := NewFxBiHashMap[string, int]()
	m.Insert("shape:1,2", 0)
	m.Insert("shape:3", 1)

	v, ok := m.Forward("shape:1,2")
	require.True(t, ok)
	assert.Equal(t, 0, v)

	k, ok := m.Reverse(1)
	require.True(t, ok)
	assert.Equal(t, "shape:3", k)
	assert.Equal(t, 2, m.Len())
}

func TestFxBiHashMapGetOrInsert(t *testing.T) {
	m := NewFxBiHashMap[string, int]()
	calls := 0
	alloc := func() int { calls++; return calls - 1 }

	first := m.GetOrInsert("a", alloc)
	second := m.GetOrInsert("a", alloc)

	assert.Equal(t, first, second, "GetOrInsert should return the same index on repeated lookups")
	assert.Equal(t, 1, calls, "alloc should only run once")
}
