package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterAddRemoveChild(t *testing.T) {
	base := newTestBlock(t)
	m, ok := NewMaster(base)
	require.True(t, ok)

	c1, c2 := Ptr(0x1000), Ptr(0x2000)
	_, ok = m.AddChild(c1)
	require.True(t, ok)
	_, ok = m.AddChild(c2)
	require.True(t, ok)

	children := m.Children()
	assert.ElementsMatch(t, []Ptr{c1, c2}, children)

	assert.True(t, m.RemoveChild(c1))
	assert.ElementsMatch(t, []Ptr{c2}, m.Children())
	assert.False(t, m.RemoveChild(c1))
}

func TestMasterFullAndCapacity(t *testing.T) {
	base := newTestBlock(t)
	m, ok := NewMaster(base)
	require.True(t, ok)

	for i := 0; i < m.Capacity(); i++ {
		_, ok := m.AddChild(Ptr(i + 1))
		require.True(t, ok)
	}
	assert.True(t, m.Full())
	_, ok = m.AddChild(Ptr(9999))
	assert.False(t, ok)
}

func TestMasterLinkNext(t *testing.T) {
	base := newTestBlock(t)
	m, ok := NewMaster(base)
	require.True(t, ok)
	assert.Equal(t, Ptr(0), m.Next())

	next := newTestBlock(t)
	assert.True(t, m.LinkNext(next))
	assert.Equal(t, next, m.Next())
	assert.False(t, m.LinkNext(newTestBlock(t)), "chain only grows at the tail")
}
