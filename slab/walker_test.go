package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalkFixedFindsOwningSubBlock(t *testing.T) {
	base := newTestBlock(t)
	c := ClassC3
	subs := fixedSubBlocks(base, c)
	require.Len(t, subs, subBlocksPerBlock(c))

	target := subs[1] + 2 // inside the second sub-block
	sb, info, ok := walkFixed(base, c, target)
	require.True(t, ok)
	assert.Equal(t, subs[1], sb)
	assert.Equal(t, subs[1]+Ptr(subBlockSize(c))-W, info)
}

func TestWalkFixedOutOfRange(t *testing.T) {
	base := newTestBlock(t)
	_, _, ok := walkFixed(base, ClassC3, base+B+100)
	assert.False(t, ok)
}
