package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateSelfDescribingBlock(t *testing.T) {
	base := newTestBlock(t)
	c := ClassC1
	p, ok := AllocInBlock(base, c)
	require.True(t, ok)

	assert.Equal(t, base, Locate(p))
}

func TestLocateForwardingBlock(t *testing.T) {
	// simulate two adjacent blocks where the second forwards to the
	// first: write 0 at the second block's final word except for a
	// forwarding address, i.e. the locator's "nonzero low byte" check
	// fails and it falls back to treating the word as a pointer.
	base, keepAlive := alignedBlocks(2)
	testBlocks = append(testBlocks, keepAlive)
	second := base + B

	setWordAt(lastWordOfBlock(base), discriminatorFor(ClassC1).match)
	setWordAt(lastWordOfBlock(second), uint64(base))

	mid := second + 16
	assert.Equal(t, base, Locate(mid))
}
