package slab

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocateSlotConcurrentNoDuplicates(t *testing.T) {
	base := newTestBlock(t)
	c := ClassC1
	info := lastWordOfBlock(base)
	require.True(t, initFixed(info, c))

	d := discriminatorFor(c)
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[int]bool)
	claimed := 0

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx, ok := allocateSlot(info, c)
				if !ok {
					return
				}
				mu.Lock()
				assert.False(t, seen[idx])
				seen[idx] = true
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, d.bitmapBits, claimed)
}

func TestFreeSlotThenReallocate(t *testing.T) {
	base := newTestBlock(t)
	c := ClassC0
	info := lastWordOfBlock(base)
	require.True(t, initFixed(info, c))

	idx, ok := allocateSlot(info, c)
	require.True(t, ok)
	assert.True(t, slotInUse(info, c, idx))

	freeSlot(info, c, idx)
	assert.False(t, slotInUse(info, c, idx))

	idx2, ok := allocateSlot(info, c)
	require.True(t, ok)
	assert.Equal(t, idx, idx2)
}

func TestInitFixedOnlyOnce(t *testing.T) {
	base := newTestBlock(t)
	info := lastWordOfBlock(base)
	assert.True(t, initFixed(info, ClassC2))
	assert.False(t, initFixed(info, ClassC2))
}
