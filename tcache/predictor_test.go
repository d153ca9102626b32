package tcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPredictorStartsWithPinnedSizes(t *testing.T) {
	p := newPredictor()
	assert.ElementsMatch(t, []int{1, 2, 4, 8}, p.Sizes())
}

func TestRecordFuzzyMerge(t *testing.T) {
	p := newPredictor()
	p.record(100)
	p.record(101) // within fuzzTolerance of 100
	p.record(102)

	found := false
	for i := 0; i < p.n; i++ {
		if p.entries[i].size == 100 {
			assert.Equal(t, 3, p.entries[i].count)
			found = true
		}
	}
	assert.True(t, found)
}

func TestRecordEvictsLowestNonPinnedWhenFull(t *testing.T) {
	p := newPredictor()
	// fill the remaining 8 non-pinned slots with distinct, far-apart sizes
	for i := 0; i < predictorCapacity-4; i++ {
		p.record(1000 + i*100)
	}
	assert.Equal(t, predictorCapacity, p.n)

	// the pinned entries must never be evicted by a new, unrelated size
	p.record(50000)
	for _, s := range pinnedSizes {
		assert.Contains(t, p.Sizes(), s)
	}
}

func sumCounts(p *predictor) int {
	sum := 0
	for i := 0; i < p.n; i++ {
		sum += p.entries[i].count
	}
	return sum
}

func TestRecordMaintainsSumEqualsTotalInvariant(t *testing.T) {
	p := newPredictor()
	for i := 0; i < 3*compressThreshold; i++ {
		p.record(999 + i%5) // a handful of merges and evictions, several aging passes
		require.Equal(t, sumCounts(p), p.total, "sum(count) must equal total after every observation")
	}
}

func TestCompressHalvesEveryCountIncludingPinned(t *testing.T) {
	p := newPredictor()
	// record a pinned size (8) exactly compressThreshold times, so the
	// aging pass fires on the final call.
	for i := 0; i < compressThreshold; i++ {
		p.record(8)
	}

	var pinnedCount int
	for i := 0; i < p.n; i++ {
		if p.entries[i].size == 8 {
			pinnedCount = p.entries[i].count
		}
	}
	assert.Equal(t, compressThreshold>>compressedCountShift, pinnedCount, "pinned entries must be halved like any other")
	assert.Equal(t, sumCounts(p), p.total, "total must equal the sum of the halved counts, not reset to zero")
}

func TestMedianWeighted(t *testing.T) {
	p := newPredictor()
	for i := 0; i < 10; i++ {
		p.record(100)
	}
	for i := 0; i < 1; i++ {
		p.record(900)
	}
	assert.Equal(t, 100, p.Median())
}

func TestMedianEmptyIsZero(t *testing.T) {
	p := &predictor{}
	assert.Equal(t, 0, p.Median())
}
