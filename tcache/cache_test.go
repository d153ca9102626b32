package tcache

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tcheap/tcheap/gopool"
	"github.com/tcheap/tcheap/slab"
)

type fakeSource struct{}

func (fakeSource) Acquire(minBytes, alignment int) (unsafe.Pointer, []byte, bool) {
	buf := make([]byte, minBytes)
	return unsafe.Pointer(&buf[0]), buf, true
}

func (fakeSource) Release([]byte) {}

func newTestHeap() *slab.Heap {
	opts := slab.DefaultOptions(fakeSource{})
	opts.ZoneBlocks = 2
	return slab.NewHeap(opts)
}

func TestAllocFreeFixedRoundTrip(t *testing.T) {
	tc := New(newTestHeap())
	h, ok := tc.Alloc(4) // ClassC2
	require.True(t, ok)
	assert.NotZero(t, h.Ptr)

	tc.Free(h)
}

// An uncontended Free always wins its CAS on the first attempt, so it
// never touches the hoard at all -- hoarding is strictly a fallback
// for a lost race (spec.md §4.6, §4.9), not the default path.
func TestUncontendedFreeClearsCASBitDirectly(t *testing.T) {
	tc := New(newTestHeap())
	h, ok := tc.Alloc(1) // ClassC0, 1-byte slots
	require.True(t, ok)

	tc.Free(h)
	assert.Equal(t, 0, tc.hoard.Len(slab.ClassC0), "uncontended free must clear the bitmap bit, not hoard it")

	h2, ok := tc.Alloc(1)
	require.True(t, ok)
	assert.Equal(t, h.Ptr, h2.Ptr, "the freed slot should be immediately reusable via the CAS path")
}

// TestConcurrentAllocFreeThroughGoPool drives many goroutines, each
// with its own ThreadCache over one shared Heap, through repeated
// Alloc/Free cycles of the same size class via gopool -- the module's
// bounded worker pool, not a raw `go` statement -- so that real
// sub-block sharing across ThreadCaches produces genuine CAS
// contention on Free. Whenever that contention makes a single CAS
// attempt lose, the free falls through to the hoard instead of
// retrying immediately (tcache.ThreadCache.Free); this test checks
// that every Alloc still succeeds under that contention and that no
// ThreadCache's hoard grows past its byte bound.
func TestConcurrentAllocFreeThroughGoPool(t *testing.T) {
	heap := newTestHeap()
	pool := gopool.NewGoPool("TestConcurrentAllocFreeThroughGoPool", nil)

	const goroutines = 32
	const iterations = 200

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		pool.Go(func() {
			defer wg.Done()
			tc := New(heap)
			for i := 0; i < iterations; i++ {
				h, ok := tc.Alloc(1)
				if !ok {
					t.Errorf("Alloc(1) failed under contention")
					return
				}
				tc.Free(h)
			}
			if n := tc.hoard.Len(slab.ClassC0); n*slotBytes(slab.ClassC0) > maxHoardBytes {
				t.Errorf("hoard grew past its byte bound: %d items", n)
			}
		})
	}
	wg.Wait()
}

func TestAllocVariableOutOfLineRoundTrip(t *testing.T) {
	tc := New(newTestHeap())
	h, ok := tc.Alloc(50) // exceeds the 8-byte fixed-class ceiling, so stored out of line
	require.True(t, ok)
	assert.Equal(t, slab.ClassNone, h.class)

	tc.Free(h)
}

func TestAllocRecordsIntoPredictor(t *testing.T) {
	tc := New(newTestHeap())
	for i := 0; i < 5; i++ {
		_, ok := tc.Alloc(4)
		require.True(t, ok)
	}
	assert.Contains(t, tc.Predictor().Sizes(), 4)
}
