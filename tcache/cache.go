package tcache

import (
	"github.com/tcheap/tcheap/slab"
)

// ThreadCache is the explicit per-thread handle spec.md §4.8
// describes: one cached block per fixed size class (so the common
// case of repeatedly allocating the same small size claims a slot
// with a single CAS against a block this goroutine already knows has
// room, instead of touching the process-wide partial-block index
// every time), a hoard of freed pointers (hoard.go) ready for
// zero-CAS reuse, and a size predictor (predictor.go) that notices
// which sizes this goroutine favors.
type ThreadCache struct {
	heap *slab.Heap

	fixedBlock    [4]slab.Ptr // cached block base per fixedClassIndex, 0 if none known
	variableBlock slab.Ptr

	hoard *hoard
	pred  *predictor
}

// New creates a ThreadCache backed by heap. Call New once per
// goroutine (or per OS thread, if pinned); do not share a ThreadCache
// across concurrently-running goroutines.
func New(heap *slab.Heap) *ThreadCache {
	return &ThreadCache{
		heap:  heap,
		hoard: newHoard(),
		pred:  newPredictor(),
	}
}

// Handle is everything Free needs to release a value Alloc returned.
// It is opaque to callers beyond being round-tripped back into Free.
type Handle struct {
	Ptr       slab.Ptr
	class     slab.Class // slab.ClassNone for a variable-size allocation
	block     slab.Ptr
	size      int
	outOfLine bool
}

func classIndex(c slab.Class) int {
	switch c {
	case slab.ClassC0:
		return 0
	case slab.ClassC1:
		return 1
	case slab.ClassC2:
		return 2
	case slab.ClassC3:
		return 3
	default:
		return -1
	}
}

// Alloc returns a Handle for n bytes. Sizes of 8 bytes or less use one
// of the four fixed-size classes; larger sizes use the variable-size
// engine, always with out-of-line storage, since they exceed the
// variable block's 7-byte inline slot.
func (tc *ThreadCache) Alloc(n int) (Handle, bool) {
	tc.pred.record(n)
	if c := slab.SizeClass(n); c != slab.ClassNone {
		return tc.allocFixed(c, n)
	}
	return tc.allocVariable(n)
}

func (tc *ThreadCache) allocFixed(c slab.Class, n int) (Handle, bool) {
	if p, ok := tc.hoard.pop(c); ok {
		return Handle{Ptr: p, class: c, size: n}, true
	}
	idx := classIndex(c)
	if base := tc.fixedBlock[idx]; base != 0 {
		if p, ok := slab.AllocInBlock(base, c); ok {
			if !slab.BlockHasRoom(base, c) {
				tc.fixedBlock[idx] = 0
			}
			return Handle{Ptr: p, class: c, block: base, size: n}, true
		}
		tc.fixedBlock[idx] = 0
	}
	p, base, ok := tc.heap.AllocFixed(c)
	if !ok {
		return Handle{}, false
	}
	if slab.BlockHasRoom(base, c) {
		tc.fixedBlock[idx] = base
	}
	return Handle{Ptr: p, class: c, block: base, size: n}, true
}

func (tc *ThreadCache) allocVariable(n int) (Handle, bool) {
	data := make([]byte, n)
	slot, base, ok := tc.heap.AllocVariable(data)
	if !ok {
		return Handle{}, false
	}
	return Handle{Ptr: slot, class: slab.ClassNone, block: base, size: n, outOfLine: n > 7}, true
}

// Free releases h. Fixed-size values try the heap's CAS-clear first
// (spec.md §4.6); only when that single attempt loses the race to a
// concurrent allocation or free of a sibling slot does the pointer go
// to the hoard (hoard.go) instead, on the theory that a lost CAS
// almost always indicates contention worth stepping away from
// (spec.md §4.9). If the hoard is also full, the free falls back to
// ReleaseFixed's guaranteed retry so the pointer is never dropped.
// Everything else is released to the heap immediately.
func (tc *ThreadCache) Free(h Handle) {
	if h.class != slab.ClassNone {
		done, err := tc.heap.TryReleaseFixed(h.Ptr)
		if err != nil {
			panic(err)
		}
		if done {
			return
		}
		if tc.hoard.push(h.class, h.Ptr) {
			return
		}
		if err := tc.heap.ReleaseFixed(h.Ptr); err != nil {
			panic(err)
		}
		return
	}
	tc.heap.ReleaseVariable(h.block, h.Ptr, h.size)
}

// Predictor exposes the size predictor for callers that want to use it
// to drive prewarming (see slab.Heap.Prewarm in heap.go's doc comment
// sibling, tcache/predictor.go).
func (tc *ThreadCache) Predictor() *predictor { return tc.pred }
