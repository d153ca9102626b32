package slab

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bytedance/gopkg/util/gopool"
)

// Heap is the process-wide state spec.md §3 describes: the set of
// zones acquired from a pages source, the master-block tree recording
// them, and -- per Class -- the blocks known to still have a free
// slot. Per-thread state (the cache and hoard that make allocation
// and free usually touch none of this) lives in package tcache; Heap
// is what a tcache.ThreadCache falls back to on a cache miss.
type Heap struct {
	opts Options

	mu         sync.Mutex // guards the fields below
	zoneByBase map[Ptr]*Zone
	masterRoot *Master
	masterTail *Master

	// The bump cursor descends the master-block tree top-down (spec.md
	// §2, §4.12): cursorMaster/cursorIdx name the tree position (which
	// master block, which child slot within its Children()) and
	// cursorBlock is the next never-touched block index within the
	// zone that child names. The cursor only ever moves forward --
	// once a zone is exhausted it is never revisited.
	cursorMaster *Master
	cursorIdx    int
	cursorBlock  int

	partial  [4]partialSet // indexed by fixedClassIndex(c); blocks with >=1 free slot
	variable partialSet    // V blocks with >=1 free slot

	outOfLine *mcacheOutOfLine

	liveZones int64
	liveBytes int64
}

// NewHeap creates a Heap using opts. opts.Source must be non-nil.
func NewHeap(opts Options) *Heap {
	if opts.Source == nil {
		panic("slab: NewHeap: opts.Source is nil")
	}
	if opts.ZoneBlocks <= 0 {
		opts.ZoneBlocks = 64
	}
	return &Heap{opts: opts, outOfLine: newMCacheOutOfLine()}
}

// fixedClassIndex maps ClassC0..ClassC3 to 0..3 for the partial array.
func fixedClassIndex(c Class) int {
	switch c {
	case ClassC0:
		return 0
	case ClassC1:
		return 1
	case ClassC2:
		return 2
	case ClassC3:
		return 3
	default:
		panic(fmt.Sprintf("slab: fixedClassIndex: not a fixed Class: %v", c))
	}
}

// SizeClass returns the smallest fixed Class whose slot holds n
// bytes, or ClassNone if n needs the variable-size engine instead
// (n > 8, the largest fixed slot size). n <= 0 falls into the n <= 2
// case and gets ClassC3.
func SizeClass(n int) Class {
	switch {
	case n == 1:
		return ClassC0
	case n <= 2:
		return ClassC3
	case n <= 4:
		return ClassC2
	case n <= 8:
		return ClassC1
	default:
		return ClassNone
	}
}

// AllocFixed claims one slot of Class c, pulling a block with room
// from the process-wide partial set, carving a fresh block from the
// current zone, or growing a new zone, in that order. Callers are
// expected to be tcache on a cache miss (see tcache/cache.go); Heap
// itself never caches anything per-thread.
func (h *Heap) AllocFixed(c Class) (p Ptr, owningBlock Ptr, ok bool) {
	idx := fixedClassIndex(c)
	for {
		base, found := h.partial[idx].any()
		if !found {
			base, ok = h.carveBlock(c)
			if !ok {
				return 0, 0, false
			}
			h.partial[idx].add(base)
			continue
		}
		p, ok = AllocInBlock(base, c)
		if !ok {
			// another goroutine filled it between any() and here.
			h.partial[idx].remove(base)
			continue
		}
		if !BlockHasRoom(base, c) {
			h.partial[idx].remove(base)
		}
		return p, base, true
	}
}

// ReleaseFixed clears p's slot via FreeFixed and makes its block
// available again if it was previously full.
func (h *Heap) ReleaseFixed(p Ptr) error {
	c, base, _, err := FreeFixed(p)
	if err != nil {
		return err
	}
	h.partial[fixedClassIndex(c)].add(base)
	return nil
}

// TryReleaseFixed is ReleaseFixed's single-attempt form, built on
// TryFreeFixed instead of FreeFixed: it makes exactly one CAS attempt
// against p's slot bit and reports whether that attempt won via done.
// Callers such as tcache.ThreadCache.Free use this to implement
// spec.md §4.6/§4.9's free path -- try the CAS-clear first, and only
// fall back to hoarding (or to ReleaseFixed's guaranteed retry) when
// done is false.
func (h *Heap) TryReleaseFixed(p Ptr) (done bool, err error) {
	c, base, _, done, err := TryFreeFixed(p)
	if err != nil {
		return false, err
	}
	if done {
		h.partial[fixedClassIndex(c)].add(base)
	}
	return done, nil
}

// AllocVariable places data in a V block, pulling one with room from
// the process-wide set, carving a fresh one, or growing a new zone, in
// that order -- the same escalation AllocFixed uses.
func (h *Heap) AllocVariable(data []byte) (slot Ptr, owningBlock Ptr, ok bool) {
	for {
		base, found := h.variable.any()
		if !found {
			base, ok = h.carveVariableBlock()
			if !ok {
				return 0, 0, false
			}
			h.variable.add(base)
			continue
		}
		slot, ok = PlaceVariable(base, data, h.outOfLine)
		if !ok {
			h.variable.remove(base)
			continue
		}
		if atomicIsFull(base) {
			h.variable.remove(base)
		}
		return slot, base, true
	}
}

func atomicIsFull(base Ptr) bool {
	return isFull(ClassV, wordAt(vInfoWord(base)))
}

// ReleaseVariable frees the payload at slot (within the V block at
// owningBlock, previously returned by AllocVariable) and, if it held
// out-of-line storage, reclaims that too.
func (h *Heap) ReleaseVariable(owningBlock, slot Ptr, outOfLineLen int) {
	FreeVariable(owningBlock, slot, outOfLineLen, h.outOfLine)
	h.variable.add(owningBlock)
}

func (h *Heap) carveVariableBlock() (Ptr, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	z, ok := h.nextZoneLocked()
	if !ok {
		return 0, false
	}
	base := z.BlockAt(h.cursorBlock)
	h.cursorBlock++
	initVariable(base)
	return base, true
}

// carveBlock hands out the next never-touched 512-byte block from the
// zone the master-block-tree cursor currently names, initializing it
// for Class c, descending the tree (and growing a new zone if
// necessary) first if the current zone is exhausted.
func (h *Heap) carveBlock(c Class) (Ptr, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	z, ok := h.nextZoneLocked()
	if !ok {
		return 0, false
	}
	base := z.BlockAt(h.cursorBlock)
	h.cursorBlock++
	initFixed(lastWordOfBlock(base), c)
	return base, true
}

// nextZoneLocked returns the zone the bump cursor should carve from
// next, descending the master-block tree top-down the way spec.md §2
// describes allocation working ("descends the master-block tree
// looking for a block with a free slot") and §4.12 mandates
// ("Traversal is top-down on allocate"): the cursor walks each master
// block's Children() in slot order, then follows Master.Next() to the
// sibling master block once a block's children are exhausted, growing
// a fresh zone only once the whole recorded tree has none left to
// give. Caller holds h.mu.
func (h *Heap) nextZoneLocked() (*Zone, bool) {
	for {
		if h.cursorMaster == nil {
			if h.masterRoot == nil && !h.growZoneLocked() {
				return nil, false
			}
			h.cursorMaster = h.masterRoot
			h.cursorIdx = 0
			h.cursorBlock = 0
		}
		children := h.cursorMaster.Children()
		if h.cursorIdx >= len(children) {
			if next := h.cursorMaster.Next(); next != 0 {
				h.cursorMaster = OpenMaster(next)
				h.cursorIdx = 0
				h.cursorBlock = 0
				continue
			}
			if !h.growZoneLocked() {
				return nil, false
			}
			// growZoneLocked either grew this master block's
			// Children() (the re-read above will see it) or chained a
			// new one via LinkNext, reachable through Next() above.
			continue
		}
		z := h.zoneByBase[children[h.cursorIdx]]
		if h.cursorBlock == 0 && z.Base() == h.cursorMaster.base {
			// this zone's first block is the master block itself
			// (recordZoneLocked), so carving starts after it.
			h.cursorBlock = 1
		}
		if h.cursorBlock < z.Blocks() {
			return z, true
		}
		h.cursorIdx++
		h.cursorBlock = 0
	}
}

// growZoneLocked acquires a fresh zone from opts.Source and records it
// in both the zone-by-base index and the master-block tree. Caller
// holds h.mu.
func (h *Heap) growZoneLocked() bool {
	z, ok := NewZone(h.opts.Source, h.opts.ZoneBlocks)
	if !ok {
		return false
	}
	if h.zoneByBase == nil {
		h.zoneByBase = make(map[Ptr]*Zone)
	}
	h.zoneByBase[z.Base()] = z
	atomic.AddInt64(&h.liveZones, 1)
	atomic.AddInt64(&h.liveBytes, int64(z.Blocks()*B))
	h.recordZoneLocked(z)
	return true
}

// recordZoneLocked adds z's base address as a child of the
// master-block tree, allocating the root (or a new tail block,
// chained via Master.LinkNext) as needed. The root master block itself
// occupies the zone's own first block the very first time it's grown.
func (h *Heap) recordZoneLocked(z *Zone) {
	if h.masterRoot == nil {
		m, ok := NewMaster(z.BlockAt(0))
		if !ok {
			panic("slab: recordZoneLocked: master block at fresh zone base already initialized")
		}
		h.masterRoot = m
		h.masterTail = m
	}
	if _, ok := h.masterTail.AddChild(z.Base()); ok {
		return
	}
	next, ok := NewMaster(z.BlockAt(0))
	if !ok {
		panic("slab: recordZoneLocked: could not start new master block")
	}
	h.masterTail.LinkNext(next.base)
	h.masterTail = next
	h.masterTail.AddChild(z.Base())
}

// Prewarm grows n zones concurrently before any allocation is served,
// so the first n*opts.ZoneBlocks blocks' worth of traffic never pays
// the cost of a cold growZoneLocked call. It farms the n grows out to
// github.com/bytedance/gopkg/util/gopool's process-wide pool (the same
// dependency the package gopool worker pool in this module is
// patterned after, but here used directly: prewarming is exactly the
// "fire off a bounded batch of background goroutines and wait" shape
// that package already solves) and waits for all of them via a
// sync.WaitGroup. Each grow takes h.mu itself, so there's no added
// locking here.
func (h *Heap) Prewarm(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		gopool.CtxGo(ctx, func() {
			defer wg.Done()
			h.mu.Lock()
			h.growZoneLocked()
			h.mu.Unlock()
		})
	}
	wg.Wait()
}

// Stats reports live zone and byte counts. Best-effort, no locking
// beyond the atomic counters -- mirrors unsafex/malloc's
// BitmapAllocator.Available() in spirit: a diagnostic, not a guarantee.
type Stats struct {
	Zones int
	Bytes int64
}

func (h *Heap) Stats() Stats {
	return Stats{
		Zones: int(atomic.LoadInt64(&h.liveZones)),
		Bytes: atomic.LoadInt64(&h.liveBytes),
	}
}

// Reset releases every zone this heap holds. FOR TESTS ONLY: never
// call this while any pointer returned by the heap is still in use.
func (h *Heap) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, z := range h.zoneByBase {
		z.Release(h.opts.Source)
	}
	h.zoneByBase = nil
	h.cursorMaster = nil
	h.cursorIdx, h.cursorBlock = 0, 0
	h.masterRoot, h.masterTail = nil, nil
	for i := range h.partial {
		h.partial[i] = partialSet{}
	}
	h.variable = partialSet{}
	atomic.StoreInt64(&h.liveZones, 0)
	atomic.StoreInt64(&h.liveBytes, 0)
}

// partialSet is a mutex-guarded set of block base addresses known to
// have at least one free slot. It is deliberately not lock-free: the
// per-slot CAS engine in slotstate.go is what spec.md invariant 6
// requires to be lock-free, not this bookkeeping index.
type partialSet struct {
	mu     sync.Mutex
	blocks map[Ptr]struct{}
}

func (s *partialSet) add(b Ptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocks == nil {
		s.blocks = make(map[Ptr]struct{})
	}
	s.blocks[b] = struct{}{}
}

func (s *partialSet) remove(b Ptr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, b)
}

func (s *partialSet) any() (Ptr, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for b := range s.blocks {
		return b, true
	}
	return 0, false
}
