package slab

import "fmt"

// fixed.go implements spec.md §4.6/§4.7's fixed-size-Class machinery
// at the level of a single 512-byte block: carving it into sub-blocks
// of one Class, claiming a slot in whichever sub-block has room, and
// resolving a live pointer back to its slot to free it. Finding which
// 512-byte block to carve in the first place, and tracking which
// blocks still have room, is Heap's job (see heap.go), with
// tcache/cache.go caching one block per Class; this file only ever
// touches one block at a time.

// AllocInBlock tries every sub-block of Class c packed into the
// 512-byte block at base, in address order, and claims the first free
// slot it finds. A sub-block whose info word is still zero (never
// touched) is lazily initialized in place. The block's final word is
// likewise marked with Class c's discriminator if it is still zero, so
// Locate resolves pointers into this block to base. It returns the
// allocated pointer, or ok=false if every sub-block in this block is
// full.
func AllocInBlock(base Ptr, c Class) (p Ptr, ok bool) {
	if last := lastWordOfBlock(base); wordAt(last) == 0 {
		initFixed(last, c)
	}
	for _, sb := range fixedSubBlocks(base, c) {
		info := sb + Ptr(subBlockSize(c)) - W
		if wordAt(info) == 0 {
			initFixed(info, c) // lose the race silently; re-read below
		}
		idx, claimed := allocateSlot(info, c)
		if !claimed {
			continue
		}
		return slotAddr(c, sb, idx), true
	}
	return 0, false
}

// slotAddr returns the address of slot idx (0-based) within the
// sub-block starting at subBase, for Class c; slotBitIndex is its
// inverse. Slots are numbered downward from the info word, slot 0
// being the one nearest it, and a ClassC0 sub-block's slots skip the
// byte that holds its bitmap (see bitOffset).
func slotAddr(c Class, subBase Ptr, idx int) Ptr {
	d := discriminatorFor(c)
	bm := subBase + Ptr(subBlockSize(c)) - W
	if c == ClassC0 {
		return bm + Ptr(bitOffset(c)) - Ptr(idx)
	}
	return bm - Ptr((idx+1)*d.slotSize)
}

// BlockHasRoom reports whether at least one sub-block of Class c in
// the 512-byte block at base has a free slot (including sub-blocks not
// yet carved, i.e. whose info word is still zero).
func BlockHasRoom(base Ptr, c Class) bool {
	for _, sb := range fixedSubBlocks(base, c) {
		info := sb + Ptr(subBlockSize(c)) - W
		v := wordAt(info)
		if v == 0 || !isFull(c, v) {
			return true
		}
	}
	return false
}

// FreeFixed resolves p (previously returned by AllocInBlock) back to
// its owning sub-block via Locate and walkFixed, clears its slot, and
// reports whether that sub-block is now completely empty. Heap's
// ReleaseFixed ignores that report; no block is ever handed back to
// its zone. block is the enclosing
// 512-byte block's base, i.e. what AllocInBlock and BlockHasRoom take
// and what the heap's partial set indexes by; it is not the same as
// the sub-block's own base except for ClassC1, which fills a whole
// block with one sub-block.
//
// FreeFixed always completes the clear, retrying the CAS against
// whatever contention it meets. Callers that instead want to hand a
// lost race off to a hoard (spec.md §4.6, §4.9) use TryFreeFixed.
func FreeFixed(p Ptr) (c Class, block Ptr, emptied bool, err error) {
	for {
		c, block, emptied, done, err := TryFreeFixed(p)
		if err != nil || done {
			return c, block, emptied, err
		}
	}
}

// TryFreeFixed is FreeFixed's single-attempt form: it resolves p to
// its owning sub-block exactly as FreeFixed does, but clears the slot
// with one freeSlotOnce call instead of a busy-loop. done reports
// whether that single CAS won; on done=false (and err=nil) the slot's
// bit is untouched and the caller should decide whether to retry
// (as FreeFixed does), hoard the pointer instead, or simply try again
// later.
func TryFreeFixed(p Ptr) (c Class, block Ptr, emptied bool, done bool, err error) {
	base := Locate(p)
	info := lastWordOfBlock(base)
	v := wordAt(info)
	cls, _, cerr := classify(v)
	if cerr != nil {
		return ClassNone, 0, false, false, fmt.Errorf("slab: FreeFixed: %w", cerr)
	}
	if cls == ClassV {
		return ClassNone, 0, false, false, fmt.Errorf("slab: FreeFixed called on a variable-size block at %#x", base)
	}
	_, infoWord, ok := walkFixed(base, cls, p)
	if !ok {
		return ClassNone, 0, false, false, fmt.Errorf("slab: %#x does not fall inside any %s sub-block of block %#x", p, cls, base)
	}
	idx := slotBitIndex(cls, infoWord, p)
	if !freeSlotOnce(infoWord, cls, idx) {
		return cls, base, false, false, nil
	}
	return cls, base, isEmpty(cls, wordAt(infoWord)), true, nil
}
