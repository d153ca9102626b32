package slab

import "unsafe"

const (
	// W is the machine word size in bytes. The allocator's metadata is
	// word-granular throughout: info words, address slots, and the
	// block-locator lookup all operate in units of W.
	W = 8

	// B is the size of a block in bytes, and the unit of zone growth.
	B = 512

	// wordsPerBlock is B/W: how many 8-byte words make up one block.
	wordsPerBlock = B / W
)

// Ptr is a raw, allocator-managed address. It is never dereferenced by
// Go's garbage collector as a pointer (it is an integer, same as a C
// pointer would be), so it is only ever derived from, or converted
// back into, an unsafe.Pointer that is known to still be backed by a
// live zone. See zone.go for why that's safe here.
type Ptr uintptr

func ptrOf(p unsafe.Pointer) Ptr   { return Ptr(uintptr(p)) }
func (p Ptr) toUnsafe() unsafe.Pointer { return unsafe.Pointer(uintptr(p)) }

// toUnsafeSlice views the n bytes starting at p as a []byte, for
// copying payload into or out of zone-backed storage. The caller is
// responsible for knowing p is live and n bytes long; this performs no
// bounds checking of its own, the same contract zone.go's backing
// []byte slices are carved from.
func (p Ptr) toUnsafeSlice(n int) []byte {
	return unsafe.Slice((*byte)(p.toUnsafe()), n)
}

// wordAt reads the 8 bytes at address a as a raw word, without going
// through sync/atomic. Used for values that are not concurrently
// mutated (e.g. address rotation round-tripping values already owned
// by the calling goroutine).
func wordAt(a Ptr) uint64 {
	return *(*uint64)(a.toUnsafe())
}

func setWordAt(a Ptr, v uint64) {
	*(*uint64)(a.toUnsafe()) = v
}

// wordPtr returns the address of the 64-bit word that sync/atomic
// should operate on for the info word starting at a.
func wordPtr(a Ptr) *uint64 {
	return (*uint64)(a.toUnsafe())
}

// blockBase rounds p down to its enclosing B-byte block boundary.
func blockBase(p Ptr) Ptr {
	return p &^ (B - 1)
}

// lastWordOfBlock returns the address of a block's final 8-byte word,
// i.e. where the block's own info word lives if the block is a single
// fixed-size sub-block, a variable-size block, or a master block.
func lastWordOfBlock(base Ptr) Ptr {
	return base + B - W
}
