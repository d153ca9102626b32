package slab

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

// variable.go implements spec.md §4.7: the variable-size block. A V
// block is one 512-byte block laid out as 62 address-sized slots
// followed by its info word and a trailing self-pointer word (64
// words total, matching every other block's B/W=64 footprint):
//
//	word[0..60]   61 general-purpose slots
//	word[61]      reserved: wilderness/next-V-block pointer, never
//	              tracked by the bitmap (see DESIGN.md "variable-size
//	              bitmap width")
//	word[62]      info word: ClassV discriminator + 61-bit used bitmap
//	word[63]      self-pointer, so Locate's preceding-block fallback
//	              (locator.go) can still resolve a pointer into this
//	              block's own slots
//
// Each of the 61 general slots holds either a rotated pointer to
// out-of-line storage (tag 0, invariant 5) or up to 7 bytes of payload
// inlined directly in the slot (tag 1..7, the payload's length).
// Inline payload lives in the low 56 bits of the slot word; the
// 3-bit tag always occupies bits [61:64), exactly where rotate places
// an 8-aligned address's guaranteed-zero low bits, so the same word
// format serves both without a separate flag.

const (
	vSlotCount     = 61 // bitmap-tracked slots
	vReservedSlot  = 61 // index of the wilderness/next-pointer slot
	vInfoWordIndex = 62
	vSelfWordIndex = 63
	maxInlineBytes = 7
)

func vSlotAddr(base Ptr, idx int) Ptr { return base + Ptr(idx)*W }
func vInfoWord(base Ptr) Ptr          { return base + vInfoWordIndex*W }
func vSelfWord(base Ptr) Ptr          { return base + vSelfWordIndex*W }
func vReservedWord(base Ptr) Ptr      { return vSlotAddr(base, vReservedSlot) }

// OutOfLineSource is how variable.go obtains and releases backing
// storage for payloads too big to inline (more than 7 bytes).
// outofline.go supplies one backed by mcache.
type OutOfLineSource interface {
	Acquire(n int) (addr Ptr, ok bool)
	Release(addr Ptr, n int)
}

// initVariable CAS-installs a fresh, all-free V info word at base,
// and writes base's own address into the self-pointer word so Locate
// can find this block from any of its slots without a separate case.
func initVariable(base Ptr) bool {
	if !atomic.CompareAndSwapUint64(wordPtr(vInfoWord(base)), 0, classVInfo.match) {
		return false
	}
	setWordAt(vSelfWord(base), uint64(base))
	return true
}

// PlaceVariable implements §4.7's placement operation: store data (of
// any length) in the first free slot of the V block at base. Payloads
// of up to 7 bytes are inlined directly in the slot; longer payloads
// are written to storage obtained from src and the slot holds a
// rotated pointer to it.
func PlaceVariable(base Ptr, data []byte, src OutOfLineSource) (slot Ptr, ok bool) {
	info := vInfoWord(base)
	idx, claimed := allocateSlot(info, ClassV)
	if !claimed {
		return 0, false
	}
	s := vSlotAddr(base, idx)
	if len(data) <= maxInlineBytes {
		setWordAt(s, encodeInline(data))
		return s, true
	}
	addr, got := src.Acquire(len(data))
	if !got {
		freeSlot(info, ClassV, idx)
		return 0, false
	}
	copy(addr.toUnsafeSlice(len(data)), data)
	setWordAt(s, encodeAddr(addr))
	return s, true
}

// ReadVariable returns the payload stored at slot (as returned by
// PlaceVariable), reading out-of-line storage via outOfLineLen to know
// how many bytes to copy back.
func ReadVariable(slot Ptr, outOfLineLen int) []byte {
	v := wordAt(slot)
	if tag := addrTag(v); tag != 0 {
		return decodeInline(v, tag)
	}
	addr := decodeAddr(v)
	return append([]byte(nil), addr.toUnsafeSlice(outOfLineLen)...)
}

// ResizeVariable implements §4.7's resize operation: change the
// payload at slot to newData, in place when possible (two inline
// payloads, or an out-of-line payload of more than 7 bytes that still
// fits in its existing storage), otherwise releasing the old storage
// via src and placing the new payload fresh. A new payload of 7 bytes
// or fewer is always inlined.
func ResizeVariable(slot Ptr, oldOutOfLineLen int, newData []byte, src OutOfLineSource) {
	v := wordAt(slot)
	tag := addrTag(v)
	switch {
	case tag != 0 && len(newData) <= maxInlineBytes:
		setWordAt(slot, encodeInline(newData))
	case tag == 0 && len(newData) > maxInlineBytes && len(newData) <= oldOutOfLineLen:
		addr := decodeAddr(v)
		copy(addr.toUnsafeSlice(oldOutOfLineLen), newData)
		setWordAt(slot, encodeAddr(addr))
	case tag == 0:
		addr := decodeAddr(v)
		src.Release(addr, oldOutOfLineLen)
		fallthrough
	default:
		if len(newData) <= maxInlineBytes {
			setWordAt(slot, encodeInline(newData))
			return
		}
		newAddr, ok := src.Acquire(len(newData))
		if !ok {
			panic(fmt.Sprintf("slab: ResizeVariable: out-of-line source exhausted for %d bytes", len(newData)))
		}
		copy(newAddr.toUnsafeSlice(len(newData)), newData)
		setWordAt(slot, encodeAddr(newAddr))
	}
}

// FreeVariable clears slot's bitmap bit and, if it held an out-of-line
// payload, releases that storage via src.
func FreeVariable(base, slot Ptr, outOfLineLen int, src OutOfLineSource) {
	v := wordAt(slot)
	if addrTag(v) == 0 {
		src.Release(decodeAddr(v), outOfLineLen)
	}
	idx := int((slot - base) / W)
	freeSlot(vInfoWord(base), ClassV, idx)
}

func encodeInline(data []byte) uint64 {
	if len(data) == 0 || len(data) > maxInlineBytes {
		panic(fmt.Sprintf("slab: encodeInline: invalid length %d", len(data)))
	}
	var v uint64
	for i, b := range data {
		v |= uint64(b) << uint(8*i)
	}
	return withAddrTag(v, len(data))
}

func decodeInline(v uint64, tag int) []byte {
	out := make([]byte, tag)
	for i := range out {
		out[i] = byte(v >> uint(8*i))
	}
	return out
}

func encodeAddr(addr Ptr) uint64 { return rotate(uint64(addr)) }
func decodeAddr(v uint64) Ptr    { return Ptr(unrotate(v)) }
