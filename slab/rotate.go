package slab

// rotate and unrotate implement spec.md §4.3's address rotator.
//
// An address slot in a variable-size block (spec.md §4.7) stores
// either a pointer or up to 7 bytes of inline payload, tagged by a
// 3-bit discriminator: 0 means "this slot holds a rotated address",
// 1..7 means "this slot holds that many bytes of inline payload"
// (invariant 5). Addresses handed to rotate are always 8-aligned, so
// their low 3 bits are guaranteed zero (spec.md §4.7: "Addresses are
// always multiples of 8"); rotate rotates those three guaranteed-zero
// bits into the top of the word, freeing bits [61:64) to carry the
// tag. This is a true bitwise rotation, so it is lossless and
// invertible for every uint64, not only for values whose low bits
// happen to be zero -- a stronger guarantee than spec.md's testable
// property 4 ("rotation idempotence ... for all 8-aligned v") asks
// for. See DESIGN.md "address rotation width" for why this rotates 3
// bits rather than a full byte.
//
// On big-endian hosts (or hosts whose pointer is narrower than a
// word) addresses are stored unrotated: real virtual addresses never
// use the top handful of bits, so bits [61:64) are already free and
// no rotation is needed, matching spec.md §4.3.
func rotate(v uint64) uint64 {
	if !littleEndian {
		return v
	}
	return (v >> 3) | (v << 61)
}

func unrotate(v uint64) uint64 {
	if !littleEndian {
		return v
	}
	return (v << 3) | (v >> 61)
}

const (
	addrTagMask  = uint64(0x7) << 61
	addrTagShift = 61
)

// addrTag extracts the 3-bit discriminator from an already-rotated
// (or, on big-endian hosts, unrotated) slot value: 0 means the slot
// carries a rotated address, 1..7 the length of inline payload.
func addrTag(stored uint64) int {
	return int(stored >> addrTagShift)
}

// withAddrTag returns stored with its tag bits replaced by tag (0..7).
func withAddrTag(stored uint64, tag int) uint64 {
	return (stored &^ addrTagMask) | (uint64(tag) << addrTagShift)
}
