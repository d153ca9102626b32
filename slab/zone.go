package slab

import "unsafe"

// zone.go implements spec.md §4.11: a zone is a contiguous run of
// memory, obtained B bytes (or a multiple thereof) at a time from a
// pages source, carved into 512-byte blocks for the fixed-size and
// variable-size engines above. Go's garbage collector never moves a
// live heap allocation, so once a zone's backing []byte is pinned by
// holding a reference to it, the uintptr arithmetic in Ptr is safe for
// the zone's entire lifetime -- there is no cgo or OS mmap involved
// unless the configured pages.Source itself uses one.
type Zone struct {
	backing []byte // pinned: keeps the GC from reclaiming this memory
	base    Ptr
	size    int
}

// PagesSource is the external memory provider spec.md explicitly
// scopes out of this module (§10 Non-goals: "an OS pages source"):
// Heap is configured with one rather than calling into the OS
// directly. Its shape is structurally identical to pages.Source so
// any *pages.MCacheSource or *pages.PooledSource satisfies it without
// slab importing package pages (avoiding a cycle, since pages has no
// reason to know about slab's block format).
type PagesSource interface {
	// Acquire returns at least minBytes of memory, or ok=false if none
	// is available. base points at backing[0], whose address need not
	// be a multiple of alignment; NewZone trims any unaligned prefix.
	Acquire(minBytes, alignment int) (base unsafe.Pointer, backing []byte, ok bool)
	// Release returns backing to the source. backing must be exactly
	// what a prior Acquire call returned.
	Release(backing []byte)
}

// NewZone carves a fresh zone of at least minBlocks 512-byte blocks
// out of src. The returned zone's base address is always B-aligned:
// if the source's allocation isn't naturally aligned, NewZone
// over-requests and trims the unaligned prefix (the oversized backing
// slice is still released as a whole in Release).
func NewZone(src PagesSource, minBlocks int) (*Zone, bool) {
	want := minBlocks * B
	base, backing, ok := src.Acquire(want+B, B)
	if !ok {
		return nil, false
	}
	raw := ptrOf(base)
	aligned := (raw + B - 1) &^ (B - 1)
	usable := int(Ptr(len(backing)) - (aligned - raw))
	usable -= usable % B
	return &Zone{backing: backing, base: aligned, size: usable}, true
}

// Base returns the zone's first B-aligned address.
func (z *Zone) Base() Ptr { return z.base }

// Blocks returns how many 512-byte blocks this zone holds.
func (z *Zone) Blocks() int { return z.size / B }

// BlockAt returns the address of the i'th 512-byte block in the zone.
func (z *Zone) BlockAt(i int) Ptr { return z.base + Ptr(i)*B }

// Contains reports whether p falls within this zone's managed range.
func (z *Zone) Contains(p Ptr) bool {
	return p >= z.base && p < z.base+Ptr(z.size)
}

// Release returns the zone's backing memory to src. The caller must
// ensure no live pointer into the zone remains in use afterward.
func (z *Zone) Release(src PagesSource) {
	src.Release(z.backing)
	z.backing = nil
}
