package tcache

import "github.com/tcheap/tcheap/slab"

// maxHoardBytes bounds how much freed-but-still-allocated memory one
// ThreadCache will hold onto before it starts actually releasing slots
// back to the heap. spec.md §4.9 specifies 3000 bytes; past that, a
// goroutine that frees a burst of values and never reallocates would
// otherwise starve every other goroutine of those slots indefinitely.
const maxHoardBytes = 3000

// hoard is the LIFO free list spec.md §4.9 describes: a pointer pushed
// here is freed from the calling goroutine's point of view, but its
// bitmap bit is left set, so popping it back out needs no CAS at all.
// It only ever holds values for one ThreadCache; nothing here is
// shared across goroutines.
type hoard struct {
	stacks    [4][]slab.Ptr
	usedBytes int
}

func newHoard() *hoard { return &hoard{} }

func slotBytes(c slab.Class) int {
	switch c {
	case slab.ClassC0:
		return 1
	case slab.ClassC1:
		return 8
	case slab.ClassC2:
		return 4
	case slab.ClassC3:
		return 2
	default:
		return 0
	}
}

// push adds p to the hoard for class c, returning false (and changing
// nothing) if doing so would exceed maxHoardBytes -- the caller must
// fall back to actually freeing p through the heap.
func (h *hoard) push(c slab.Class, p slab.Ptr) bool {
	sz := slotBytes(c)
	if h.usedBytes+sz > maxHoardBytes {
		return false
	}
	idx := classIndex(c)
	h.stacks[idx] = append(h.stacks[idx], p)
	h.usedBytes += sz
	return true
}

// pop removes and returns the most recently hoarded pointer of class
// c, if any.
func (h *hoard) pop(c slab.Class) (slab.Ptr, bool) {
	idx := classIndex(c)
	s := h.stacks[idx]
	if len(s) == 0 {
		return 0, false
	}
	p := s[len(s)-1]
	h.stacks[idx] = s[:len(s)-1]
	h.usedBytes -= slotBytes(c)
	return p, true
}

// Len reports how many pointers of class c are currently hoarded.
func (h *hoard) Len(c slab.Class) int { return len(h.stacks[classIndex(c)]) }
