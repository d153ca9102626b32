package slab

import "unsafe"

// fakePagesSource backs test zones with plain Go-heap memory, the same
// structural shape pages.MCacheSource and pages.PooledSource present,
// without pulling in the mcache dependency for every slab-level test.
type fakePagesSource struct {
	released [][]byte
}

func (s *fakePagesSource) Acquire(minBytes, alignment int) (unsafe.Pointer, []byte, bool) {
	buf := make([]byte, minBytes)
	if len(buf) == 0 {
		return nil, nil, false
	}
	return unsafe.Pointer(&buf[0]), buf, true
}

func (s *fakePagesSource) Release(backing []byte) {
	s.released = append(s.released, backing)
}

// alignedBlocks carves n contiguous B-aligned blocks out of freshly
// allocated memory, the same over-request-then-trim trick NewZone
// uses, for tests that need real B-aligned addresses without going
// through a full Zone/Heap (blockBase masks against absolute address
// 0, so an unaligned backing array would make Locate's block-boundary
// math meaningless).
func alignedBlocks(n int) (base Ptr, keepAlive []byte) {
	buf := make([]byte, n*B+B)
	raw := ptrOf(unsafe.Pointer(&buf[0]))
	aligned := (raw + B - 1) &^ (B - 1)
	return aligned, buf
}
