package slab

import "unsafe"

// littleEndian is computed once at package init by writing 1 as a
// 32-bit integer and reading its first byte, the same probe spec.md
// §4.1 describes. Everything that rotates addresses or that picks
// between leftmost/rightmost placement of the C0 bitmap byte branches
// on this.
var littleEndian = probeEndian()

func probeEndian() bool {
	var x uint32 = 1
	return *(*byte)(unsafe.Pointer(&x)) == 1
}
