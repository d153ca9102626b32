// Package pages provides the external memory provider spec.md keeps
// opaque ("Pages source", §6) and explicitly scopes an OS-backed
// implementation of out of this module. A Source only ever hands out
// and reclaims whole runs of bytes; it has no notion of blocks, slots,
// or bitmaps -- those live entirely in package slab.
package pages

import "unsafe"

// Source is spec.md §6's collaborator: acquire(min_bytes, alignment)
// -> base|null, release(base, bytes).
type Source interface {
	// Acquire returns at least minBytes of memory, or ok=false if the
	// source cannot currently satisfy the request. base points at
	// backing[0], whose address need not be a multiple of alignment;
	// the sources in this package over-request by alignment bytes so
	// the caller can trim an unaligned prefix.
	Acquire(minBytes, alignment int) (base unsafe.Pointer, backing []byte, ok bool)
	// Release returns backing to the source. backing must be exactly
	// what a prior Acquire call returned; once released it must not be
	// read, written, or retained.
	Release(backing []byte)
}
