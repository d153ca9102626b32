// Package tcache implements the per-thread state spec.md §§4.8-4.10
// describes: a small cache of blocks this goroutine last allocated
// from (so repeated same-size requests usually claim a slot with one
// CAS on a block already known to have room, without touching the
// heap's shared index), a
// bounded hoard of freed pointers ready for immediate reuse, and a
// size predictor that learns which sizes are requested often enough to
// warrant pre-carving a block before the first request for that size
// even arrives.
//
// A ThreadCache is an explicit handle, not hidden goroutine-local
// state: callers create one per goroutine (or per OS thread, if they
// pin one with runtime.LockOSThread) and pass it to every Alloc/Free
// call, the same way a C allocator would thread a pthread TLS slot
// through explicitly if it didn't have compiler support for __thread.
package tcache
