package slab

import (
	"sync"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/tcheap/tcheap/internal/hack"
)

// mcacheOutOfLine implements variable.go's OutOfLineSource directly
// on top of mcache.Malloc/mcache.Free (the same pairing pages/mcache.go
// wires for zone memory), bypassing the block/zone machinery entirely
// since out-of-line variable-size payloads aren't B-aligned pages --
// they're arbitrarily sized and freed by content, same as any other
// mcache-managed buffer. A sync.Map remembers each live payload's
// backing []byte so Release can hand mcache back exactly what it gave
// out (mcache.Free checks the slice's footer, which lives past its
// logical length).
type mcacheOutOfLine struct {
	live sync.Map // Ptr -> []byte
}

func newMCacheOutOfLine() *mcacheOutOfLine { return &mcacheOutOfLine{} }

// Acquire is only ever called for payloads that don't fit inline
// (more than maxInlineBytes), so n is always > 0 here.
func (o *mcacheOutOfLine) Acquire(n int) (Ptr, bool) {
	buf := mcache.Malloc(n)
	if len(buf) == 0 {
		return 0, false
	}
	addr := Ptr(hack.BytesAddr(buf))
	o.live.Store(addr, buf)
	return addr, true
}

func (o *mcacheOutOfLine) Release(addr Ptr, n int) {
	v, ok := o.live.LoadAndDelete(addr)
	if !ok {
		return
	}
	mcache.Free(v.([]byte))
}
