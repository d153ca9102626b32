package pages

import (
	"unsafe"

	"github.com/bytedance/gopkg/lang/mcache"
)

// MCacheSource is the default Source: it gets its backing bytes from
// github.com/bytedance/gopkg/lang/mcache, the same segregated
// size-classed pool gridbuf/readbuf.go and xbuf/writebuf.go call
// through Malloc/Free, rather than a bare make([]byte, n).
//
// mcache.Malloc does not guarantee any particular alignment of the
// returned slice, so Acquire over-requests by alignment bytes and
// reports the whole oversized slice as backing; the caller
// (slab.Zone) trims the unaligned prefix itself and still releases the
// full backing slice it was handed.
type MCacheSource struct{}

// NewMCacheSource returns a Source backed by mcache's global pools.
func NewMCacheSource() *MCacheSource { return &MCacheSource{} }

func (MCacheSource) Acquire(minBytes, alignment int) (base unsafe.Pointer, backing []byte, ok bool) {
	if minBytes <= 0 {
		return nil, nil, false
	}
	backing = mcache.Malloc(minBytes + alignment)
	if len(backing) == 0 {
		return nil, nil, false
	}
	return unsafe.Pointer(&backing[0]), backing, true
}

func (MCacheSource) Release(backing []byte) {
	mcache.Free(backing)
}
