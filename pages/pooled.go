package pages

import (
	"math/bits"
	"sync"
	"unsafe"
)

// PooledSource is adapted from cache/mempool/mempool.go: a sync.Pool
// per power-of-two size class, with the same footer-magic guard
// against freeing a slice this package didn't hand out. It trades
// mcache's global, cross-package pools for a Source a test (or an
// embedder wanting isolated, deterministic zone reuse) can construct
// fresh and throw away.
type PooledSource struct {
	pools []*sizePool
	idx   map[int]int // size class -> index into pools, built lazily
	mu    sync.Mutex
}

type sizePool struct {
	sync.Pool
	size int
}

const (
	footerLen       = 8
	footerMagicMask = uint64(0xFFFFFFFFFFFFFFC0)
	footerIndexMask = uint64(0x000000000000003F)
	footerMagic     = uint64(0xBADC0DEBADC0DEC0)

	minPooledSize = 4 << 10
)

// NewPooledSource returns an empty PooledSource. Size classes are
// created on first use, unlike the teacher's mempool package which
// builds its whole ladder at init time for a process-global pool --
// here each PooledSource is its own instance, so building the ladder
// eagerly would mean guessing bounds up front for no benefit.
func NewPooledSource() *PooledSource {
	return &PooledSource{idx: make(map[int]int)}
}

func (s *PooledSource) poolFor(size int) *sizePool {
	s.mu.Lock()
	defer s.mu.Unlock()
	cls := size
	if cls < minPooledSize {
		cls = minPooledSize
	}
	cls = 1 << bits.Len(uint(cls-1))
	if i, ok := s.idx[cls]; ok {
		return s.pools[i]
	}
	p := &sizePool{size: cls}
	p.New = func() interface{} {
		b := make([]byte, p.size)
		return &b[0]
	}
	s.idx[cls] = len(s.pools)
	s.pools = append(s.pools, p)
	return p
}

func (s *PooledSource) poolByIndex(i int) *sizePool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.pools) {
		return nil
	}
	return s.pools[i]
}

func (s *PooledSource) poolIndexOf(p *sizePool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idx[p.size]
}

// Acquire asks the size class covering minBytes+alignment+footerLen
// for a slice, stamps a footer identical in shape to
// cache/mempool/mempool.go's, and returns it as backing.
func (s *PooledSource) Acquire(minBytes, alignment int) (base unsafe.Pointer, backing []byte, ok bool) {
	if minBytes <= 0 {
		return nil, nil, false
	}
	need := minBytes + alignment + footerLen
	p := s.poolFor(need)
	ptr := p.Get().(*byte)
	backing = unsafe.Slice(ptr, p.size)
	i := s.poolIndexOf(p)
	*(*uint64)(unsafe.Add(unsafe.Pointer(ptr), p.size-footerLen)) = footerMagic | uint64(i)
	return unsafe.Pointer(ptr), backing, true
}

// Release validates backing's footer before returning it to its pool,
// silently ignoring anything not shaped like a PooledSource's own
// output -- exactly cache/mempool/mempool.go's Free contract ("Free is
// always safe regardless of the input provided").
func (s *PooledSource) Release(backing []byte) {
	c := cap(backing)
	if c < minPooledSize || uint(c)&uint(c-1) != 0 {
		return
	}
	if c < footerLen {
		return
	}
	footer := *(*uint64)(unsafe.Add(unsafe.Pointer(&backing[:c][0]), c-footerLen))
	if footer&footerMagicMask != footerMagic {
		return
	}
	i := int(footer & footerIndexMask)
	p := s.poolByIndex(i)
	if p == nil || p.size != c {
		return
	}
	p.Put(&backing[:c][0])
}
