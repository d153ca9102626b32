package pages

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPooledSourceAcquireRelease(t *testing.T) {
	s := NewPooledSource()
	base, backing, ok := s.Acquire(4096, 8)
	require.True(t, ok)
	assert.NotNil(t, base)
	assert.GreaterOrEqual(t, len(backing), 4096+8+footerLen)

	s.Release(backing)
}

func TestPooledSourceAcceptsReleasedBufferAgain(t *testing.T) {
	// sync.Pool offers no reuse guarantee (the runtime may drop an item
	// at any GC), so this only checks that a round trip through
	// Release/Acquire keeps working, not that the same array comes back.
	s := NewPooledSource()
	_, b1, ok := s.Acquire(4096, 8)
	require.True(t, ok)
	s.Release(b1)

	_, b2, ok := s.Acquire(4096, 8)
	require.True(t, ok)
	assert.GreaterOrEqual(t, len(b2), 4096+8+footerLen)
}

func TestPooledSourceIgnoresForeignSlice(t *testing.T) {
	s := NewPooledSource()
	foreign := make([]byte, 8192)
	assert.NotPanics(t, func() { s.Release(foreign) })
}

func TestPooledSourceRejectsNonPositiveSize(t *testing.T) {
	s := NewPooledSource()
	_, _, ok := s.Acquire(0, 8)
	assert.False(t, ok)
}
