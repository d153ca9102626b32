package slab

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultOptions(t *testing.T) {
	src := &fakePagesSource{}
	opts := DefaultOptions(src)
	assert.Equal(t, 64, opts.ZoneBlocks)
	assert.Equal(t, PagesSource(src), opts.Source)
}
