package slab

// Options configures a Heap, mirroring gopool.Option/DefaultOption:
// a plain struct with a constructor, rather than functional options,
// matching the teacher's own convention.
type Options struct {
	// ZoneBlocks is how many 512-byte blocks a fresh zone carries.
	// Larger values amortize pages-source round trips; smaller values
	// reduce the memory a lightly-used heap holds onto.
	ZoneBlocks int

	// Source supplies and reclaims zone memory. Required; NewHeap
	// panics if it is nil.
	Source PagesSource
}

// DefaultOptions returns Options with a 64-block (32 KiB) zone size,
// matching gopool.DefaultOption's role of giving callers a sane
// starting point without forcing them to understand every knob.
func DefaultOptions(src PagesSource) Options {
	return Options{ZoneBlocks: 64, Source: src}
}
