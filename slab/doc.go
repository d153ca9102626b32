// Package slab implements the core metadata-and-bitmap machinery of a
// thread-caching slab allocator: the 512-byte block format, inline
// bitmap slot encoding for the four fixed-size classes, the
// variable-size block layout, pointer-to-metadata reverse lookup, and
// the CAS protocol that serializes slot transitions without mutexes.
//
// A process using this package carves memory obtained from a
// pages.Source into B-byte (512) blocks. Each block holds either a
// chain of fixed-size allocation sub-blocks, one variable-size
// allocation block, or a master block used for zone bookkeeping.
// Given any pointer previously returned by Heap.AllocFixed or
// Heap.AllocVariable, the owning block can be found in O(1) by masking
// the pointer down to its enclosing 512-byte boundary and inspecting
// that block's final word.
package slab
