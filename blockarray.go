// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package blockarray implements a dynamic block array: a growable,
// index-addressable sequence of fixed-width integers stored in fixed-size
// blocks.
//
// The array owns a table of equal-sized blocks. An index is split into a
// segment (the block within the table) and an offset (the element within the
// block) with a shift and a mask, which requires the block size to be a power
// of two. Growing the array doubles the number of blocks: the table of block
// handles is replaced, but the blocks themselves are never moved, so pointers
// to elements and block slices obtained before a Grow remain valid after it.
//
// All the blocks added by a single Grow are carved out of one arena, so
// growing from n to 2n blocks costs one table allocation and one arena
// allocation. Arenas are manually managed and are only released by Close.
//
// An Array is not safe for concurrent use.
package blockarray // import "github.com/cockroachdb/blockarray"

import (
	"fmt"
	"iter"
	"math/bits"
	"os"
	"unsafe"

	"github.com/cockroachdb/blockarray/internal/invariants"
	"github.com/cockroachdb/blockarray/internal/manual"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/errors"
)

// Element is the type of the values stored in an Array.
type Element = int32

const elementSize = unsafe.Sizeof(Element(0))

// maxElements is the largest capacity an Array can reach.
const maxElements = manual.MaxArrayLen / int(elementSize)

// Array is a dynamic block array. Construct one with New.
type Array struct {
	opts *Options

	blockSize  int
	bitCount   uint
	mask       int
	blockCount int
	capacity   int

	// table holds blockCount handles, each exactly blockSize elements long
	// and capped so that appending to a block cannot reach its neighbour.
	// Grow replaces the slice; the handles it copies over are unchanged.
	table [][]Element
	// arenas holds every arena the blocks were carved from, in allocation
	// order. arenas[0] backs the blocks allocated by New, arenas[i] for i > 0
	// backs the second half of the table after the i-th Grow.
	arenas []manual.Buf

	grows     int64
	isClosed  bool
	closeOnce invariants.CloseChecker
}

// New returns a new Array shaped according to opts: opts.BlockCount blocks of
// opts.BlockSize elements, all carved out of a single arena. A nil opts is
// equivalent to the default options. The contents of the new elements are
// unspecified until written.
//
// If the configuration is invalid, New returns a nil Array and an error
// marked as ErrInvalidConfiguration. If the requested capacity cannot be
// allocated on this architecture the error is marked as ErrAllocationFailed.
func New(opts *Options) (*Array, error) {
	opts = opts.Clone()
	opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := checkCapacity(opts.BlockSize, opts.BlockCount); err != nil {
		return nil, err
	}

	a := &Array{
		opts:       opts,
		blockSize:  opts.BlockSize,
		bitCount:   uint(bits.TrailingZeros(uint(opts.BlockSize))),
		mask:       opts.BlockSize - 1,
		blockCount: opts.BlockCount,
		capacity:   opts.BlockSize * opts.BlockCount,
	}
	a.table = make([][]Element, a.blockCount)
	a.carve(a.table)
	invariants.SetFinalizer(a, checkArrayClosed)
	return a, nil
}

// checkArrayClosed is the finalizer of an Array in invariant builds. The arenas
// are manual memory, so an Array that is dropped without Close leaks them.
func checkArrayClosed(obj interface{}) {
	a := obj.(*Array)
	if !a.isClosed {
		fmt.Fprintf(os.Stderr, "%p: block array not closed, leaking %d arenas\n", a, len(a.arenas))
	}
	a.closeOnce.AssertClosed()
}

// checkCapacity returns an error if an array of blockCount blocks of blockSize
// elements would exceed the largest slice this architecture can address.
func checkCapacity(blockSize, blockCount int) error {
	if blockCount > maxElements/blockSize {
		return allocationFailedErrorf(
			"blockarray: %d blocks of %d elements exceed the maximum capacity of %d elements",
			errors.Safe(blockCount), errors.Safe(blockSize), errors.Safe(maxElements))
	}
	return nil
}

// carve allocates a single arena large enough for len(blocks) blocks and
// points the entries of blocks at consecutive ranges of it.
func (a *Array) carve(blocks [][]Element) {
	buf := manual.New(manual.BlockArena, uintptr(len(blocks)*a.blockSize)*elementSize)
	arena := manual.Typed[Element](buf)
	invariants.MaybeMangle(arena)
	for i := range blocks {
		lo, hi := i*a.blockSize, (i+1)*a.blockSize
		invariants.CheckBounds(hi-1, len(arena))
		blocks[i] = arena[lo:hi:hi]
	}
	a.arenas = append(a.arenas, buf)
}

// Size returns the capacity of the array: the number of addressable elements,
// BlockSize() * BlockCount().
func (a *Array) Size() int {
	return a.capacity
}

// BlockSize returns the number of elements per block.
func (a *Array) BlockSize() int {
	return a.blockSize
}

// BlockCount returns the number of blocks in the block table.
func (a *Array) BlockCount() int {
	return a.blockCount
}

// ElementAt returns a pointer to the element at index. It returns an error
// marked as ErrIndexOutOfRange unless 0 <= index < Size().
func (a *Array) ElementAt(index int) (*Element, error) {
	if index < 0 || index >= a.capacity {
		return nil, indexOutOfRangeErrorf("blockarray: index %d out of range [0, %d)",
			errors.Safe(index), errors.Safe(a.capacity))
	}
	return &a.table[index>>a.bitCount][index&a.mask], nil
}

// BlockAt returns the block at segment. The returned slice is BlockSize()
// elements long and stays valid across Grow. It returns an error marked as
// ErrIndexOutOfRange unless 0 <= segment < BlockCount().
func (a *Array) BlockAt(segment int) ([]Element, error) {
	if segment < 0 || segment >= a.blockCount {
		return nil, indexOutOfRangeErrorf("blockarray: segment %d out of range [0, %d)",
			errors.Safe(segment), errors.Safe(a.blockCount))
	}
	return a.table[segment], nil
}

// ElementInBlock returns a pointer to the element at offset within the block
// at segment, bypassing the split of a linear index. Each coordinate is
// checked on its own: the call fails with an error marked as
// ErrIndexOutOfRange unless 0 <= offset < BlockSize() and
// 0 <= segment < BlockCount().
func (a *Array) ElementInBlock(offset, segment int) (*Element, error) {
	if offset < 0 || offset >= a.blockSize {
		return nil, indexOutOfRangeErrorf("blockarray: offset %d out of range [0, %d)",
			errors.Safe(offset), errors.Safe(a.blockSize))
	}
	if segment < 0 || segment >= a.blockCount {
		return nil, indexOutOfRangeErrorf("blockarray: segment %d out of range [0, %d)",
			errors.Safe(segment), errors.Safe(a.blockCount))
	}
	return &a.table[segment][offset], nil
}

// Table returns the block table. The blocks it refers to may be read and
// written in place, but the table itself must not be modified: Grow replaces
// the table, and a table obtained before a Grow keeps describing the shape of
// the array before it.
func (a *Array) Table() [][]Element {
	a.closeOnce.AssertNotClosed()
	return a.table
}

// All returns an iterator over the indexes and elements of the array, in
// table order.
func (a *Array) All() iter.Seq2[int, *Element] {
	a.closeOnce.AssertNotClosed()
	table, bitCount := a.table, a.bitCount
	return func(yield func(int, *Element) bool) {
		for segment, block := range table {
			first := segment << bitCount
			for offset := range block {
				if !yield(first+offset, &block[offset]) {
					return
				}
			}
		}
	}
}

// Grow doubles the number of blocks, and with it the capacity, of the array.
//
// A new block table twice as long is allocated and the existing block handles
// are copied into its first half. The existing blocks are not touched, so
// every index valid before the call still refers to the same element, and
// pointers into existing blocks remain valid. The second half of the table is
// filled with blocks carved out of one new arena; their contents are
// unspecified until written.
//
// If the doubled capacity cannot be addressed on this architecture, Grow
// returns an error marked as ErrAllocationFailed and the array is unchanged.
func (a *Array) Grow() error {
	if a.isClosed {
		return ErrClosed
	}
	old := a.blockCount
	info := GrowInfo{
		BlockSize:     a.blockSize,
		OldBlockCount: old,
		NewBlockCount: 2 * old,
		ArenaBytes:    uint64(old*a.blockSize) * uint64(elementSize),
	}
	a.opts.EventListener.GrowBegin(info)
	if err := checkCapacity(a.blockSize, 2*old); err != nil {
		info.Err = err
		a.opts.EventListener.GrowEnd(info)
		return err
	}

	start := crtime.NowMono()
	table := make([][]Element, 2*old)
	copy(table, a.table)
	a.carve(table[old:])
	a.table = table
	a.blockCount = 2 * old
	a.capacity = a.blockSize * a.blockCount
	a.grows++

	info.Done = true
	info.Duration = start.Elapsed()
	if a.opts.GrowLatency != nil {
		a.opts.GrowLatency.Observe(info.Duration.Seconds())
	}
	a.opts.EventListener.GrowEnd(info)
	return nil
}

// Metrics returns metrics about the shape and memory of the array.
func (a *Array) Metrics() Metrics {
	m := Metrics{
		BlockSize:  a.blockSize,
		BlockCount: a.blockCount,
		Capacity:   a.capacity,
		Grows:      a.grows,
		Arenas:     len(a.arenas),
		TableBytes: uint64(len(a.table)) * uint64(unsafe.Sizeof([]Element(nil))),

		ManualInUseBytes: manual.AllocSize(),
	}
	for _, b := range a.arenas {
		m.ArenaBytes += uint64(b.Len())
	}
	return m
}

// Close releases the memory of the array as a whole. Pointers and blocks
// obtained from the array must not be used afterwards. After Close the array
// has no blocks: accessors report ErrIndexOutOfRange and Grow reports
// ErrClosed. Closing an array twice returns ErrClosed.
func (a *Array) Close() error {
	if a.isClosed {
		return ErrClosed
	}
	a.closeOnce.Close()
	m := a.Metrics()
	for _, b := range a.arenas {
		manual.Free(manual.BlockArena, b)
	}
	a.arenas = nil
	a.table = nil
	a.blockCount = 0
	a.capacity = 0
	a.isClosed = true
	a.opts.EventListener.Closed(CloseInfo{
		BlockCount: m.BlockCount,
		Arenas:     m.Arenas,
		ArenaBytes: m.ArenaBytes,
	})
	return nil
}
