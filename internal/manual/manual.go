// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package manual

import (
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/blockarray/internal/buildtags"
	"github.com/cockroachdb/blockarray/internal/invariants"
)

// Purpose identifies the use-case for an allocation.
type Purpose uint8

const (
	_ Purpose = iota

	// BlockArena is an arena carved into the blocks of a block array. One is
	// allocated at construction and one per growth.
	BlockArena

	NumPurposes
)

// Metrics contains memory statistics by purpose.
type Metrics [NumPurposes]struct {
	// InUseBytes is the total number of bytes currently allocated. This is just
	// the sum of the lengths of the allocations and does not include any overhead
	// or fragmentation.
	InUseBytes uint64

	// TotalBytes is the total cumulative number of bytes allocated since the
	// process started. This is just the sum of the lengths of the allocations and
	// does not include any overhead or fragmentation.
	TotalBytes uint64
}

var counters [NumPurposes]struct {
	TotalAllocated atomic.Uint64
	TotalFreed     atomic.Uint64
	// Pad to separate counters into cache lines. This reduces the overhead when
	// multiple purposes are used frequently. We assume 64 byte cache line size
	// which is the case for ARM64 servers and AMD64.
	_ [6]uint64
}

func recordAlloc(purpose Purpose, n uintptr) {
	counters[purpose].TotalAllocated.Add(uint64(n))
}

func recordFree(purpose Purpose, n uintptr) {
	counters[purpose].TotalFreed.Add(uint64(n))
}

// GetMetrics returns manual memory usage statistics.
func GetMetrics() Metrics {
	var res Metrics
	for i := range res {
		// Load the frees first so that a concurrent alloc/free pair cannot make
		// them exceed the allocations.
		freed := counters[i].TotalFreed.Load()
		res[i].TotalBytes = counters[i].TotalAllocated.Load()
		res[i].InUseBytes = invariants.SafeSub(res[i].TotalBytes, freed)
	}
	return res
}

// AllocSize returns the size of memory that is currently manually
// allocated, across all purposes.
func AllocSize() uint64 {
	var n uint64
	for _, m := range GetMetrics() {
		n += m.InUseBytes
	}
	return n
}

// Allocator names the allocator buffers are obtained from: "malloc" in cgo
// builds and "go" otherwise. Race builds with cgo serve a deterministic subset
// of sizes from the Go heap and report "malloc+go".
func Allocator() string {
	switch {
	case !buildtags.Cgo:
		return "go"
	case invariants.RaceEnabled:
		return "malloc+go"
	default:
		return "malloc"
	}
}

// Buf is a buffer allocated using this package.
type Buf struct {
	data unsafe.Pointer
	n    uintptr
}

// Data returns a pointer to the buffer data. If the buffer is not initialized
// (or is the result of calling New with a zero length), returns nil.
func (b Buf) Data() unsafe.Pointer {
	return b.data
}

// Len returns the length of the buffer in bytes.
func (b Buf) Len() uintptr {
	return b.n
}

// Slice converts the buffer to a byte slice.
func (b Buf) Slice() []byte {
	return unsafe.Slice((*byte)(b.data), b.n)
}

// Typed reinterprets the buffer as a slice of T. The length of the buffer must
// be a multiple of the size of T; trailing bytes are ignored. T must not
// contain Go pointers.
func Typed[T any](b Buf) []T {
	if b.data == nil {
		return nil
	}
	var zero T
	return unsafe.Slice((*T)(b.data), b.n/unsafe.Sizeof(zero))
}
