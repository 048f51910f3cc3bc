// Copyright 2020 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

//go:build cgo

package manual

// #include <stdlib.h>
import "C"
import (
	"unsafe"

	"github.com/cockroachdb/blockarray/internal/aligned"
	"github.com/cockroachdb/blockarray/internal/invariants"
)

// The go:linkname directives provides backdoor access to private functions in
// the runtime. Below we're accessing the throw function.

//go:linkname throw runtime.throw
func throw(s string)

// useGoAllocation is used in race-enabled builds to choose some allocations to
// be made using an ordinary Go allocation. This is done under the assumption
// that the Go race detector will not detect races within cgo-allocated memory.
// Performing some allocations using Go allows the race detector to observe
// concurrent memory access to memory allocated by this package.
//
// The choice of which allocations to make using Go is made deterministically
// using a fibonacci hash of the allocation size and a seed derived from an
// arbitrary pointer (which will change from run to run).
func useGoAllocation(n uintptr) bool {
	if !invariants.RaceEnabled {
		return false
	}
	// See https://probablydance.com/2018/06/16/fibonacci-hashing-the-optimization-that-the-world-forgot-or-a-better-alternative-to-integer-modulo/
	const m = 11400714819323198485
	h := goAllocationSeed
	h ^= uint64(n) * m
	return h>>63 == 0
}

// goAllocationSeed is an arbitrary value used to seed the hash function used to
// determine which allocations should be made using Go. See useGoAllocation and
// the init func below.
var goAllocationSeed uint64

func init() {
	if !invariants.RaceEnabled {
		return
	}
	goAllocationSeed = uint64(uintptr(unsafe.Pointer(&goAllocationSeed)))
}

// New allocates a buffer of n bytes. The returned buffer is from manually
// managed memory and MUST be released by calling Free. Failure to do so will
// result in a memory leak.
//
// The contents of the buffer are unspecified: the memory is not zeroed.
func New(purpose Purpose, n uintptr) Buf {
	if n == 0 {
		return Buf{}
	}
	recordAlloc(purpose, n)

	// In race-enabled builds, we make some allocations using Go to allow the
	// race detector to observe concurrent memory access to memory allocated by
	// this package. See the definition of useGoAllocation for more details.
	if invariants.RaceEnabled && useGoAllocation(n) {
		b := aligned.ByteSlice(int(n))
		return Buf{data: unsafe.Pointer(&b[0]), n: n}
	}
	// The buffers handed out by this package only ever hold integers, so the
	// cgo pointer passing rules about Go pointers stored in C memory do not
	// apply and the memory is left uninitialized.
	ptr := C.malloc(C.size_t(n))
	if ptr == nil {
		// NB: throw is like panic, except it guarantees the process will be
		// terminated. The call below is exactly what the Go runtime invokes when
		// it cannot allocate memory.
		throw("out of memory")
	}
	return Buf{data: ptr, n: n}
}

// Free frees the specified buffer. It has to be exactly the buffer that was
// returned by New.
func Free(purpose Purpose, b Buf) {
	if b.n != 0 {
		recordFree(purpose, b.n)

		if !invariants.RaceEnabled || !useGoAllocation(b.n) {
			C.free(b.data)
		}
	}
}
