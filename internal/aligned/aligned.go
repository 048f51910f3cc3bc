// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package aligned

import (
	"fmt"
	"unsafe"
)

// wordSize is the alignment guaranteed by ByteSlice.
const wordSize = unsafe.Sizeof(uint64(0))

// ByteSlice allocates a new byte slice of length n, ensuring the address of the
// beginning of the slice is aligned to 8 bytes, so that it can be
// reinterpreted as a slice of any fixed-width integer type. Go does not
// guarantee that a simple make([]byte, n) is aligned. In practice it often is,
// especially for larger n, but small n can often be misaligned.
func ByteSlice(n int) []byte {
	if n <= 0 {
		return nil
	}
	a := make([]uint64, (uintptr(n)+wordSize-1)/wordSize)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&a[0])), n)

	// Verify alignment.
	if ptr := uintptr(unsafe.Pointer(&b[0])); ptr%wordSize != 0 {
		panic(fmt.Sprintf("allocated []uint64 slice not %d-aligned: pointer %p", wordSize, &b[0]))
	}
	return b
}
