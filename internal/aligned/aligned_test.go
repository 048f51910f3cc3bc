// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package aligned

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestByteSlice(t *testing.T) {
	require.Nil(t, ByteSlice(0))
	for _, n := range []int{1, 3, 7, 8, 9, 100, 4096, 4097} {
		b := ByteSlice(n)
		require.Len(t, b, n)
		require.Zero(t, uintptr(unsafe.Pointer(&b[0]))%wordSize, "n=%d", n)
	}
}
