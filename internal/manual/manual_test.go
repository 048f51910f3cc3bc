// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package manual

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/blockarray/internal/buildtags"
	"github.com/cockroachdb/blockarray/internal/invariants"
	"github.com/stretchr/testify/require"
)

func TestNewFree(t *testing.T) {
	before := GetMetrics()[BlockArena]

	b := New(BlockArena, 4096)
	require.NotNil(t, b.Data())
	require.Equal(t, uintptr(4096), b.Len())
	require.Len(t, b.Slice(), 4096)
	require.Zero(t, uintptr(b.Data())%unsafe.Sizeof(int64(0)))

	m := GetMetrics()[BlockArena]
	require.Equal(t, before.TotalBytes+4096, m.TotalBytes)
	require.Equal(t, before.InUseBytes+4096, m.InUseBytes)

	Free(BlockArena, b)
	m = GetMetrics()[BlockArena]
	require.Equal(t, before.TotalBytes+4096, m.TotalBytes)
	require.Equal(t, before.InUseBytes, m.InUseBytes)
}

func TestZeroLength(t *testing.T) {
	b := New(BlockArena, 0)
	require.Nil(t, b.Data())
	require.Nil(t, Typed[int32](b))
	// Freeing an empty buffer is a no-op.
	Free(BlockArena, b)
}

func TestTyped(t *testing.T) {
	b := New(BlockArena, 64*4)
	defer Free(BlockArena, b)

	s := Typed[int32](b)
	require.Len(t, s, 64)
	for i := range s {
		s[i] = int32(i)
	}
	// The typed view aliases the raw buffer.
	require.Equal(t, unsafe.Pointer(&s[0]), b.Data())
	require.Equal(t, int32(63), Typed[int32](b)[63])
}

func TestAllocSize(t *testing.T) {
	before := AllocSize()
	b := New(BlockArena, 1024)
	require.Equal(t, before+1024, AllocSize())
	Free(BlockArena, b)
	require.Equal(t, before, AllocSize())
}

func TestAllocator(t *testing.T) {
	switch {
	case !buildtags.Cgo:
		require.Equal(t, "go", Allocator())
	case invariants.RaceEnabled:
		require.Equal(t, "malloc+go", Allocator())
	default:
		require.Equal(t, "malloc", Allocator())
	}
}
