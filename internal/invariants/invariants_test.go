// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package invariants

import (
	"testing"

	"github.com/cockroachdb/blockarray/internal/buildtags"
	"github.com/stretchr/testify/require"
)

func TestSafeSub(t *testing.T) {
	require.Equal(t, 3, SafeSub(5, 2))
	if Enabled {
		require.Panics(t, func() { SafeSub(2, 5) })
	} else {
		require.Equal(t, uint64(0), SafeSub(uint64(2), uint64(5)))
	}
}

func TestCheckBounds(t *testing.T) {
	CheckBounds(0, 1)
	CheckBounds(9, 10)
	if Enabled {
		require.Panics(t, func() { CheckBounds(10, 10) })
		require.Panics(t, func() { CheckBounds(-1, 10) })
	}
}

func TestMaybeMangle(t *testing.T) {
	s := make([]int32, 16)
	MaybeMangle(s)
	if !Enabled {
		require.Equal(t, make([]int32, 16), s)
		return
	}
	// Consecutive elements of the pattern differ.
	for i := 1; i < len(s); i++ {
		require.NotEqual(t, s[i-1], s[i])
	}
}

func TestCloseChecker(t *testing.T) {
	var c CloseChecker
	c.AssertNotClosed()
	if Enabled {
		require.Panics(t, c.AssertClosed)
	}
	c.Close()
	c.AssertClosed()
	if Enabled {
		require.Panics(t, c.AssertNotClosed)
		require.Panics(t, c.Close)
	}
}

func TestUseFinalizers(t *testing.T) {
	require.Equal(t, !RaceEnabled && buildtags.Invariants, UseFinalizers)
	if !UseFinalizers {
		// SetFinalizer must not register anything; a mismatched finalizer
		// signature would otherwise make runtime.SetFinalizer throw.
		SetFinalizer(new(int), func(*string) {})
	}
}
