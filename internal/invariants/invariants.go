// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package invariants

import (
	"runtime"

	"github.com/cockroachdb/blockarray/internal/buildtags"
)

// RaceEnabled is true if we were built with the "race" build tag.
const RaceEnabled = buildtags.Race

// UseFinalizers is true if we want to use finalizers for assertions around
// object lifetime and cleanup. This happens when the invariants tag is set,
// but we exclude race builds because we historically ran into some
// finalizer-related race detector bugs.
const UseFinalizers = !RaceEnabled && buildtags.Invariants

// SetFinalizer is a wrapper around runtime.SetFinalizer that is a no-op under
// race builds or if the invariants build tag is not specified.
func SetFinalizer(obj, finalizer interface{}) {
	if UseFinalizers {
		runtime.SetFinalizer(obj, finalizer)
	}
}

// Integer is a constraint that permits any integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// mangleSeed is the pattern MaybeMangle writes. It is odd so that consecutive
// elements never repeat a value.
const mangleSeed = 0x9e3779b97f4a7c15
