// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blockarray

import (
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// Metrics holds metrics for the shape and memory of a block array.
type Metrics struct {
	// BlockSize is the number of elements per block.
	BlockSize int
	// BlockCount is the number of blocks in the block table.
	BlockCount int
	// Capacity is BlockSize * BlockCount.
	Capacity int
	// Grows is the number of successful calls to Grow.
	Grows int64
	// Arenas is the number of arenas backing the blocks: one allocated at
	// construction plus one per growth.
	Arenas int
	// ArenaBytes is the total size of the arenas.
	ArenaBytes uint64
	// TableBytes is the size of the current block table, i.e. of the block
	// handles but not of the blocks they refer to.
	TableBytes uint64
	// ManualInUseBytes is the manually allocated memory in use by the whole
	// process, across all arrays. Arrays that are not closed keep it from
	// returning to its baseline.
	ManualInUseBytes uint64
}

func (m *Metrics) String() string {
	return redact.StringWithoutMarkers(m)
}

var _ redact.SafeFormatter = &Metrics{}

// SafeFormat implements redact.SafeFormatter.
func (m *Metrics) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("blocks: %d x %d elements\n", m.BlockCount, m.BlockSize)
	w.Printf("capacity: %s\n", crhumanize.Count(uint64(m.Capacity), crhumanize.Compact))
	w.Printf("arenas: %d (%s)\n", m.Arenas,
		crhumanize.Bytes(m.ArenaBytes, crhumanize.Compact, crhumanize.OmitI))
	w.Printf("table: %s\n", crhumanize.Bytes(m.TableBytes, crhumanize.Compact, crhumanize.OmitI))
	w.Printf("grows: %d\n", m.Grows)
	w.Printf("manual: %s in use\n",
		crhumanize.Bytes(m.ManualInUseBytes, crhumanize.Compact, crhumanize.OmitI))
}
