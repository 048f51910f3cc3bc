// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blockarray

import (
	"time"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// GrowInfo contains the info for a growth event.
type GrowInfo struct {
	// BlockSize is the number of elements per block.
	BlockSize int
	// OldBlockCount is the number of blocks before the growth.
	OldBlockCount int
	// NewBlockCount is the number of blocks after the growth. It is always
	// twice OldBlockCount.
	NewBlockCount int
	// ArenaBytes is the size of the single arena allocated for the new blocks.
	ArenaBytes uint64
	// Duration is the time spent growing. Only set on GrowEnd.
	Duration time.Duration
	// Done is set for GrowEnd events.
	Done bool
	// Err is set if the growth failed, in which case the array keeps its old
	// shape.
	Err error
}

func (i GrowInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i GrowInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	if i.Err != nil {
		w.Printf("grow from %d to %d blocks error: %s", i.OldBlockCount, i.NewBlockCount, i.Err)
		return
	}
	if !i.Done {
		w.Printf("growing from %d to %d blocks of %d elements",
			i.OldBlockCount, i.NewBlockCount, i.BlockSize)
		return
	}
	w.Printf("grew from %d to %d blocks of %d elements; arena %s, in %.1fs",
		i.OldBlockCount, i.NewBlockCount, i.BlockSize,
		crhumanize.Bytes(i.ArenaBytes, crhumanize.Compact, crhumanize.OmitI),
		redact.Safe(i.Duration.Seconds()))
}

// CloseInfo contains the info for a close event.
type CloseInfo struct {
	// BlockCount is the number of blocks the array held when it was closed.
	BlockCount int
	// Arenas is the number of arenas released.
	Arenas int
	// ArenaBytes is the total size of the arenas released.
	ArenaBytes uint64
}

func (i CloseInfo) String() string {
	return redact.StringWithoutMarkers(i)
}

// SafeFormat implements redact.SafeFormatter.
func (i CloseInfo) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("closed; released %d blocks in %d arenas (%s)",
		i.BlockCount, i.Arenas, crhumanize.Bytes(i.ArenaBytes, crhumanize.Compact, crhumanize.OmitI))
}

// EventListener contains a set of functions that will be invoked when various
// significant array events occur. Note that the functions should not run for
// an excessive amount of time as they are invoked synchronously by the array
// and may block further operations.
type EventListener struct {
	// GrowBegin is invoked before the array grows.
	GrowBegin func(GrowInfo)

	// GrowEnd is invoked after the array has grown, or failed to.
	GrowEnd func(GrowInfo)

	// Closed is invoked after the array has released its memory.
	Closed func(CloseInfo)
}

// EnsureDefaults ensures that background error events are logged to the
// specified logger if a handler for those events hasn't been otherwise
// specified. Ensure all handlers are non-nil so that we don't have to check
// for nil-ness before invoking.
func (l *EventListener) EnsureDefaults(logger Logger) {
	if l.GrowBegin == nil {
		l.GrowBegin = func(info GrowInfo) {}
	}
	if l.GrowEnd == nil {
		if logger != nil {
			l.GrowEnd = func(info GrowInfo) {
				if info.Err != nil {
					logger.Errorf("%s", info)
				}
			}
		} else {
			l.GrowEnd = func(info GrowInfo) {}
		}
	}
	if l.Closed == nil {
		l.Closed = func(info CloseInfo) {}
	}
}

// MakeLoggingEventListener creates an EventListener that logs all events to the
// specified logger.
func MakeLoggingEventListener(logger Logger) EventListener {
	if logger == nil {
		logger = DefaultLogger
	}

	return EventListener{
		GrowBegin: func(info GrowInfo) {
			logger.Infof("%s", info)
		},
		GrowEnd: func(info GrowInfo) {
			if info.Err != nil {
				logger.Errorf("%s", info)
				return
			}
			logger.Infof("%s", info)
		},
		Closed: func(info CloseInfo) {
			logger.Infof("%s", info)
		},
	}
}

// TeeEventListener wraps two EventListeners, forwarding all events to both.
func TeeEventListener(a, b EventListener) EventListener {
	a.EnsureDefaults(nil)
	b.EnsureDefaults(nil)
	return EventListener{
		GrowBegin: func(info GrowInfo) {
			a.GrowBegin(info)
			b.GrowBegin(info)
		},
		GrowEnd: func(info GrowInfo) {
			a.GrowEnd(info)
			b.GrowEnd(info)
		},
		Closed: func(info CloseInfo) {
			a.Closed(info)
			b.Closed(info)
		},
	}
}
