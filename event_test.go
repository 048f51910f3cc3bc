// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blockarray

import (
	"strings"
	"testing"

	"github.com/cockroachdb/blockarray/internal/base"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestLoggingEventListener(t *testing.T) {
	var log base.InMemLogger
	el := MakeLoggingEventListener(&log)
	a, err := New(&Options{BlockSize: 4, BlockCount: 1, EventListener: &el})
	require.NoError(t, err)
	require.NoError(t, a.Grow())
	require.NoError(t, a.Grow())
	require.NoError(t, a.Close())

	lines := strings.Split(strings.TrimSpace(log.String()), "\n")
	require.Len(t, lines, 5)
	require.Equal(t, "growing from 1 to 2 blocks of 4 elements", lines[0])
	require.True(t, strings.HasPrefix(lines[1], "grew from 1 to 2 blocks of 4 elements; arena "), lines[1])
	require.Equal(t, "growing from 2 to 4 blocks of 4 elements", lines[2])
	require.True(t, strings.HasPrefix(lines[3], "grew from 2 to 4 blocks of 4 elements; arena "), lines[3])
	require.True(t, strings.HasPrefix(lines[4], "closed; released 4 blocks in 3 arenas ("), lines[4])
}

func TestEventListenerGrowInfo(t *testing.T) {
	var begins, ends []GrowInfo
	var closes []CloseInfo
	el := &EventListener{
		GrowBegin: func(info GrowInfo) { begins = append(begins, info) },
		GrowEnd:   func(info GrowInfo) { ends = append(ends, info) },
		Closed:    func(info CloseInfo) { closes = append(closes, info) },
	}
	a, err := New(&Options{BlockSize: 8, BlockCount: 3, EventListener: el})
	require.NoError(t, err)
	require.NoError(t, a.Grow())
	require.NoError(t, a.Close())

	require.Len(t, begins, 1)
	require.False(t, begins[0].Done)
	require.Equal(t, 3, begins[0].OldBlockCount)
	require.Equal(t, 6, begins[0].NewBlockCount)
	require.Equal(t, uint64(3*8*4), begins[0].ArenaBytes)

	require.Len(t, ends, 1)
	require.True(t, ends[0].Done)
	require.NoError(t, ends[0].Err)

	require.Equal(t, []CloseInfo{{BlockCount: 6, Arenas: 2, ArenaBytes: 6 * 8 * 4}}, closes)
}

func TestGrowInfoError(t *testing.T) {
	info := GrowInfo{
		BlockSize:     2,
		OldBlockCount: 4,
		NewBlockCount: 8,
		Err:           errors.New("boom"),
	}
	require.Equal(t, "grow from 4 to 8 blocks error: boom", info.String())

	// Failed growths are logged as errors by the default listener.
	var log base.InMemLogger
	var el EventListener
	el.EnsureDefaults(&log)
	el.GrowEnd(info)
	el.GrowEnd(GrowInfo{Done: true})
	require.Equal(t, "grow from 4 to 8 blocks error: boom\n", log.String())
}

func TestTeeEventListener(t *testing.T) {
	var n1, n2 int
	a := EventListener{GrowEnd: func(GrowInfo) { n1++ }}
	b := EventListener{GrowEnd: func(GrowInfo) { n2++ }}
	el := TeeEventListener(a, b)
	el.GrowBegin(GrowInfo{})
	el.GrowEnd(GrowInfo{})
	el.Closed(CloseInfo{})
	require.Equal(t, 1, n1)
	require.Equal(t, 1, n2)
}

func TestGrowLatency(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "grow_latency",
		Buckets: prometheus.ExponentialBucketsRange(1e-6, 1, 10),
	})
	a, err := New(&Options{BlockSize: 4, GrowLatency: h})
	require.NoError(t, err)
	defer a.Close()
	for i := 0; i < 3; i++ {
		require.NoError(t, a.Grow())
	}
	var m dto.Metric
	require.NoError(t, h.Write(&m))
	require.Equal(t, uint64(3), m.GetHistogram().GetSampleCount())
}
