// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package base

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemLogger(t *testing.T) {
	var l InMemLogger
	l.Infof("grew to %d blocks", 64)
	l.Errorf("failed: %s\n", "boom")
	require.Equal(t, "grew to 64 blocks\nfailed: boom\n", l.String())
	l.Reset()
	require.Equal(t, "", l.String())
	require.Panics(t, func() { l.Fatalf("fatal") })
	require.Equal(t, "fatal\n", l.String())
}
