// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blockarray

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

func TestOptionsEnsureDefaults(t *testing.T) {
	var opts Options
	opts.EnsureDefaults()
	require.Equal(t, DefaultBlockSize, opts.BlockSize)
	require.Equal(t, DefaultBlockCount, opts.BlockCount)
	require.NotNil(t, opts.Logger)
	require.NotNil(t, opts.EventListener)
	require.NotNil(t, opts.EventListener.GrowBegin)
	require.NotNil(t, opts.EventListener.GrowEnd)
	require.NotNil(t, opts.EventListener.Closed)
	require.NoError(t, opts.Validate())
}

func TestOptionsClone(t *testing.T) {
	var nilOpts *Options
	require.Equal(t, &Options{}, nilOpts.Clone())

	el := &EventListener{}
	opts := &Options{BlockSize: 8, EventListener: el}
	c := opts.Clone()
	require.Equal(t, 8, c.BlockSize)
	c.EnsureDefaults()
	// The caller's listener is not modified by defaulting the clone.
	require.Nil(t, el.GrowBegin)
	require.Equal(t, 0, opts.BlockCount)
}

func TestOptionsValidate(t *testing.T) {
	testCases := []struct {
		opts     Options
		expected string
	}{
		{Options{BlockSize: 1, BlockCount: 1}, ""},
		{Options{BlockSize: 4096, BlockCount: 32}, ""},
		{Options{BlockSize: 100, BlockCount: 1}, "BlockSize (100) must be a positive power of two"},
		{Options{BlockSize: 0, BlockCount: 1}, "BlockSize (0) must be a positive power of two"},
		{Options{BlockSize: 8, BlockCount: 0}, "BlockCount (0) must be >= 1"},
		{Options{BlockSize: -2, BlockCount: -2},
			"BlockSize (-2) must be a positive power of two\nBlockCount (-2) must be >= 1"},
	}
	for _, c := range testCases {
		err := c.opts.Validate()
		if c.expected == "" {
			require.NoError(t, err)
			continue
		}
		require.EqualError(t, err, c.expected)
		require.True(t, errors.Is(err, ErrInvalidConfiguration))
	}
}

func TestOptionsString(t *testing.T) {
	opts := &Options{BlockSize: 4096, BlockCount: 32}
	require.Equal(t, `[Version]
  blockarray_version=0.1

[Options]
  block_count=32
  block_size=4096
`, opts.String())
}

func TestOptionsParse(t *testing.T) {
	opts := &Options{BlockSize: 4096, BlockCount: 32}
	var parsed Options
	require.NoError(t, parsed.Parse(opts.String(), nil))
	require.Equal(t, 4096, parsed.BlockSize)
	require.Equal(t, 32, parsed.BlockCount)

	// Unset keys are left alone; comments and blank lines are skipped.
	parsed = Options{BlockSize: 16, BlockCount: 2}
	require.NoError(t, parsed.Parse(`
# only the count
; another comment
[Options]
  block_count = 8
`, nil))
	require.Equal(t, 16, parsed.BlockSize)
	require.Equal(t, 8, parsed.BlockCount)
}

func TestOptionsParseErrors(t *testing.T) {
	var opts Options
	err := opts.Parse("[Options]\n  block_size\n", nil)
	require.EqualError(t, err, `invalid key=value syntax: "block_size"`)
	require.True(t, errors.Is(err, ErrInvalidConfiguration))

	err = opts.Parse("[Options]\n  block_size=big\n", nil)
	require.EqualError(t, err, `blockarray: invalid value for Options.block_size: "big"`)
	require.True(t, errors.Is(err, ErrInvalidConfiguration))

	err = opts.Parse("[Options]\n  zero_new_blocks=true\n", nil)
	require.EqualError(t, err, "blockarray: unknown option: Options.zero_new_blocks")

	err = opts.Parse("[Version]\n  pebble_version=0.1\n", nil)
	require.EqualError(t, err, "blockarray: unknown option: Version.pebble_version")

	err = opts.Parse("[Extra]\n  a=b\n", nil)
	require.EqualError(t, err, `blockarray: unknown section: "Extra"`)

	var skipped []string
	hooks := &ParseHooks{
		SkipUnknown: func(name, value string) bool {
			skipped = append(skipped, name+"="+value)
			return true
		},
	}
	require.NoError(t, opts.Parse("[Options]\n  zero_new_blocks=true\n  block_size=32\n[Extra]\n  a=b\n", hooks))
	require.Equal(t, []string{"Options.zero_new_blocks=true", "Extra.a=b"}, skipped)
	require.Equal(t, 32, opts.BlockSize)
}
