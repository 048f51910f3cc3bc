// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package tool provides the command-line tooling built on top of a block
// array: filling it with verification values, dumping it, probing it,
// reporting its memory layout and benchmarking element access.
package tool

import (
	"github.com/cockroachdb/blockarray"
	"github.com/spf13/cobra"
)

// T is the container for all of the block array tools.
type T struct {
	Commands []*cobra.Command
	array    *arrayT
	opts     blockarray.Options
}

// New creates a new set of block array tools. The options supply the shape of
// the arrays the tools build unless it is overridden on the command line.
func New(opts blockarray.Options) *T {
	t := &T{opts: opts}
	t.array = newArray(&t.opts)
	t.Commands = []*cobra.Command{
		t.array.Root,
	}
	return t
}
