// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/blockarray"
	"golang.org/x/sync/errgroup"
)

// Fill writes segment*BlockSize()+offset into every element of a, so that the
// value of every element equals its index.
func Fill(a *blockarray.Array) {
	blockSize := a.BlockSize()
	for segment := 0; segment < a.BlockCount(); segment++ {
		block, err := a.BlockAt(segment)
		if err != nil {
			// Unreachable: segment is always below BlockCount().
			panic(err)
		}
		for offset := range block {
			block[offset] = blockarray.Element(segment*blockSize + offset)
		}
	}
}

// FillConcurrently is Fill with the blocks split between up to workers
// goroutines. Blocks are disjoint, so the workers never write the same element.
func FillConcurrently(ctx context.Context, a *blockarray.Array, workers int) error {
	if workers <= 1 {
		Fill(a)
		return nil
	}
	blockSize := a.BlockSize()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for segment, block := range a.Table() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for offset := range block {
				block[offset] = blockarray.Element(segment*blockSize + offset)
			}
			return nil
		})
	}
	return g.Wait()
}

// Checksum returns the xxhash64 of the little-endian encoding of every element
// of a, in table order.
func Checksum(a *blockarray.Array) uint64 {
	d := xxhash.New()
	var buf [4]byte
	for _, block := range a.Table() {
		for _, e := range block {
			binary.LittleEndian.PutUint32(buf[:], uint32(e))
			_, _ = d.Write(buf[:])
		}
	}
	return d.Sum64()
}

// Dump prints every element of a, one per line, in table order, between START
// and END markers.
func Dump(w io.Writer, a *blockarray.Array) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, " --- START ---\n")
	for segment := 0; segment < a.BlockCount(); segment++ {
		for offset := 0; offset < a.BlockSize(); offset++ {
			e, err := a.ElementInBlock(offset, segment)
			if err != nil {
				return err
			}
			fmt.Fprintf(bw, "%4d\n", *e)
		}
	}
	fmt.Fprintf(bw, " --- END ---\n\n")
	return bw.Flush()
}
