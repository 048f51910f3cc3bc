// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
	"unsafe"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/cockroachdb/blockarray"
	"github.com/cockroachdb/blockarray/internal/manual"
	"github.com/cockroachdb/crlib/crtime"
	"github.com/cockroachdb/errors"
	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"
)

// arrayT implements the block array tools, including both configuration
// state and the commands themselves.
type arrayT struct {
	Root     *cobra.Command
	Dump     *cobra.Command
	Probe    *cobra.Command
	Stats    *cobra.Command
	Bench    *cobra.Command
	Checksum *cobra.Command
	Options  *cobra.Command

	opts *blockarray.Options

	// Flags.
	optionsFile string
	blockSize   int
	blockCount  int
	grows       int
	verbose     bool
	workers     int

	probeIndex       int
	probeSegment     int
	probeBlockOffset int
	probeOffset      int
	probeOffsetSeg   int

	benchOps  int
	benchSeed uint64

	statsPlot bool
}

func newArray(opts *blockarray.Options) *arrayT {
	a := &arrayT{opts: opts}

	a.Root = &cobra.Command{
		Use:   "array",
		Short: "block array tools",
	}
	a.Dump = &cobra.Command{
		Use:   "dump",
		Short: "print the contents of a filled array",
		Long: `
Build an array, fill every element with its own index and print all of the
elements in table order.
`,
		Args: cobra.NoArgs,
		Run:  a.runDump,
	}
	a.Probe = &cobra.Command{
		Use:   "probe",
		Short: "probe a filled array through each accessor",
		Long: `
Build an array, fill every element with its own index and read one element
by linear index, one element of a whole block and one element by
(offset, segment) coordinates.
`,
		Args: cobra.NoArgs,
		Run:  a.runProbe,
	}
	a.Stats = &cobra.Command{
		Use:   "stats",
		Short: "print the shape and arenas of an array",
		Args:  cobra.NoArgs,
		Run:   a.runStats,
	}
	a.Bench = &cobra.Command{
		Use:   "bench",
		Short: "measure random element access latency",
		Args:  cobra.NoArgs,
		Run:   a.runBench,
	}
	a.Checksum = &cobra.Command{
		Use:   "checksum",
		Short: "print the xxhash64 of a filled array",
		Args:  cobra.NoArgs,
		Run:   a.runChecksum,
	}
	a.Options = &cobra.Command{
		Use:   "options",
		Short: "print the effective options",
		Args:  cobra.NoArgs,
		Run:   a.runOptions,
	}

	a.Root.AddCommand(a.Dump, a.Probe, a.Stats, a.Bench, a.Checksum, a.Options)

	pf := a.Root.PersistentFlags()
	pf.StringVar(&a.optionsFile, "options", "", "read options from the given OPTIONS-style file")
	pf.IntVar(&a.blockSize, "block-size", 0, "elements per block (a power of two)")
	pf.IntVar(&a.blockCount, "block-count", 0, "initial number of blocks")
	pf.IntVarP(&a.grows, "grow", "g", 0, "number of times to grow the array after construction")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log array events")
	pf.IntVarP(&a.workers, "workers", "w", 1, "number of goroutines filling the array")

	a.Probe.Flags().IntVar(&a.probeIndex, "index", 10056, "linear index to read")
	a.Probe.Flags().IntVar(&a.probeSegment, "block", 85, "segment of the block to read")
	a.Probe.Flags().IntVar(&a.probeBlockOffset, "block-offset", 2, "element to read within --block")
	a.Probe.Flags().IntVar(&a.probeOffset, "offset", 534, "offset of the coordinate read")
	a.Probe.Flags().IntVar(&a.probeOffsetSeg, "segment", 1034, "segment of the coordinate read")

	a.Stats.Flags().BoolVar(&a.statsPlot, "plot", false, "plot the latency of each growth")

	a.Bench.Flags().IntVarP(&a.benchOps, "ops", "n", 1000000, "number of random reads")
	a.Bench.Flags().Uint64Var(&a.benchSeed, "seed", 1, "random seed")
	return a
}

// buildOptions returns the options for the command: the tool's options,
// overridden by the options file and then by explicitly set flags.
func (a *arrayT) buildOptions(cmd *cobra.Command) (*blockarray.Options, error) {
	opts := a.opts.Clone()
	if a.optionsFile != "" {
		data, err := os.ReadFile(a.optionsFile)
		if err != nil {
			return nil, err
		}
		if err := opts.Parse(string(data), nil); err != nil {
			return nil, errors.Wrapf(err, "%s", a.optionsFile)
		}
	}
	if cmd.Flags().Changed("block-size") {
		opts.BlockSize = a.blockSize
	}
	if cmd.Flags().Changed("block-count") {
		opts.BlockCount = a.blockCount
	}
	if a.verbose {
		el := blockarray.MakeLoggingEventListener(&writerLogger{w: cmd.ErrOrStderr()})
		opts.EventListener = &el
	}
	return opts, nil
}

// open builds an array according to the command's options and grows it the
// requested number of times.
func (a *arrayT) open(opts *blockarray.Options) (*blockarray.Array, error) {
	arr, err := blockarray.New(opts)
	if err != nil {
		return nil, err
	}
	for i := 0; i < a.grows; i++ {
		if err := arr.Grow(); err != nil {
			_ = arr.Close()
			return nil, err
		}
	}
	return arr, nil
}

func (a *arrayT) openFilled(cmd *cobra.Command) (*blockarray.Array, error) {
	opts, err := a.buildOptions(cmd)
	if err != nil {
		return nil, err
	}
	arr, err := a.open(opts)
	if err != nil {
		return nil, err
	}
	if err := FillConcurrently(context.Background(), arr, a.workers); err != nil {
		_ = arr.Close()
		return nil, err
	}
	return arr, nil
}

func (a *arrayT) runDump(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	arr, err := a.openFilled(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer arr.Close()
	if err := Dump(stdout, arr); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
	}
}

func (a *arrayT) runProbe(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	arr, err := a.openFilled(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer arr.Close()

	report := func(v blockarray.Element, err error) {
		if err != nil {
			fmt.Fprintf(stdout, "\tError: out of index!\n")
			if a.verbose {
				fmt.Fprintf(stderr, "%s\n", err)
			}
			return
		}
		fmt.Fprintf(stdout, "\t%d\n", v)
	}

	fmt.Fprintf(stdout, "> ElementAt(%d) test\n", a.probeIndex)
	report(deref(arr.ElementAt(a.probeIndex)))

	fmt.Fprintf(stdout, "> BlockAt(%d)[%d] test\n", a.probeSegment, a.probeBlockOffset)
	block, err := arr.BlockAt(a.probeSegment)
	if err == nil && (a.probeBlockOffset < 0 || a.probeBlockOffset >= len(block)) {
		err = errors.Newf("block offset %d out of range [0, %d)", a.probeBlockOffset, len(block))
	}
	if err != nil {
		report(0, err)
	} else {
		report(block[a.probeBlockOffset], nil)
	}

	fmt.Fprintf(stdout, "> ElementInBlock(%d, %d) test\n", a.probeOffset, a.probeOffsetSeg)
	report(deref(arr.ElementInBlock(a.probeOffset, a.probeOffsetSeg)))
}

func deref(e *blockarray.Element, err error) (blockarray.Element, error) {
	if err != nil {
		return 0, err
	}
	return *e, nil
}

func (a *arrayT) runStats(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	opts, err := a.buildOptions(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	growLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "blockarray",
		Name:      "grow_latency_seconds",
		Help:      "Latency of growing the block array.",
		Buckets:   prometheus.ExponentialBucketsRange(float64(time.Microsecond)/1e9, 10, 20),
	})
	opts.GrowLatency = growLatency
	var latencies []float64
	collect := blockarray.EventListener{
		GrowEnd: func(info blockarray.GrowInfo) {
			if info.Err == nil {
				latencies = append(latencies, float64(info.Duration.Microseconds()))
			}
		},
	}
	if opts.EventListener != nil {
		collect = blockarray.TeeEventListener(*opts.EventListener, collect)
	}
	opts.EventListener = &collect
	arr, err := a.open(opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer arr.Close()

	m := arr.Metrics()
	fmt.Fprintf(stdout, "%s", m.String())
	fmt.Fprintf(stdout, "allocator: %s\n", manual.Allocator())

	var pm dto.Metric
	if err := growLatency.Write(&pm); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	if n := pm.GetHistogram().GetSampleCount(); n > 0 {
		mean := time.Duration(pm.GetHistogram().GetSampleSum() / float64(n) * 1e9)
		fmt.Fprintf(stdout, "grow latency: %d samples, mean %s\n", n, mean)
	}

	// Arena 0 backs the blocks allocated at construction, arena i > 0 backs
	// the blocks appended by the i-th growth.
	initial := m.BlockCount >> m.Grows
	table := tablewriter.NewWriter(stdout)
	table.SetHeader([]string{"arena", "first segment", "blocks", "bytes"})
	for i := 0; i < m.Arenas; i++ {
		first, blocks := 0, initial
		if i > 0 {
			first, blocks = initial<<(i-1), initial<<(i-1)
		}
		table.Append([]string{
			strconv.Itoa(i),
			strconv.Itoa(first),
			strconv.Itoa(blocks),
			strconv.Itoa(blocks * m.BlockSize * int(unsafe.Sizeof(blockarray.Element(0)))),
		})
	}
	table.Render()

	if a.statsPlot && len(latencies) > 0 {
		fmt.Fprintf(stdout, "grow latency (us):\n%s\n", asciigraph.Plot(latencies, asciigraph.Height(10)))
	}
}

func (a *arrayT) runBench(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	arr, err := a.openFilled(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer arr.Close()

	hist := hdrhistogram.New(1, int64(time.Second), 3)
	rng := rand.New(rand.NewSource(a.benchSeed))
	var sum int64
	for i := 0; i < a.benchOps; i++ {
		index := rng.Intn(arr.Size())
		start := crtime.NowMono()
		e, err := arr.ElementAt(index)
		elapsed := start.Elapsed()
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
		if *e != blockarray.Element(index) {
			fmt.Fprintf(stderr, "index %d holds %d\n", index, *e)
			return
		}
		sum += int64(*e)
		_ = hist.RecordValue(max(int64(elapsed), 1))
	}

	fmt.Fprintf(stdout, "ops:  %d\n", hist.TotalCount())
	for _, q := range []float64{50, 90, 99, 99.9} {
		fmt.Fprintf(stdout, "p%-4s %s\n", strconv.FormatFloat(q, 'f', -1, 64)+":",
			time.Duration(hist.ValueAtQuantile(q)))
	}
	fmt.Fprintf(stdout, "max:  %s\n", time.Duration(hist.Max()))
	if a.verbose {
		fmt.Fprintf(stderr, "checksum %d\n", sum)
	}
}

func (a *arrayT) runChecksum(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	arr, err := a.openFilled(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	defer arr.Close()
	fmt.Fprintf(stdout, "%016x\n", Checksum(arr))
}

func (a *arrayT) runOptions(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	opts, err := a.buildOptions(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	opts.EnsureDefaults()
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	fmt.Fprint(stdout, opts.String())
}

// writerLogger is a blockarray.Logger that writes one line per message to w.
type writerLogger struct {
	w io.Writer
}

func (l *writerLogger) Infof(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format+"\n", args...)
}

func (l *writerLogger) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format+"\n", args...)
}

func (l *writerLogger) Fatalf(format string, args ...interface{}) {
	fmt.Fprintf(l.w, format+"\n", args...)
	os.Exit(1)
}
