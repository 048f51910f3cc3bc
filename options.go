// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blockarray

import (
	"bytes"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/cockroachdb/blockarray/internal/base"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultBlockSize is the number of elements per block used when
	// Options.BlockSize is left unset.
	DefaultBlockSize = 256
	// DefaultBlockCount is the number of blocks allocated at construction when
	// Options.BlockCount is left unset.
	DefaultBlockCount = 1
)

// Logger defines an interface for writing log messages.
type Logger = base.Logger

// DefaultLogger logs to the Go stdlib logs.
var DefaultLogger = base.DefaultLogger

// Options holds the optional parameters for configuring a block array. The
// zero values for these parameters are not generally valid; call
// EnsureDefaults to fill them in. New does this on a copy of the options it
// is given.
type Options struct {
	// BlockSize is the number of elements held by every block. It must be a
	// power of two so that an index can be split into a segment and an offset
	// with a shift and a mask.
	//
	// The default value is 256.
	BlockSize int

	// BlockCount is the number of blocks allocated at construction. Every Grow
	// doubles it.
	//
	// The default value is 1.
	BlockCount int

	// EventListener provides hooks to listening to significant array events
	// such as growth. Nil hooks are filled in with no-ops by EnsureDefaults.
	EventListener *EventListener

	// Logger used to write log messages.
	//
	// The default logger uses the Go standard library log package.
	Logger Logger

	// GrowLatency, if set, observes the duration of every successful Grow, in
	// seconds.
	GrowLatency prometheus.Histogram
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified.
func (o *Options) EnsureDefaults() {
	if o.BlockSize == 0 {
		o.BlockSize = DefaultBlockSize
	}
	if o.BlockCount == 0 {
		o.BlockCount = DefaultBlockCount
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	if o.EventListener == nil {
		o.EventListener = &EventListener{}
	}
	o.EventListener.EnsureDefaults(o.Logger)
}

// Clone creates a shallow-copy of the supplied options. A nil receiver yields
// the zero options.
func (o *Options) Clone() *Options {
	if o == nil {
		return &Options{}
	}
	n := &Options{}
	*n = *o
	if o.EventListener != nil {
		el := *o.EventListener
		n.EventListener = &el
	}
	return n
}

// Validate verifies that the options are mutually consistent. For example,
// BlockSize must be a power of two. Errors are marked as
// ErrInvalidConfiguration.
func (o *Options) Validate() error {
	// Note that we can presume Options.EnsureDefaults has been called, so there
	// is no need to check for zero values.

	var buf strings.Builder
	if o.BlockSize <= 0 || bits.OnesCount(uint(o.BlockSize)) != 1 {
		fmt.Fprintf(&buf, "BlockSize (%d) must be a positive power of two\n", o.BlockSize)
	}
	if o.BlockCount < 1 {
		fmt.Fprintf(&buf, "BlockCount (%d) must be >= 1\n", o.BlockCount)
	}
	if buf.Len() == 0 {
		return nil
	}
	return invalidConfigurationErrorf("%s", errors.Safe(strings.TrimSuffix(buf.String(), "\n")))
}

// String implements fmt.Stringer, producing the options in the INI-style
// format understood by Parse.
func (o *Options) String() string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "[Version]\n")
	fmt.Fprintf(&buf, "  blockarray_version=0.1\n")
	fmt.Fprintf(&buf, "\n")
	fmt.Fprintf(&buf, "[Options]\n")
	fmt.Fprintf(&buf, "  block_count=%d\n", o.BlockCount)
	fmt.Fprintf(&buf, "  block_size=%d\n", o.BlockSize)
	return buf.String()
}

// ParseHooks contains callbacks consulted while parsing options.
type ParseHooks struct {
	// SkipUnknown, if set, is asked whether an unknown key ("section.key")
	// should be ignored instead of failing the parse.
	SkipUnknown func(name, value string) bool
}

// Parse parses the options from the specified string, in the format produced
// by String. Unset keys keep their current values.
func (o *Options) Parse(s string, hooks *ParseHooks) error {
	skip := func(section, key, value string) bool {
		return hooks != nil && hooks.SkipUnknown != nil && hooks.SkipUnknown(section+"."+key, value)
	}
	return parseOptions(s, func(section, key, value string) error {
		switch section {
		case "Version":
			switch key {
			case "blockarray_version":
			default:
				if skip(section, key, value) {
					return nil
				}
				return errors.Errorf("blockarray: unknown option: %s.%s",
					errors.Safe(section), errors.Safe(key))
			}
			return nil

		case "Options":
			var err error
			switch key {
			case "block_count":
				o.BlockCount, err = strconv.Atoi(value)
			case "block_size":
				o.BlockSize, err = strconv.Atoi(value)
			default:
				if skip(section, key, value) {
					return nil
				}
				return errors.Errorf("blockarray: unknown option: %s.%s",
					errors.Safe(section), errors.Safe(key))
			}
			if err != nil {
				return invalidConfigurationErrorf("blockarray: invalid value for %s.%s: %q",
					errors.Safe(section), errors.Safe(key), value)
			}
			return nil

		default:
			if skip(section, key, value) {
				return nil
			}
			return errors.Errorf("blockarray: unknown section: %q", errors.Safe(section))
		}
	})
}

// parseOptions takes options serialized by Options.String() and parses them
// into sections, keys and values, calling visitKeyValue for each key-value
// pair. Blank lines and lines starting with ';' or '#' are skipped.
func parseOptions(s string, visitKeyValue func(section, key, value string) error) error {
	var section string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' || line[0] == '#' {
			continue
		}
		n := len(line)
		if line[0] == '[' && line[n-1] == ']' {
			section = line[1 : n-1]
			continue
		}

		pos := strings.Index(line, "=")
		if pos < 0 {
			const maxLen = 50
			if len(line) > maxLen {
				line = line[:maxLen-3] + "..."
			}
			return invalidConfigurationErrorf("invalid key=value syntax: %q", errors.Safe(line))
		}

		key := strings.TrimSpace(line[:pos])
		value := strings.TrimSpace(line[pos+1:])
		if err := visitKeyValue(section, key, value); err != nil {
			return err
		}
	}
	return nil
}
