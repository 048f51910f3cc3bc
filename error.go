// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package blockarray

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidConfiguration marks errors returned when an array is requested
	// with a block size that is not a positive power of two or with a block
	// count smaller than one. No Array is returned alongside such an error.
	ErrInvalidConfiguration = errors.New("blockarray: invalid configuration")

	// ErrIndexOutOfRange marks errors returned by element and block accessors
	// when the requested coordinates fall outside the current shape of the
	// array.
	ErrIndexOutOfRange = errors.New("blockarray: index out of range")

	// ErrAllocationFailed marks errors returned when the memory needed for an
	// array or for its growth cannot be represented on this architecture.
	ErrAllocationFailed = errors.New("blockarray: allocation failed")

	// ErrClosed is returned when an operation is attempted on a closed array.
	ErrClosed = errors.New("blockarray: closed")
)

// invalidConfigurationErrorf formats according to a format specifier and
// arguments and constructs an error marked as ErrInvalidConfiguration.
func invalidConfigurationErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidConfiguration)
}

// indexOutOfRangeErrorf formats according to a format specifier and arguments
// and constructs an error marked as ErrIndexOutOfRange.
func indexOutOfRangeErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrIndexOutOfRange)
}

func allocationFailedErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrAllocationFailed)
}
