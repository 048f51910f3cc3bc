// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/blockarray"
	"github.com/cockroachdb/datadriven"
	"github.com/spf13/cobra"
)

// testOptions mirrors the shape the dba binary uses by default.
var testOptions = blockarray.Options{BlockSize: 4096, BlockCount: 32}

func runCommand(opts blockarray.Options, args []string) string {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.AddCommand(New(opts).Commands...)
	c.SetArgs(args)
	c.SetOut(&buf)
	c.SetErr(&buf)
	if err := c.Execute(); err != nil {
		return err.Error()
	}
	return buf.String()
}

func runTests(t *testing.T, path string) {
	paths, err := filepath.Glob(path)
	if err != nil {
		t.Fatal(err)
	}
	root := filepath.Dir(path)
	for {
		next := filepath.Dir(root)
		if next == "." {
			break
		}
		root = next
	}

	for _, path := range paths {
		name, err := filepath.Rel(root, path)
		if err != nil {
			t.Fatal(err)
		}
		t.Run(name, func(t *testing.T) {
			datadriven.RunTest(t, path, func(t *testing.T, d *datadriven.TestData) string {
				args := []string{d.Cmd}
				for _, arg := range d.CmdArgs {
					args = append(args, arg.String())
				}
				args = append(args, strings.Fields(d.Input)...)
				return runCommand(testOptions, args)
			})
		})
	}
}

func TestArray(t *testing.T) {
	runTests(t, "testdata/array")
}
