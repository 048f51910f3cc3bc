// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package main

import (
	"log"
	"os"

	"github.com/cockroachdb/blockarray"
	"github.com/cockroachdb/blockarray/tool"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dba [command] (flags)",
	Short: "block array introspection and benchmarking tool",
	Long:  ``,
}

func main() {
	log.SetFlags(0)

	cobra.EnableCommandSorting = false
	t := tool.New(blockarray.Options{
		BlockSize:  4096,
		BlockCount: 32,
	})
	rootCmd.AddCommand(t.Commands...)

	if err := rootCmd.Execute(); err != nil {
		// Cobra has already printed the error message.
		os.Exit(1)
	}
}
