// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var cmdStat = &cobra.Command{
	Use:   "stat <store>",
	Short: "Describe a store",
	Args:  cobra.ExactArgs(1),
	RunE:  stat,
}

func init() {
	cmdMain.AddCommand(cmdStat)
}

func stat(cmd *cobra.Command, args []string) error {
	r, err := openLocal(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "path\t%s\n", args[0])
	fmt.Fprintf(tw, "mode\t%s\n", r.Mode())
	fmt.Fprintf(tw, "entries\t%s\n", humanize.Comma(int64(r.Len())))
	fmt.Fprintf(tw, "data\t%s\n", humanize.IBytes(r.DataSize()))
	fmt.Fprintf(tw, "index\t%s\n", humanize.IBytes(r.IndexSize()))
	fmt.Fprintf(tw, "size\t%s\n", humanize.IBytes(uint64(r.Size())))
	return tw.Flush()
}
