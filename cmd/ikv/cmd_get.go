// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bpowers/ikv"
	"github.com/bpowers/ikv/fingerprint"
)

var errNotFound = errors.New("not found")

var cmdGet = &cobra.Command{
	Use:   "get <store> <key>",
	Short: "Print the value stored under a key",
	Long: `Print the value stored under the fingerprint of key.  With --backend, store
is an object key in --bucket rather than a local path.`,
	Args: cobra.ExactArgs(2),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindRemoteFlags(cmd.Flags())
	},
	RunE: get,
}

var flagGet struct {
	SizeUnaware bool
	Length      int
}

func init() {
	cmdMain.AddCommand(cmdGet)
	cmdGet.Flags().BoolVar(&flagGet.SizeUnaware, "size-unaware", false, "The store was built with --size-unaware")
	cmdGet.Flags().IntVar(&flagGet.Length, "length", -1, "Number of bytes to print from a size-unaware store (default: to the end of the data)")
	addRemoteFlags(cmdGet.Flags())
}

func get(cmd *cobra.Command, args []string) error {
	src, err := openSource(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	mode := modeFlag(flagGet.SizeUnaware)
	r, err := ikv.NewReader(src, mode, ikv.WithReaderLogger(logger))
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	fp := fingerprint.String(args[1])
	var value []byte
	var found bool
	switch {
	case mode == ikv.SizeAware:
		value, found, err = r.Get(fp)
	case flagGet.Length >= 0:
		value, found, err = r.GetPrefix(fp, flagGet.Length)
	default:
		value, found, err = r.GetUnbounded(fp)
	}
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%q: %w", args[1], errNotFound)
	}

	logger.Debug("found value", "fingerprint", fmt.Sprintf("%#08x", fp), "len", len(value))
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s\n", value)
	return err
}
