// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bpowers/ikv"
	"github.com/bpowers/ikv/fingerprint"
)

var cmdVerify = &cobra.Command{
	Use:   "verify <store>",
	Short: "Check a store's index, and optionally its contents",
	Long: `Check that a store's index is sorted and that every entry lies within the
data segment.  With --input, also check that every key in the input file maps
to the value first written for it.`,
	Args: cobra.ExactArgs(1),
	RunE: verify,
}

var flagVerify struct {
	Input   string
	Workers int
}

func init() {
	cmdMain.AddCommand(cmdVerify)
	cmdVerify.Flags().StringVar(&flagVerify.Input, "input", "", "key:value file the store was built from")
	cmdVerify.Flags().IntVar(&flagVerify.Workers, "workers", runtime.NumCPU(), "Number of concurrent checkers")
}

type expectedValue struct {
	fp    uint32
	value []byte
}

func verify(cmd *cobra.Command, args []string) error {
	r, err := openLocal(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = r.Close() }()

	if err := r.Verify(); err != nil {
		return err
	}
	logger.Info("index ok", "entries", humanize.Comma(int64(r.Len())))

	if flagVerify.Input == "" {
		return nil
	}
	expected, err := readExpected(flagVerify.Input)
	if err != nil {
		return err
	}
	if err := checkValues(r, expected, max(flagVerify.Workers, 1)); err != nil {
		return err
	}
	logger.Info("values ok", "checked", humanize.Comma(int64(len(expected))))
	return nil
}

// readExpected returns the value a lookup should produce for every
// fingerprint in the input: the first one written under it.
func readExpected(path string) ([]expectedValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	seen := make(map[uint32]bool)
	var expected []expectedValue
	err = forEachLine(f, func(key, value []byte) error {
		fp := fingerprint.Bytes(key)
		if seen[fp] {
			return nil
		}
		seen[fp] = true
		expected = append(expected, expectedValue{fp: fp, value: bytes.Clone(value)})
		return nil
	})
	return expected, err
}

func checkValues(r *ikv.Reader, expected []expectedValue, workers int) error {
	var g errgroup.Group
	chunk := (len(expected) + workers - 1) / workers
	for start := 0; start < len(expected); start += chunk {
		part := expected[start:min(start+chunk, len(expected))]
		g.Go(func() error {
			for _, e := range part {
				var v []byte
				var ok bool
				var err error
				if r.Mode() == ikv.SizeAware {
					v, ok, err = r.Get(e.fp)
				} else {
					v, ok, err = r.GetPrefix(e.fp, len(e.value))
				}
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("fingerprint %#08x: missing", e.fp)
				}
				if !bytes.Equal(v, e.value) {
					return fmt.Errorf("fingerprint %#08x: value mismatch", e.fp)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
