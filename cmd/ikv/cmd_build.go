// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bpowers/ikv"
	"github.com/bpowers/ikv/fingerprint"
)

var cmdBuild = &cobra.Command{
	Use:   "build <input> <output>",
	Short: "Build a store from key:value lines",
	Long: `Build a store from an input file with one key:value pair per line.  Values
are stored under the fingerprint of their key; keys themselves are not stored.
Use - to read from stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: build,
}

var flagBuild struct {
	SizeUnaware bool
}

func init() {
	cmdMain.AddCommand(cmdBuild)
	cmdBuild.Flags().BoolVar(&flagBuild.SizeUnaware, "size-unaware", false, "Don't record value sizes in the index")
}

func modeFlag(sizeUnaware bool) ikv.Mode {
	if sizeUnaware {
		return ikv.SizeUnaware
	}
	return ikv.SizeAware
}

func build(cmd *cobra.Command, args []string) error {
	var in io.Reader = cmd.InOrStdin()
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	b, err := ikv.NewBuilder(args[1], ikv.WithBuilderMode(modeFlag(flagBuild.SizeUnaware)), ikv.WithBuilderLogger(logger))
	if err != nil {
		return err
	}

	n, err := putLines(b, in)
	if err != nil {
		_ = b.Abort()
		return err
	}
	if err := b.Finalize(); err != nil {
		return err
	}

	logger.Info("built store", "path", args[1], "entries", humanize.Comma(int64(n)))
	return nil
}

// forEachLine calls fn with the key and value of every line of in.
func forEachLine(in io.Reader, fn func(key, value []byte) error) error {
	s := bufio.NewScanner(bufio.NewReaderSize(in, 16*1024))
	s.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0
	for s.Scan() {
		line++
		k, v, ok := bytes.Cut(s.Bytes(), []byte{':'})
		if !ok {
			return fmt.Errorf("line %d: expected key:value", line)
		}
		if err := fn(k, v); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
	return s.Err()
}

func putLines(b *ikv.Builder, in io.Reader) (int, error) {
	n := 0
	err := forEachLine(in, func(key, value []byte) error {
		n++
		return b.Put(fingerprint.Bytes(key), value)
	})
	return n, err
}
