// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"bufio"
	"crypto/hmac"
	crand "crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"math/rand"

	"github.com/spf13/cobra"
)

const (
	testdataPrefix    = "pref_"
	testdataSuffixLen = 16
	testdataHMACKey   = "d259c7f656caf7f1"
)

var cmdGenTestdata = &cobra.Command{
	Use:   "gen-testdata",
	Short: "Print random key:value lines suitable for build",
	Args:  cobra.NoArgs,
	RunE:  genTestdata,
}

var flagGenTestdata struct {
	N    int
	Seed int64
}

func init() {
	cmdMain.AddCommand(cmdGenTestdata)
	cmdGenTestdata.Flags().IntVarP(&flagGenTestdata.N, "count", "n", 1000000, "Number of pairs to generate")
	cmdGenTestdata.Flags().Int64Var(&flagGenTestdata.Seed, "seed", 0, "Random seed (default: random)")
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		var seedBytes [8]byte
		_, _ = crand.Read(seedBytes[:])
		seed = int64(binary.LittleEndian.Uint64(seedBytes[:]))
	}
	return rand.New(rand.NewSource(seed))
}

func genTestdata(cmd *cobra.Command, _ []string) error {
	w := bufio.NewWriter(cmd.OutOrStdout())
	if err := writeTestdata(w, newRand(flagGenTestdata.Seed), flagGenTestdata.N); err != nil {
		return err
	}
	return w.Flush()
}

// writeTestdata writes n lines of hex(hmac(value)):value.
func writeTestdata(w io.Writer, rng *rand.Rand, n int) error {
	h := hmac.New(sha256.New, []byte(testdataHMACKey))

	for i := 0; i < n; i++ {
		var buf [testdataSuffixLen / 2]byte
		if _, err := rng.Read(buf[:]); err != nil {
			return err
		}
		value := fmt.Sprintf("%s%x", testdataPrefix, buf)
		h.Reset()
		h.Write([]byte(value))
		key := hex.EncodeToString(h.Sum(nil))

		if _, err := fmt.Fprintf(w, "%s:%s\n", key, value); err != nil {
			return err
		}
	}
	return nil
}
