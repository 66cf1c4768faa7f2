// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package unsafestring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToBytes(t *testing.T) {
	for _, input := range []string{
		"",
		"abc",
		"😀",
		"pref_0123456789abcdef",
	} {
		allocs := testing.AllocsPerRun(10, func() {
			b := ToBytes(input)
			if input != string(b) {
				t.Fatal("expected contents equal")
			}
			// len and cap should match the string
			if len(input) != len(b) {
				t.Fatal("expected lens equal")
			}
			if len(input) != cap(b) {
				t.Fatal("expected cap equal to string len")
			}
		})
		require.Zero(t, allocs)
	}
}
