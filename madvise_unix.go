// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build linux || darwin || freebsd || netbsd || openbsd

package ikv

import (
	"golang.org/x/sys/unix"
)

func adviseRandom(b []byte) error {
	return unix.Madvise(b, unix.MADV_RANDOM)
}
