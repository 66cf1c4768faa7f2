// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package ikv

func adviseRandom([]byte) error {
	return nil
}
