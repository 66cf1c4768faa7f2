// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package fingerprint derives the 32-bit fingerprints stores are keyed
// by.  Two different keys can share a fingerprint; callers that care
// should keep the key alongside the value and compare on read.
package fingerprint

import (
	"github.com/dgryski/go-farm"

	"github.com/bpowers/ikv/internal/unsafestring"
)

// Bytes returns the fingerprint of b.  The result is stable across
// processes, platforms and releases.
func Bytes(b []byte) uint32 {
	return farm.Fingerprint32(b)
}

// String returns the fingerprint of s without copying it.
func String(s string) uint32 {
	return farm.Fingerprint32(unsafestring.ToBytes(s))
}

// WithSeed hashes b with a caller-chosen seed, for callers that want
// fingerprints that differ between stores.
func WithSeed(seed uint32, b []byte) uint32 {
	return farm.Hash32WithSeed(b, seed)
}
