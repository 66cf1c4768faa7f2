// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"encoding/binary"
	"sort"
)

// indexSegment is a read-only view of a serialized, sorted index.  The
// bytes are a single allocation owned by the Reader.
type indexSegment struct {
	buf    []byte
	mode   Mode
	stride int
	n      int
}

func newIndexSegment(buf []byte, mode Mode) indexSegment {
	stride := mode.stride()
	return indexSegment{
		buf:    buf,
		mode:   mode,
		stride: stride,
		n:      len(buf) / stride,
	}
}

func (s *indexSegment) fingerprint(i int) uint32 {
	off := i * s.stride
	return binary.LittleEndian.Uint32(s.buf[off : off+fingerprintLen])
}

func (s *indexSegment) entry(i int) Entry {
	off := i * s.stride
	return readEntry(s.buf[off:off+s.stride], s.mode)
}

// search returns the lowest index whose fingerprint is >= fp, or n if
// there is none.
func (s *indexSegment) search(fp uint32) int {
	return sort.Search(s.n, func(i int) bool {
		return s.fingerprint(i) >= fp
	})
}

// find returns the position of the first (earliest written) entry with
// the given fingerprint.
func (s *indexSegment) find(fp uint32) (int, bool) {
	i := s.search(fp)
	if i < s.n && s.fingerprint(i) == fp {
		return i, true
	}
	return 0, false
}
