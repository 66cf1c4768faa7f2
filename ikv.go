// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
)

var (
	// ErrFormat is returned (wrapped) when a file is not a valid sealed
	// store: too short, a bad footer, or an index that doesn't fit.
	ErrFormat = errors.New("ikv: bad format")
	// ErrModeMismatch is returned (wrapped) when a well-formed store is
	// opened in the other mode.  It wraps ErrFormat.
	ErrModeMismatch = fmt.Errorf("%w: mode mismatch", ErrFormat)
	// ErrIO is returned (wrapped, together with the cause) when reading
	// or writing the underlying file fails.
	ErrIO = errors.New("ikv: i/o failure")
	// ErrClosed is returned when using a Writer, Builder or Reader
	// after Close.
	ErrClosed = errors.New("ikv: closed")
	// ErrSizeUnknown is returned by Get on a size-unaware store.
	ErrSizeUnknown = errors.New("ikv: store doesn't record value sizes")
	// ErrSizeKnown is returned by the unbounded accessors on a
	// size-aware store; use Get instead.
	ErrSizeKnown = errors.New("ikv: store records value sizes, use Get")
	// ErrValueTooLarge is returned when writing a value whose length
	// doesn't fit in a 32-bit size field.
	ErrValueTooLarge = errors.New("ikv: value too large for a size-aware store")
)

const maxValueLen = math.MaxUint32

// Mode selects whether a store records the length of each value.
type Mode uint8

const (
	// SizeAware stores record each value's exact length; lookups return
	// exactly the bytes that were written.
	SizeAware Mode = iota
	// SizeUnaware stores only record where each value starts, saving 4
	// bytes per index entry.
	SizeUnaware
)

func (m Mode) String() string {
	switch m {
	case SizeAware:
		return "size-aware"
	case SizeUnaware:
		return "size-unaware"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

func (m Mode) valid() bool {
	return m == SizeAware || m == SizeUnaware
}

// stride is the on-disk width of one index entry.
func (m Mode) stride() int {
	if m == SizeAware {
		return sizeAwareStride
	}
	return sizeUnawareStride
}

// Entry describes one stored value.
type Entry struct {
	Fingerprint uint32
	// Offset is the position of the value within the data segment.
	Offset uint64
	// Size is the value's length.  It is always 0 for entries read
	// from a size-unaware store.
	Size uint32
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
