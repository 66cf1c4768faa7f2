// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// Source is random-access, read-only access to a sealed store.
type Source interface {
	io.ReaderAt
	io.Closer
	// Size returns the length of the store in bytes.
	Size() int64
}

// Mappable is implemented by Sources whose whole contents are available
// in memory.  Readers over a Mappable source return values that alias
// Bytes instead of copying them.
type Mappable interface {
	// Bytes returns the contents of the store.  The slice is only valid
	// until the Source is closed and must not be modified.
	Bytes() []byte
}

// readFullAt reads exactly len(p) bytes at off.
func readFullAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) {
		// io.ReaderAt may return io.EOF alongside a full read at the end of the input
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return err
}

type fileSource struct {
	f        *os.File
	size     int64
	isClosed atomic.Bool
}

// OpenFile opens path as a Source that reads with positional reads on
// an *os.File.  Every lookup through it costs a syscall and a copy;
// prefer OpenMapped unless mmap isn't an option.
func OpenFile(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	return &fileSource{f: f, size: stats.Size()}, nil
}

func (s *fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s *fileSource) Size() int64 {
	return s.size
}

func (s *fileSource) Close() error {
	if s.isClosed.Swap(true) {
		return nil
	}
	return s.f.Close()
}

type mappedSource struct {
	f        *os.File
	m        mmap.MMap
	isClosed atomic.Bool
}

// OpenMapped opens path as a read-only memory mapping.  The kernel is
// told to expect random access.
func OpenMapped(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("os.Open(%s): %w", path, err)
	}
	stats, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("f.Stat: %w", err)
	}
	// zero-length files can't be mapped; they aren't valid stores
	// either, but let the Reader be the one to say so
	if stats.Size() == 0 {
		return &mappedSource{f: f}, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("mmap.Map(%s): %w", path, err)
	}
	if err := adviseRandom(m); err != nil {
		_ = m.Unmap()
		_ = f.Close()
		return nil, fmt.Errorf("madvise: %w", err)
	}

	return &mappedSource{f: f, m: m}, nil
}

func (s *mappedSource) ReadAt(p []byte, off int64) (int, error) {
	if s.isClosed.Load() {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(s.m)) {
		return 0, io.EOF
	}
	n := copy(p, s.m[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *mappedSource) Size() int64 {
	return int64(len(s.m))
}

func (s *mappedSource) Bytes() []byte {
	return s.m
}

func (s *mappedSource) Close() error {
	if s.isClosed.Swap(true) {
		return nil
	}
	var err error
	if s.m != nil {
		err = s.m.Unmap()
	}
	if cerr := s.f.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

type bytesSource []byte

// BytesSource returns a Source over an in-memory store, such as one
// written to a bytes.Buffer.  The Reader will alias b; don't modify it.
func BytesSource(b []byte) Source {
	return bytesSource(b)
}

func (s bytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= int64(len(s)) {
		return 0, io.EOF
	}
	n := copy(p, s[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s bytesSource) Size() int64 {
	return int64(len(s))
}

func (s bytesSource) Bytes() []byte {
	return s
}

func (bytesSource) Close() error {
	return nil
}
