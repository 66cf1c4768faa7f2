// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ReaderOption configures a Reader.
type ReaderOption func(*readerOptions)

type readerOptions struct {
	logger *slog.Logger
}

// WithReaderLogger sets a logger for the reader to use while loading.
func WithReaderLogger(logger *slog.Logger) ReaderOption {
	return func(opts *readerOptions) {
		opts.logger = logger
	}
}

// Stats are running lookup counters for a Reader.
type Stats struct {
	Lookups uint64
	Hits    uint64
	Misses  uint64
}

// Reader answers lookups against a sealed store.  The index is loaded
// into memory when the Reader is created; values are read from the
// Source on demand.
//
// After construction a Reader is immutable, and all lookup methods are
// safe for concurrent use.  Close must not be called concurrently with
// lookups.
type Reader struct {
	src        Source
	data       []byte // non-nil when src is Mappable
	mode       Mode
	idx        indexSegment
	indexStart uint64
	size       int64

	lookups atomic.Uint64
	hits    atomic.Uint64
	misses  atomic.Uint64

	isClosed atomic.Bool
}

// Open memory-maps the store at path and loads its index.  mode must
// match the mode the store was built with.
func Open(path string, mode Mode, opts ...ReaderOption) (*Reader, error) {
	src, err := OpenMapped(path)
	if err != nil {
		return nil, fmt.Errorf("%w: OpenMapped: %w", ErrIO, err)
	}
	return NewReader(src, mode, opts...)
}

// OpenSizeAware opens a store built in SizeAware mode.
func OpenSizeAware(path string) (*Reader, error) {
	return Open(path, SizeAware)
}

// OpenSizeUnaware opens a store built in SizeUnaware mode.
func OpenSizeUnaware(path string) (*Reader, error) {
	return Open(path, SizeUnaware)
}

// NewReader loads the footer and index of the store in src.  The Reader
// takes ownership of src: it is closed by Reader.Close, or before
// returning if loading fails.
func NewReader(src Source, mode Mode, opts ...ReaderOption) (*Reader, error) {
	var options readerOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = discardLogger()
	}

	r, err := load(src, mode, options.logger)
	if err != nil {
		_ = src.Close()
		return nil, err
	}
	return r, nil
}

func load(src Source, mode Mode, logger *slog.Logger) (*Reader, error) {
	if !mode.valid() {
		return nil, fmt.Errorf("unknown mode %d", uint8(mode))
	}

	size := src.Size()
	if size < footerSize {
		return nil, fmt.Errorf("%w: file too short: %d < %d", ErrFormat, size, footerSize)
	}

	var footerBuf [footerSize]byte
	if err := readFullAt(src, footerBuf[:], size-footerSize); err != nil {
		return nil, fmt.Errorf("%w: read footer: %w", ErrIO, err)
	}
	var f footer
	if err := f.UnmarshalBytes(footerBuf[:]); err != nil {
		return nil, err
	}
	// check the footer against the file before trusting its mode flag
	if err := f.checkSize(f.mode().stride(), size); err != nil {
		return nil, err
	}
	if f.mode() != mode {
		return nil, fmt.Errorf("%w: store is %s, opened as %s", ErrModeMismatch, f.mode(), mode)
	}

	// the whole index lives in this one allocation until Close
	indexBuf := make([]byte, f.entryCount*uint64(mode.stride()))
	if err := readFullAt(src, indexBuf, int64(f.indexStart)); err != nil {
		return nil, fmt.Errorf("%w: read index: %w", ErrIO, err)
	}

	r := &Reader{
		src:        src,
		mode:       mode,
		idx:        newIndexSegment(indexBuf, mode),
		indexStart: f.indexStart,
		size:       size,
	}
	if m, ok := src.(Mappable); ok {
		r.data = m.Bytes()
	}

	logger.Debug("loaded index", "entries", f.entryCount, "mode", mode, "dataBytes", f.indexStart, "mapped", r.data != nil)

	return r, nil
}

// Mode returns the mode the store was built with.
func (r *Reader) Mode() Mode {
	return r.mode
}

// Len returns the number of entries in the store.
func (r *Reader) Len() int {
	return r.idx.n
}

// DataSize returns the size in bytes of the data segment.
func (r *Reader) DataSize() uint64 {
	return r.indexStart
}

// IndexSize returns the size in bytes of the index segment.
func (r *Reader) IndexSize() uint64 {
	return uint64(len(r.idx.buf))
}

// Size returns the size in bytes of the whole store.
func (r *Reader) Size() int64 {
	return r.size
}

// Stats returns a snapshot of the lookup counters.
func (r *Reader) Stats() Stats {
	return Stats{
		Lookups: r.lookups.Load(),
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
	}
}

// Lookup returns the first entry written with the given fingerprint.
// It only consults the in-memory index.
func (r *Reader) Lookup(fingerprint uint32) (Entry, bool) {
	r.lookups.Add(1)
	i, ok := r.idx.find(fingerprint)
	if !ok {
		r.misses.Add(1)
		return Entry{}, false
	}
	r.hits.Add(1)
	return r.idx.entry(i), true
}

// LookupAll returns every entry with the given fingerprint, in the
// order they were written.
func (r *Reader) LookupAll(fingerprint uint32) []Entry {
	var entries []Entry
	for i := r.idx.search(fingerprint); i < r.idx.n && r.idx.fingerprint(i) == fingerprint; i++ {
		entries = append(entries, r.idx.entry(i))
	}
	return entries
}

// Get returns the value first written under fingerprint.  A fingerprint
// that isn't in the store is not an error: Get returns found == false.
// Get is only available on size-aware stores.
//
// When the Reader's Source is Mappable the returned slice aliases it:
// it is valid until Close and must not be modified.
func (r *Reader) Get(fingerprint uint32) (value []byte, found bool, err error) {
	if r.mode != SizeAware {
		return nil, false, ErrSizeUnknown
	}
	if r.isClosed.Load() {
		return nil, false, ErrClosed
	}
	e, ok := r.Lookup(fingerprint)
	if !ok {
		return nil, false, nil
	}
	value, err = r.read(e.Offset, uint64(e.Size))
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// GetUnbounded returns the bytes from the start of the value first
// written under fingerprint up to the end of the data segment.  Only
// the leading bytes, as many as were written, belong to the value: the
// rest is whatever followed it in the file.  Callers must cut the
// result down to a length they know from elsewhere.
//
// GetUnbounded is only available on size-unaware stores.  For Sources
// that aren't Mappable this reads the whole remaining data segment;
// GetPrefix is usually what you want instead.
func (r *Reader) GetUnbounded(fingerprint uint32) (value []byte, found bool, err error) {
	if r.mode != SizeUnaware {
		return nil, false, ErrSizeKnown
	}
	if r.isClosed.Load() {
		return nil, false, ErrClosed
	}
	e, ok := r.Lookup(fingerprint)
	if !ok {
		return nil, false, nil
	}
	if e.Offset > r.indexStart {
		return nil, false, fmt.Errorf("%w: offset %d beyond data segment (%d)", ErrFormat, e.Offset, r.indexStart)
	}
	value, err = r.read(e.Offset, r.indexStart-e.Offset)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// GetPrefix is like GetUnbounded, but returns at most n bytes.  Fewer
// are returned only if the data segment ends first.
func (r *Reader) GetPrefix(fingerprint uint32, n int) (value []byte, found bool, err error) {
	if r.mode != SizeUnaware {
		return nil, false, ErrSizeKnown
	}
	if r.isClosed.Load() {
		return nil, false, ErrClosed
	}
	if n < 0 {
		return nil, false, fmt.Errorf("negative length %d", n)
	}
	e, ok := r.Lookup(fingerprint)
	if !ok {
		return nil, false, nil
	}
	if e.Offset > r.indexStart {
		return nil, false, fmt.Errorf("%w: offset %d beyond data segment (%d)", ErrFormat, e.Offset, r.indexStart)
	}
	length := min(uint64(n), r.indexStart-e.Offset)
	value, err = r.read(e.Offset, length)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// read returns data segment bytes [off, off+n).
func (r *Reader) read(off, n uint64) ([]byte, error) {
	if off > r.indexStart || n > r.indexStart-off {
		return nil, fmt.Errorf("%w: value [%d, %d+%d) beyond data segment (%d)", ErrFormat, off, off, n, r.indexStart)
	}
	if r.data != nil {
		end := off + n
		return r.data[off:end:end], nil
	}
	buf := make([]byte, n)
	if err := readFullAt(r.src, buf, int64(off)); err != nil {
		return nil, fmt.Errorf("%w: ReadAt(%d, len: %d): %w", ErrIO, off, n, err)
	}
	return buf, nil
}

// Verify checks the whole index: entries must be sorted by fingerprint,
// entries sharing a fingerprint must be in write order, and every value
// must lie within the data segment.  Opening a store only checks the
// footer, so Verify is the way to catch a corrupted index.
func (r *Reader) Verify() error {
	if r.isClosed.Load() {
		return ErrClosed
	}
	var prev Entry
	for i := 0; i < r.idx.n; i++ {
		e := r.idx.entry(i)
		if i > 0 {
			if e.Fingerprint < prev.Fingerprint {
				return fmt.Errorf("%w: index not sorted at entry %d (%#x after %#x)", ErrFormat, i, e.Fingerprint, prev.Fingerprint)
			}
			if e.Fingerprint == prev.Fingerprint && e.Offset < prev.Offset {
				return fmt.Errorf("%w: entries for fingerprint %#x out of write order at entry %d", ErrFormat, e.Fingerprint, i)
			}
		}
		if e.Offset > r.indexStart || uint64(e.Size) > r.indexStart-e.Offset {
			return fmt.Errorf("%w: entry %d [%d, +%d) beyond data segment (%d)", ErrFormat, i, e.Offset, e.Size, r.indexStart)
		}
		prev = e
	}
	return nil
}

// Close releases the index and the underlying Source.  Values
// previously returned from a Mappable Source must not be used
// afterwards.  Calling Close more than once is a no-op.
func (r *Reader) Close() error {
	if r.isClosed.Swap(true) {
		return nil
	}
	r.idx = indexSegment{mode: r.mode, stride: r.mode.stride()}
	r.data = nil
	return r.src.Close()
}
