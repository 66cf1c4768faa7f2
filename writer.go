// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
)

const defaultBufferSize = 4 * 1024 * 1024

type nopWriter struct{}

func (nopWriter) Write([]byte) (int, error) {
	return 0, io.EOF
}

type syncer interface {
	Sync() error
}

// WriterOption configures a Writer.
type WriterOption func(*writerOptions)

type writerOptions struct {
	logger     *slog.Logger
	bufferSize int
}

// WithWriterLogger sets a logger for the writer to report sealing progress to.
func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(opts *writerOptions) {
		opts.logger = logger
	}
}

// WithBufferSize sets the size of the write buffer in front of the
// output stream.  It defaults to 4 MB.
func WithBufferSize(n int) WriterOption {
	return func(opts *writerOptions) {
		opts.bufferSize = n
	}
}

// Writer streams values into a new store.  Values are written to the
// output as they arrive; the index is kept in memory and written out,
// sorted, by Close.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	dst     io.Writer
	w       *bufio.Writer
	mode    Mode
	entries []Entry
	off     uint64
	err     error
	logger  *slog.Logger
	closed  atomic.Bool
}

// NewWriter returns a Writer that builds a store of the given mode on
// w, which must be positioned at the start of an empty file.  The
// Writer owns w until Close: if w is an io.Closer, Close closes it.
func NewWriter(w io.Writer, mode Mode, opts ...WriterOption) *Writer {
	options := writerOptions{
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = discardLogger()
	}
	writer := &Writer{
		dst:    w,
		w:      bufio.NewWriterSize(w, options.bufferSize),
		mode:   mode,
		logger: options.logger,
	}
	if !mode.valid() {
		writer.err = fmt.Errorf("unknown mode %d", uint8(mode))
	}
	return writer
}

// Mode returns the mode of the store being built.
func (w *Writer) Mode() Mode {
	return w.mode
}

// Len returns the number of values written so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// Offset returns the number of data bytes written so far.
func (w *Writer) Offset() uint64 {
	return w.off
}

// Write appends data to the store under the given fingerprint.  If
// writing to the underlying stream fails, the Writer is broken: every
// later call returns the same error and the output must be discarded.
func (w *Writer) Write(fingerprint uint32, data []byte) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if w.err != nil {
		return w.err
	}
	if w.mode == SizeAware && uint64(len(data)) > maxValueLen {
		return fmt.Errorf("%w: %d bytes", ErrValueTooLarge, len(data))
	}

	off := w.off
	n, err := w.w.Write(data)
	w.off += uint64(n)
	if err != nil {
		w.err = fmt.Errorf("%w: bufio.Write: %w", ErrIO, err)
		return w.err
	}

	e := Entry{Fingerprint: fingerprint, Offset: off}
	if w.mode == SizeAware {
		e.Size = uint32(len(data))
	}
	w.entries = append(w.entries, e)

	return nil
}

// Close sorts and writes the index and footer, flushes, and releases
// the output stream.  The stream is released even if sealing (or an
// earlier Write) failed.  Calling Close more than once is a no-op.
func (w *Writer) Close() error {
	if alreadyClosed := w.closed.Swap(true); alreadyClosed {
		return nil
	}

	err := w.err
	if err == nil {
		err = w.seal()
	}
	if relErr := w.release(err == nil); err == nil {
		err = relErr
	}
	w.entries = nil

	return err
}

func (w *Writer) seal() error {
	indexStart := w.off
	count := len(w.entries)

	w.logger.Debug("sorting index", "entries", count)
	// stable: entries with equal fingerprints stay in write order
	sort.SliceStable(w.entries, func(i, j int) bool {
		return w.entries[i].Fingerprint < w.entries[j].Fingerprint
	})

	w.logger.Debug("writing index", "entries", count, "indexStart", indexStart)
	stride := w.mode.stride()
	var rec [sizeAwareStride]byte
	for _, e := range w.entries {
		putEntry(rec[:stride], e, w.mode)
		if _, err := w.w.Write(rec[:stride]); err != nil {
			return fmt.Errorf("%w: write index: %w", ErrIO, err)
		}
	}

	f := footer{
		entryCount: uint64(count),
		sizeAware:  w.mode == SizeAware,
		indexStart: indexStart,
	}
	if _, err := f.WriteTo(w.w); err != nil {
		return fmt.Errorf("%w: footer.WriteTo: %w", ErrIO, err)
	}

	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("%w: bufio.Flush: %w", ErrIO, err)
	}
	w.logger.Debug("sealed", "entries", count, "dataBytes", indexStart)

	return nil
}

// release hands the stream back: sync it (only if everything was
// written), then close it if we can.
func (w *Writer) release(sync bool) error {
	w.w.Reset(nopWriter{})

	var err error
	if s, ok := w.dst.(syncer); ok && sync {
		if serr := s.Sync(); serr != nil {
			err = fmt.Errorf("%w: Sync: %w", ErrIO, serr)
		}
	}
	if c, ok := w.dst.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: Close: %w", ErrIO, cerr)
		}
	}
	return err
}
