// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package ikv

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// BuilderOption configures the Builder.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	logger *slog.Logger
	mode   Mode
}

// WithBuilderLogger sets an optional logger for the builder to use for progress updates.
// If not provided, no logging output will be produced.
func WithBuilderLogger(logger *slog.Logger) BuilderOption {
	return func(opts *builderOptions) {
		opts.logger = logger
	}
}

// WithBuilderMode sets the mode of the store to build.  The default is SizeAware.
func WithBuilderMode(mode Mode) BuilderOption {
	return func(opts *builderOptions) {
		opts.mode = mode
	}
}

// Builder is used to construct an immutable store file at a path.  The
// store is written to a temporary file next to the destination and
// only renamed into place, read-only, once it is sealed, so readers
// never see a partial store at the destination path.
type Builder struct {
	resultPath string
	dataFile   *os.File
	w          *Writer
	logger     *slog.Logger
}

// NewBuilder creates a Builder that will write a store to dataFilePath.
// Building should happen once: call Put for every value, then Finalize
// (or Abort).
func NewBuilder(dataFilePath string, opts ...BuilderOption) (*Builder, error) {
	var options builderOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = discardLogger()
	}
	if !options.mode.valid() {
		return nil, fmt.Errorf("unknown mode %d", uint8(options.mode))
	}

	// we want to write to a new file and do an atomic rename when we're done on disk
	dataFilePath, err := filepath.Abs(dataFilePath)
	if err != nil {
		return nil, fmt.Errorf("filepath.Abs: %w", err)
	}
	dir := filepath.Dir(dataFilePath)
	dataFile, err := os.CreateTemp(dir, "ikv-builder.*.data")
	if err != nil {
		return nil, fmt.Errorf("CreateTemp failed (may need permissions for dir %q containing dataFile): %w", dir, err)
	}
	options.logger.Debug("building store", "path", dataFilePath, "tmp", dataFile.Name(), "mode", options.mode)

	return &Builder{
		resultPath: dataFilePath,
		dataFile:   dataFile,
		w:          NewWriter(dataFile, options.mode, WithWriterLogger(options.logger)),
		logger:     options.logger,
	}, nil
}

// Put adds a value to the store under the given fingerprint.
func (b *Builder) Put(fingerprint uint32, v []byte) error {
	if b.dataFile == nil {
		return ErrClosed
	}
	return b.w.Write(fingerprint, v)
}

// Finalize seals the store, makes it read-only and moves it to the
// destination path.  On failure the temporary file is removed.
func (b *Builder) Finalize() error {
	if b.dataFile == nil {
		return ErrClosed
	}
	tmpPath := b.dataFile.Name()
	b.dataFile = nil

	b.logger.Info("sealing store", "entries", b.w.Len(), "dataBytes", b.w.Offset())
	if err := b.w.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("Writer.Close: %w", err)
	}

	// make the file read-only
	if err := os.Chmod(tmpPath, 0444); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("os.Chmod(0444): %w", err)
	}
	if err := os.Rename(tmpPath, b.resultPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("os.Rename: %w", err)
	}
	b.logger.Info("store built", "path", b.resultPath)

	return nil
}

// Abort discards the partially built store.
func (b *Builder) Abort() error {
	if b.dataFile == nil {
		return ErrClosed
	}
	tmpPath := b.dataFile.Name()
	b.dataFile = nil

	_ = b.w.Close()
	if err := os.Remove(tmpPath); err != nil {
		return fmt.Errorf("os.Remove: %w", err)
	}
	return nil
}
