// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Command ikv builds, inspects and publishes ikv stores.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/bpowers/ikv"
)

var cmdMain = &cobra.Command{
	Use:               "ikv",
	Short:             "Build and query immutable fingerprint-indexed stores",
	SilenceUsage:      true,
	PersistentPreRunE: setupLogging,
}

var flagMain struct {
	LogLevel string
}

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

func init() {
	cmdMain.PersistentFlags().StringVar(&flagMain.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

func main() {
	if err := cmdMain.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(flagMain.LogLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// openLocal opens the store at path in whichever mode it was built with.
func openLocal(path string) (*ikv.Reader, error) {
	r, err := ikv.Open(path, ikv.SizeAware, ikv.WithReaderLogger(logger))
	if errors.Is(err, ikv.ErrModeMismatch) {
		r, err = ikv.Open(path, ikv.SizeUnaware, ikv.WithReaderLogger(logger))
	}
	return r, err
}
