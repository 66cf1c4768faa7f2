// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"path/filepath"

	"github.com/spf13/cobra"
)

var cmdPublish = &cobra.Command{
	Use:   "publish <store>",
	Short: "Upload a store to object storage",
	Long: `Upload a store to S3 or MinIO.  The store is opened and its index checked
before anything is uploaded.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		return bindRemoteFlags(cmd.Flags())
	},
	RunE: publish,
}

var flagPublish struct {
	Key string
}

func init() {
	cmdMain.AddCommand(cmdPublish)
	cmdPublish.Flags().StringVar(&flagPublish.Key, "key", "", "Object key (default: the store's file name)")
	addRemoteFlags(cmdPublish.Flags())
}

func publish(cmd *cobra.Command, args []string) error {
	path := args[0]
	r, err := openLocal(path)
	if err != nil {
		return err
	}
	err = r.Verify()
	_ = r.Close()
	if err != nil {
		return err
	}

	key := flagPublish.Key
	if key == "" {
		key = filepath.Base(path)
	}
	if err := publishStore(cmd.Context(), path, key); err != nil {
		return err
	}
	logger.Info("published store", "path", path, "key", key)
	return nil
}
