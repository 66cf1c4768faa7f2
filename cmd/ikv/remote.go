// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bpowers/ikv"
	ikvminio "github.com/bpowers/ikv/remote/minio"
	ikvs3 "github.com/bpowers/ikv/remote/s3"
)

const (
	backendLocal = ""
	backendS3    = "s3"
	backendMinio = "minio"
)

// remoteConfig holds flags shared by commands that talk to object
// storage.  MinIO settings may also come from IKV_MINIO_* environment
// variables.
var remoteConfig = viper.New()

func init() {
	remoteConfig.SetEnvPrefix("ikv")
	remoteConfig.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	remoteConfig.AutomaticEnv()
	remoteConfig.SetDefault("minio-secure", true)
}

// addRemoteFlags registers the object storage flags on flags.  Each
// command gets its own copy of the flags, so they're bound to viper
// when the command runs.
func addRemoteFlags(flags *pflag.FlagSet) {
	flags.String("backend", backendLocal, "Object storage backend: s3 or minio (default: local file)")
	flags.String("bucket", "", "Bucket holding the store")
	flags.String("minio-endpoint", "", "MinIO endpoint, host:port [$IKV_MINIO_ENDPOINT]")
	flags.String("minio-access-key", "", "MinIO access key [$IKV_MINIO_ACCESS_KEY]")
	flags.String("minio-secret-key", "", "MinIO secret key [$IKV_MINIO_SECRET_KEY]")
	flags.Bool("minio-secure", true, "Use TLS to talk to MinIO [$IKV_MINIO_SECURE]")
}

func bindRemoteFlags(flags *pflag.FlagSet) error {
	for _, name := range []string{"backend", "bucket", "minio-endpoint", "minio-access-key", "minio-secret-key", "minio-secure"} {
		if err := remoteConfig.BindPFlag(name, flags.Lookup(name)); err != nil {
			return fmt.Errorf("BindPFlag(%s): %w", name, err)
		}
	}
	switch backend := remoteConfig.GetString("backend"); backend {
	case backendLocal:
		return nil
	case backendS3, backendMinio:
		if remoteConfig.GetString("bucket") == "" {
			return fmt.Errorf("--bucket is required with --backend %s", backend)
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q", backend)
	}
}

func newMinioClient() (*minio.Client, error) {
	endpoint := remoteConfig.GetString("minio-endpoint")
	if endpoint == "" {
		return nil, fmt.Errorf("--minio-endpoint (or IKV_MINIO_ENDPOINT) is required")
	}
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(remoteConfig.GetString("minio-access-key"), remoteConfig.GetString("minio-secret-key"), ""),
		Secure: remoteConfig.GetBool("minio-secure"),
	})
}

func newS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("config.LoadDefaultConfig: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// openSource opens name, a local path or an object key depending on
// the configured backend.
func openSource(ctx context.Context, name string) (ikv.Source, error) {
	bucket := remoteConfig.GetString("bucket")
	switch remoteConfig.GetString("backend") {
	case backendS3:
		client, err := newS3Client(ctx)
		if err != nil {
			return nil, err
		}
		logger.Debug("opening store", "backend", backendS3, "bucket", bucket, "key", name)
		return ikvs3.Open(ctx, client, bucket, name)
	case backendMinio:
		client, err := newMinioClient()
		if err != nil {
			return nil, err
		}
		logger.Debug("opening store", "backend", backendMinio, "bucket", bucket, "key", name)
		return ikvminio.Open(ctx, client, bucket, name)
	default:
		return ikv.OpenMapped(name)
	}
}

// publishStore uploads the store at path to key in the configured bucket.
func publishStore(ctx context.Context, path, key string) error {
	bucket := remoteConfig.GetString("bucket")
	switch remoteConfig.GetString("backend") {
	case backendS3:
		client, err := newS3Client(ctx)
		if err != nil {
			return err
		}
		return ikvs3.Publish(ctx, client, bucket, key, path)
	case backendMinio:
		client, err := newMinioClient()
		if err != nil {
			return err
		}
		return ikvminio.Publish(ctx, client, bucket, key, path)
	default:
		return fmt.Errorf("publish needs --backend %s or %s", backendS3, backendMinio)
	}
}
