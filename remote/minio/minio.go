// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package minio reads sealed stores from MinIO or any other
// S3-compatible object store, and publishes them there.
package minio

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/minio/minio-go/v7"

	"github.com/bpowers/ikv"
)

// Client is the subset of *minio.Client needed to read a store.
type Client interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// Uploader is the subset of *minio.Client needed to publish a store.
type Uploader interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type objectSource struct {
	ctx    context.Context
	client Client
	bucket string
	key    string
	size   int64

	isClosed atomic.Bool
}

var _ ikv.Source = (*objectSource)(nil)

// Open returns a Source reading bucket/key.  ctx is used for every
// request the Source makes.  A missing object is reported as an error
// wrapping fs.ErrNotExist.
func Open(ctx context.Context, client Client, bucket, key string) (ikv.Source, error) {
	info, err := client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s/%s: %w", bucket, key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("StatObject(%s/%s): %w", bucket, key, err)
	}

	return &objectSource{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   info.Size,
	}, nil
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound" || code == "NoSuchBucket"
}

// rangeEnd returns the inclusive end of a read of n bytes at off,
// clamped to the object size.
func rangeEnd(off int64, n int, size int64) int64 {
	return min(off+int64(n), size) - 1
}

func (s *objectSource) Size() int64 {
	return s.size
}

func (s *objectSource) ReadAt(p []byte, off int64) (int, error) {
	if s.isClosed.Load() {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, fmt.Errorf("negative offset %d", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := rangeEnd(off, len(p), s.size)
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(off, end); err != nil {
		return 0, fmt.Errorf("SetRange: %w", err)
	}

	obj, err := s.client.GetObject(s.ctx, s.bucket, s.key, opts)
	if err != nil {
		return 0, fmt.Errorf("GetObject(%s/%s): %w", s.bucket, s.key, err)
	}
	defer func() { _ = obj.Close() }()

	want := int(end - off + 1)
	n, err := io.ReadFull(obj, p[:want])
	if err != nil {
		return n, fmt.Errorf("read %s/%s: %w", s.bucket, s.key, err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *objectSource) Close() error {
	s.isClosed.Store(true)
	return nil
}

// Publish uploads the sealed store at path to bucket/key.
func Publish(ctx context.Context, client Uploader, bucket, key, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("os.Stat: %w", err)
	}
	_, err := client.FPutObject(ctx, bucket, key, path, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	})
	if err != nil {
		return fmt.Errorf("FPutObject(%s/%s): %w", bucket, key, err)
	}
	return nil
}
