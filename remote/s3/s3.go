// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/bpowers/ikv"
)

// Client is the subset of *s3.Client needed to read a store.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
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

// Open returns a Source reading s3://bucket/key.  ctx is used for every
// request the Source makes, including lookups long after Open returns.
// A missing object is reported as an error wrapping fs.ErrNotExist.
func Open(ctx context.Context, client Client, bucket, key string) (ikv.Source, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("HeadObject(s3://%s/%s): %w", bucket, key, err)
	}

	return &objectSource{
		ctx:    ctx,
		client: client,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	return errors.As(err, &nsk)
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
	if err := s.ctx.Err(); err != nil {
		return 0, err
	}

	end := min(off+int64(len(p)), s.size) - 1

	resp, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		return 0, fmt.Errorf("GetObject(s3://%s/%s): %w", s.bucket, s.key, err)
	}
	defer func() { _ = resp.Body.Close() }()

	want := int(end - off + 1)
	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
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

// Publish uploads the sealed store at path to s3://bucket/key.  Large
// stores are uploaded in parts; opts tune the uploader.
func Publish(ctx context.Context, client manager.UploadAPIClient, bucket, key, path string, opts ...func(*manager.Uploader)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("os.Open(%s): %w", path, err)
	}
	defer func() { _ = f.Close() }()

	uploader := manager.NewUploader(client, opts...)
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   f,
	}); err != nil {
		return fmt.Errorf("Upload(s3://%s/%s): %w", bucket, key, err)
	}
	return nil
}
