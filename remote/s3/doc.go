// Copyright 2026 The ikv Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

// Package s3 reads sealed stores directly out of Amazon S3 and publishes
// them there.
//
// Open returns an ikv.Source that serves every ReadAt with a ranged
// GetObject.  A Reader built on it issues two requests while loading
// (footer and index) and one per value lookup:
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	client := s3.NewFromConfig(cfg)
//	src, err := ikvs3.Open(ctx, client, "bucket", "stores/users.ikv")
//	r, err := ikv.NewReader(src, ikv.SizeAware)
package s3
