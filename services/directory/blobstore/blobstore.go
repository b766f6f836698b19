// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package blobstore stores profile avatar images.
//
// The directory only needs a narrow slice of object storage: put a
// blob, get back a stable public URL to embed in the profile record.
// GCS backs production; an in-memory implementation backs tests and
// local runs without cloud credentials.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"sync"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Store uploads avatar blobs and returns public URLs for them.
type Store interface {
	// Upload writes the blob under the given object name with the given
	// content type and returns the public URL serving it. Re-uploading
	// the same name replaces the object.
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)

	// Close releases the underlying client.
	Close() error
}

// =============================================================================
// GCS
// =============================================================================

// GCS is a Store backed by a Google Cloud Storage bucket. The bucket is
// expected to allow public reads; uploads use the service account key.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS creates a GCS store for the given bucket. saKeyPath may be
// empty, in which case application default credentials are used.
func NewGCS(ctx context.Context, bucket, saKeyPath string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	var opts []option.ClientOption
	if saKeyPath != "" {
		opts = append(opts, option.WithCredentialsFile(saKeyPath))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket}, nil
}

func (g *GCS) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	obj := g.client.Bucket(g.bucket).Object(name)
	writer := obj.NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=3600"

	if _, err := io.Copy(writer, r); err != nil {
		return "", fmt.Errorf("failed to copy blob to GCS object %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", name, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}

// =============================================================================
// In-Memory
// =============================================================================

// Memory is an in-process Store for tests and credential-less local
// runs. URLs it returns are not fetchable; callers only need them to be
// stable and distinct per object name.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	types map[string]string
}

// NewMemory creates an empty in-memory blob store.
func NewMemory() *Memory {
	return &Memory{
		blobs: make(map[string][]byte),
		types: make(map[string]string),
	}
}

func (m *Memory) Upload(_ context.Context, name, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read blob %s: %w", name, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[name] = data
	m.types[name] = contentType
	return "memory://avatars/" + name, nil
}

// Get returns the stored blob and content type, for test assertions.
func (m *Memory) Get(name string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.blobs[name]
	if !ok {
		return nil, "", false
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, m.types[name], true
}

func (m *Memory) Close() error {
	return nil
}
