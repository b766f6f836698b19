// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blobstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_UploadAndGet(t *testing.T) {
	store := NewMemory()

	url, err := store.Upload(context.Background(), "alice.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "memory://avatars/alice.png", url)

	data, contentType, ok := store.Get("alice.png")
	require.True(t, ok)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, "image/png", contentType)
}

func TestMemory_ReuploadReplaces(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	first, err := store.Upload(ctx, "alice.png", "image/png", strings.NewReader("v1"))
	require.NoError(t, err)
	second, err := store.Upload(ctx, "alice.png", "image/jpeg", strings.NewReader("v2"))
	require.NoError(t, err)
	assert.Equal(t, first, second, "URL is stable per object name")

	data, contentType, ok := store.Get("alice.png")
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestMemory_GetMissing(t *testing.T) {
	store := NewMemory()
	_, _, ok := store.Get("nope.png")
	assert.False(t, ok)
	assert.NoError(t, store.Close())
}

func TestNewGCS_RequiresBucket(t *testing.T) {
	_, err := NewGCS(context.Background(), "", "")
	assert.Error(t, err)
}
