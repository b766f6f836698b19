// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/appraiserlink/appraiserlink/services/directory/blobstore"
	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/middleware"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testEnv wires the handlers to in-memory dependencies, mirroring the
// production route layout.
type testEnv struct {
	router   *gin.Engine
	store    *store.Memory
	svc      *messaging.Service
	blobs    *blobstore.Memory
	sessions *middleware.StaticTokenProvider
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    store.NewMemory(),
		blobs:    blobstore.NewMemory(),
		sessions: middleware.NewStaticTokenProvider(nil),
	}
	env.svc = messaging.NewService(env.store, messaging.NewBroker(), nil, nil)
	clock := messaging.SystemClock()

	router := gin.New()
	router.GET("/health", Health())

	public := router.Group("/v1")
	publicLimiter := middleware.NewRateLimiter(rate.Limit(100), 100)
	public.POST("/contact/:profileId", publicLimiter.Middleware(), SendPublicMessage(env.svc))
	public.GET("/profiles", ListProfiles(env.store))
	public.GET("/profiles/:profileId", GetProfile(env.store))

	authed := router.Group("/v1", middleware.AuthMiddleware(env.sessions))
	authed.POST("/messages", SendMessage(env.svc))
	authed.POST("/messages/read", MarkRead(env.svc))
	authed.GET("/messages/unread", UnreadMessages(env.svc))
	authed.GET("/messages/ws", MessagesWebSocket(env.svc, nil))
	authed.GET("/conversations", ListConversations(env.svc))
	authed.GET("/conversations/:conversationId/messages", ConversationMessages(env.svc))
	authed.PUT("/profiles/:profileId", UpsertProfile(env.store, clock))
	authed.DELETE("/profiles/:profileId", DeleteProfile(env.store))
	authed.POST("/profiles/:profileId/avatar", UploadAvatar(env.store, env.blobs, clock))

	env.router = router
	return env
}

// seedUser creates a profile and registers a session token for it.
// The token is "tok-" + the returned user ID.
func (env *testEnv) seedUser(t *testing.T, name string) string {
	t.Helper()
	id := uuid.NewString()
	err := env.store.PutProfile(context.Background(), &datatypes.Profile{
		ID:   id,
		Name: name,
		Role: datatypes.RoleAppraiser,
	})
	require.NoError(t, err)
	env.sessions.AddToken("tok-"+id, id)
	return id
}

// doJSON performs a request with an optional JSON body and bearer token.
func (env *testEnv) doJSON(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// decodeBody unmarshals a recorded JSON response into out.
func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
}
