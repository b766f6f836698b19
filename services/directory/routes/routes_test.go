// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/appraiserlink/appraiserlink/services/directory/blobstore"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/middleware"
	"github.com/appraiserlink/appraiserlink/services/directory/observability"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	mem := store.NewMemory()
	registry := prometheus.NewRegistry()
	metrics := observability.NewMessagingMetrics(registry)

	router := gin.New()
	SetupRoutes(router, Deps{
		Service:     messaging.NewService(mem, messaging.NewBroker(), nil, metrics),
		Store:       mem,
		Blobs:       blobstore.NewMemory(),
		Sessions:    middleware.NewStaticTokenProvider(nil),
		Metrics:     metrics,
		Registry:    registry,
		RateLimiter: middleware.NewRateLimiter(rate.Limit(10), 10),
	})
	return router
}

func TestSetupRoutes_Surfaces(t *testing.T) {
	router := newTestRouter()

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"health is open", "GET", "/health", http.StatusOK},
		{"metrics is open", "GET", "/metrics", http.StatusOK},
		{"directory is open", "GET", "/v1/profiles", http.StatusOK},
		{"messages need a session", "POST", "/v1/messages", http.StatusUnauthorized},
		{"inbox needs a session", "GET", "/v1/conversations", http.StatusUnauthorized},
		{"unread needs a session", "GET", "/v1/messages/unread", http.StatusUnauthorized},
		{"profile edit needs a session", "PUT", "/v1/profiles/someone", http.StatusUnauthorized},
		{"unknown route is 404", "GET", "/v1/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSetupRoutes_ContactIsAnonymousButValidated(t *testing.T) {
	router := newTestRouter()

	// No session header: the route is reachable, the body is rejected.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/v1/contact/someone", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
