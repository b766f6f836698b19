// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// failingProvider always returns the configured error.
type failingProvider struct {
	err error
}

func (p *failingProvider) Resolve(_ context.Context, _ string) (string, error) {
	return "", p.err
}

// =============================================================================
// extractBearerToken Tests
// =============================================================================

func TestExtractBearerToken_ValidToken(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "Bearer abc123")

	assert.Equal(t, "abc123", extractBearerToken(c))
}

func TestExtractBearerToken_CaseInsensitivePrefix(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Request.Header.Set("Authorization", "bearer ABC123")

	assert.Equal(t, "ABC123", extractBearerToken(c))
}

func TestExtractBearerToken_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"no bearer prefix", "abc123"},
		{"basic auth", "Basic abc123"},
		{"only bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				c.Request.Header.Set("Authorization", tt.header)
			}
			assert.Empty(t, extractBearerToken(c))
		})
	}
}

// =============================================================================
// StaticTokenProvider Tests
// =============================================================================

func TestStaticTokenProvider_Resolve(t *testing.T) {
	provider := NewStaticTokenProvider(map[string]string{"tok-alice": "alice"})

	userID, err := provider.Resolve(context.Background(), "tok-alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", userID)

	_, err = provider.Resolve(context.Background(), "unknown")
	assert.True(t, errors.Is(err, ErrUnauthorized))

	_, err = provider.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestStaticTokenProvider_AddToken(t *testing.T) {
	provider := NewStaticTokenProvider(nil)
	provider.AddToken("tok-bob", "bob")

	userID, err := provider.Resolve(context.Background(), "tok-bob")
	require.NoError(t, err)
	assert.Equal(t, "bob", userID)
}

// =============================================================================
// AuthMiddleware Tests
// =============================================================================

func newAuthTestRouter(provider SessionProvider) *gin.Engine {
	router := gin.New()
	router.GET("/whoami", AuthMiddleware(provider), func(c *gin.Context) {
		userID, ok := CurrentUserID(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no identity"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": userID})
	})
	return router
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	provider := NewStaticTokenProvider(map[string]string{"tok-alice": "alice"})
	router := newAuthTestRouter(provider)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer tok-alice")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestAuthMiddleware_RejectsMissingAndUnknownTokens(t *testing.T) {
	provider := NewStaticTokenProvider(map[string]string{"tok-alice": "alice"})
	router := newAuthTestRouter(provider)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ProviderFailureIsUnauthorized(t *testing.T) {
	router := newAuthTestRouter(&failingProvider{err: errors.New("idp unreachable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer anything")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCurrentUserID_Unset(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := CurrentUserID(c)
	assert.False(t, ok)
}
