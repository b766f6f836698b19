// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware provides HTTP middleware for the directory service.
//
// # Authentication Flow
//
// The auth middleware extracts a bearer token from the Authorization
// header, resolves it to a user ID through the configured
// SessionProvider, and stores that ID in the Gin context for downstream
// handlers.
//
//	Request
//	   │
//	   ▼
//	AuthMiddleware
//	   │
//	   ├─► Extract token from "Authorization: Bearer <token>"
//	   │
//	   ├─► provider.Resolve(ctx, token)
//	   │
//	   └─► Store user ID in context
//	           │
//	           ▼
//	       Handler (retrieves via CurrentUserID)
//
// The public contact endpoint deliberately does not mount this
// middleware; anonymous visitors have no session.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// ErrUnauthorized is returned by a SessionProvider when the presented
// token does not map to a user.
var ErrUnauthorized = errors.New("unauthorized")

// SessionProvider resolves a bearer token to the user ID it belongs to.
//
// Implementations must be safe for concurrent use. An empty token is a
// valid input and should resolve to ErrUnauthorized rather than a
// provider failure.
type SessionProvider interface {
	// Resolve returns the user ID owning the token, or ErrUnauthorized.
	Resolve(ctx context.Context, token string) (string, error)
}

// =============================================================================
// Static Token Provider
// =============================================================================

// StaticTokenProvider is a SessionProvider backed by an in-memory
// token-to-user table. It serves local deployments and tests; a real
// identity provider slots in behind the same interface.
type StaticTokenProvider struct {
	mu     sync.RWMutex
	tokens map[string]string
}

// NewStaticTokenProvider creates a provider with the given token→user
// table. The map is copied; later mutation of the argument is safe.
func NewStaticTokenProvider(tokens map[string]string) *StaticTokenProvider {
	copied := make(map[string]string, len(tokens))
	for token, userID := range tokens {
		copied[token] = userID
	}
	return &StaticTokenProvider{tokens: copied}
}

// AddToken registers or replaces a token for the given user.
func (p *StaticTokenProvider) AddToken(token, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens[token] = userID
}

// Resolve implements SessionProvider.
func (p *StaticTokenProvider) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	userID, ok := p.tokens[token]
	if !ok {
		return "", ErrUnauthorized
	}
	return userID, nil
}

// =============================================================================
// Context Helpers
// =============================================================================

// userIDKey is the context key for the authenticated user's ID.
// Using a dedicated key prevents collisions with other context values.
const userIDKey = "appraiserlink_user_id"

// SetUserID stores the authenticated user's ID in the Gin context.
// Called by AuthMiddleware after a successful token resolution; exposed
// for handler tests.
func SetUserID(c *gin.Context, userID string) {
	c.Set(userIDKey, userID)
}

// CurrentUserID retrieves the authenticated user's ID from the Gin
// context. The second return is false when the request was not
// authenticated.
func CurrentUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(userIDKey)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware creates a Gin middleware that authenticates requests.
//
// # Description
//
// Extracts the bearer token from the Authorization header, resolves it
// with the provided SessionProvider, and stores the resulting user ID
// in the context. Requests with no token, an unknown token, or a
// provider failure are rejected with 401; the error body never
// distinguishes the three, so the endpoint does not leak which tokens
// exist.
//
// # Inputs
//
//   - provider: SessionProvider to resolve tokens. Must not be nil.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin.
//
// # Thread Safety
//
// Thread-safe. The returned middleware can be used concurrently.
func AuthMiddleware(provider SessionProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearerToken(c)

		userID, err := provider.Resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "unauthorized",
			})
			return
		}

		SetUserID(c, userID)
		c.Next()
	}
}

// extractBearerToken parses the Authorization header expecting the
// format "Bearer <token>". Returns empty string if the header is
// missing or malformed. The "Bearer" prefix is case-insensitive per
// RFC 7235.
func extractBearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
