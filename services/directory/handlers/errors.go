// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the directory service's HTTP API:
// messaging, conversation views, the public contact channel, the
// profile directory, and the live-update websocket.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/middleware"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

// writeError maps a messaging-core error onto an HTTP response.
//
// The mapping follows the error taxonomy: validation failures are the
// caller's fault (400), absent records are 404, access violations are
// 403, and transient store failures are 503 so clients know a retry of
// the whole operation may succeed. Anything unrecognized is a 500.
func writeError(c *gin.Context, err error) {
	var validationErr *messaging.ValidationError
	var notFoundErr *messaging.NotFoundError
	var storeErr *store.StoreError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.Is(err, messaging.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant in this conversation"})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &storeErr):
		slog.Error("Store failure while serving request", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage temporarily unavailable"})
	default:
		slog.Error("Unhandled error while serving request", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// requireUser pulls the authenticated user ID out of the context or
// aborts with 401. Handlers behind AuthMiddleware should never hit the
// abort path; it guards against a route wired up without it.
func requireUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.CurrentUserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return "", false
	}
	return userID, true
}
