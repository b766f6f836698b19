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
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/appraiserlink/appraiserlink/services/directory/blobstore"
	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

// maxAvatarBytes caps avatar uploads. Anything larger is rejected
// before it reaches the blob store.
const maxAvatarBytes = 5 * 1024 * 1024

// ListProfiles handles GET /v1/profiles: the public directory listing.
// Supports ?role=, ?state=, and ?search= filters; all are AND-composed.
func ListProfiles(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := datatypes.ProfileFilter{
			Role:   datatypes.ProfileRole(c.Query("role")),
			State:  c.Query("state"),
			Search: c.Query("search"),
		}
		switch filter.Role {
		case "", datatypes.RoleAppraiser, datatypes.RoleUmpire, datatypes.RoleBoth:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be appraiser, umpire, or both"})
			return
		}

		profiles, err := st.ListProfiles(c.Request.Context(), filter)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"profiles": profiles})
	}
}

// GetProfile handles GET /v1/profiles/:profileId. Public: visitors read
// profiles before contacting their owners.
func GetProfile(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := st.GetProfile(c.Request.Context(), c.Param("profileId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// UpsertProfile handles PUT /v1/profiles/:profileId. A user may only
// write their own profile; the path ID must match the session user.
func UpsertProfile(st store.Store, clock messaging.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		profileID := c.Param("profileId")
		if profileID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another user's profile"})
			return
		}

		var req datatypes.UpsertProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		now := clock.Now()
		profile := &datatypes.Profile{
			ID:        profileID,
			Name:      req.Name,
			Role:      datatypes.ProfileRole(req.Role),
			Company:   req.Company,
			State:     strings.ToUpper(req.State),
			Bio:       req.Bio,
			Email:     req.Email,
			Phone:     req.Phone,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if existing, err := st.GetProfile(c.Request.Context(), profileID); err == nil {
			profile.CreatedAt = existing.CreatedAt
			profile.ImageURL = existing.ImageURL
		} else if !errors.Is(err, store.ErrNotFound) {
			writeError(c, err)
			return
		}

		if err := st.PutProfile(c.Request.Context(), profile); err != nil {
			writeError(c, err)
			return
		}
		slog.Info("Profile upserted", "profileId", profileID)
		c.JSON(http.StatusOK, profile)
	}
}

// DeleteProfile handles DELETE /v1/profiles/:profileId. Conversations
// and messages survive; other users see the counterpart as absent.
func DeleteProfile(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		profileID := c.Param("profileId")
		if profileID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot delete another user's profile"})
			return
		}

		if err := st.DeleteProfile(c.Request.Context(), profileID); err != nil {
			writeError(c, err)
			return
		}
		slog.Info("Profile deleted", "profileId", profileID)
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	}
}

// UploadAvatar handles POST /v1/profiles/:profileId/avatar: multipart
// upload of a profile image. The blob lands in the avatar store and the
// profile's ImageURL is updated to the returned URL.
func UploadAvatar(st store.Store, blobs blobstore.Store, clock messaging.Clock) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}
		profileID := c.Param("profileId")
		if profileID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "cannot edit another user's profile"})
			return
		}

		profile, err := st.GetProfile(c.Request.Context(), profileID)
		if err != nil {
			writeError(c, err)
			return
		}

		header, err := c.FormFile("avatar")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
			return
		}
		if header.Size > maxAvatarBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar exceeds the 5MB limit"})
			return
		}

		contentType := header.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "image/") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "avatar must be an image"})
			return
		}

		file, err := header.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read avatar file"})
			return
		}
		defer file.Close()

		name := fmt.Sprintf("avatars/%s%s", profileID, filepath.Ext(header.Filename))
		url, err := blobs.Upload(c.Request.Context(), name, contentType, file)
		if err != nil {
			slog.Error("Avatar upload failed", "profileId", profileID, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "avatar storage unavailable"})
			return
		}

		profile.ImageURL = url
		profile.UpdatedAt = clock.Now()
		if err := st.PutProfile(c.Request.Context(), profile); err != nil {
			writeError(c, err)
			return
		}

		slog.Info("Avatar uploaded", "profileId", profileID, "url", url)
		c.JSON(http.StatusOK, gin.H{"image_url": url})
	}
}
