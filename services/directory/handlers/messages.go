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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
)

// SendMessage handles POST /v1/messages: an authenticated user sends a
// direct message. The sender is always the session user; the body only
// names the recipient and content.
func SendMessage(svc *messaging.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		senderID, ok := requireUser(c)
		if !ok {
			return
		}

		var req datatypes.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		msg, err := svc.SendAuthenticatedMessage(c.Request.Context(), senderID, req.RecipientID, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}

		slog.Info("Message sent", "messageId", msg.ID, "conversationId", msg.ConversationID)
		c.JSON(http.StatusCreated, msg)
	}
}

// SendPublicMessage handles POST /v1/contact/:profileId: an anonymous
// visitor contacts a profile owner. No session is required; the rate
// limiter in front of this route is the only gate.
func SendPublicMessage(svc *messaging.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		recipientID := c.Param("profileId")

		var req datatypes.SendPublicMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		msg, err := svc.SendPublicMessage(c.Request.Context(), recipientID,
			req.SenderName, req.SenderEmail, req.SenderPhone, req.Content)
		if err != nil {
			writeError(c, err)
			return
		}

		slog.Info("Public contact message sent", "messageId", msg.ID, "recipientId", recipientID)
		c.JSON(http.StatusCreated, msg)
	}
}

// MarkRead handles POST /v1/messages/read: marks a batch of messages
// read for the session user. Responds with how many transitions
// actually applied; already-read and foreign messages are skipped, so
// retrying a batch is harmless.
func MarkRead(svc *messaging.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		readerID, ok := requireUser(c)
		if !ok {
			return
		}

		var req datatypes.MarkReadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		applied, err := svc.MarkAsRead(c.Request.Context(), req.MessageIDs, readerID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"marked_read": applied})
	}
}

// UnreadMessages handles GET /v1/messages/unread: every unread message
// addressed to the session user, direct and public alike, oldest first.
func UnreadMessages(svc *messaging.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		msgs, err := svc.UnreadMessages(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"messages": msgs})
	}
}
