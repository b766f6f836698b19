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
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
)

// ListConversations handles GET /v1/conversations: the session user's
// inbox, most recently active first, each entry carrying the other
// participant's profile, the latest message, and the unread count.
func ListConversations(svc *messaging.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		summaries, err := svc.ConversationsForUser(c.Request.Context(), userID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"conversations": summaries})
	}
}

// ConversationMessages handles GET /v1/conversations/:conversationId/messages.
//
// Opening a conversation is also the act of reading it: every unread
// message addressed to the viewer transitions to read as part of the
// load, and the returned history reflects that. Non-participants get
// 403; a missing conversation gets 404.
func ConversationMessages(svc *messaging.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewerID, ok := requireUser(c)
		if !ok {
			return
		}
		conversationID := c.Param("conversationId")

		msgs, marked, err := svc.LoadConversation(c.Request.Context(), conversationID, viewerID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"messages":    msgs,
			"marked_read": marked,
		})
	}
}
