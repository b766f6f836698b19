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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/appraiserlink/appraiserlink/services/directory/datatypes"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/observability"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

const wsPingInterval = 30 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// wsEvent is the frame pushed to subscribers on every live message.
type wsEvent struct {
	Type    string             `json:"type"`
	Message *datatypes.Message `json:"message,omitempty"`
}

// wsInbound is the only frame clients send: a batch of message IDs the
// viewer has just seen, to transition them to read without a separate
// HTTP round trip.
type wsInbound struct {
	MessageIDs []string `json:"message_ids"`
}

// MessagesWebSocket handles GET /v1/messages/ws.
//
// With ?conversation_id= the stream carries that conversation's new
// messages only, and the caller must be a participant. Without it the
// stream carries everything addressed to the session user, public
// contact messages included. There is no replay: events published
// before the upgrade completes are not delivered, and the client is
// expected to load history over HTTP first.
func MessagesWebSocket(svc *messaging.Service, metrics *observability.MessagingMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := requireUser(c)
		if !ok {
			return
		}

		var sub *messaging.Subscription
		if conversationID := c.Query("conversation_id"); conversationID != "" {
			conv, err := svc.Store().GetConversation(c.Request.Context(), conversationID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
					return
				}
				writeError(c, err)
				return
			}
			if !conv.HasParticipant(userID) {
				c.JSON(http.StatusForbidden, gin.H{"error": "not a participant in this conversation"})
				return
			}
			sub = svc.Broker().SubscribeConversation(conversationID)
		} else {
			sub = svc.Broker().SubscribeRecipient(userID)
		}
		defer sub.Cancel()

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		metrics.SubscriptionOpened()
		defer metrics.SubscriptionClosed()
		slog.Info("Websocket subscriber connected", "userId", userID)

		// Reader: drains control frames and mark-read batches until the
		// client goes away.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var in wsInbound
				if err := ws.ReadJSON(&in); err != nil {
					return
				}
				if len(in.MessageIDs) == 0 {
					continue
				}
				if _, err := svc.MarkAsRead(c.Request.Context(), in.MessageIDs, userID); err != nil {
					slog.Warn("Failed to mark messages read over websocket",
						"userId", userID, "error", err)
				}
			}
		}()

		ticker := time.NewTicker(wsPingInterval)
		defer ticker.Stop()
		for {
			select {
			case msg, open := <-sub.C:
				if !open {
					return
				}
				if err := ws.WriteJSON(wsEvent{Type: "message", Message: &msg}); err != nil {
					slog.Info("Websocket subscriber disconnected", "userId", userID, "error", err.Error())
					return
				}
			case <-ticker.C:
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}
}
