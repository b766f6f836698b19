// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/appraiserlink/appraiserlink/services/directory/blobstore"
	"github.com/appraiserlink/appraiserlink/services/directory/handlers"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/middleware"
	"github.com/appraiserlink/appraiserlink/services/directory/observability"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
)

// Deps carries everything the route table needs. The service owns the
// store and broker; the rest are cross-cutting.
type Deps struct {
	Service     *messaging.Service
	Store       store.Store
	Blobs       blobstore.Store
	Sessions    middleware.SessionProvider
	Metrics     *observability.MessagingMetrics
	Registry    *prometheus.Registry
	RateLimiter *middleware.RateLimiter
	Clock       messaging.Clock
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	clock := deps.Clock
	if clock == nil {
		clock = messaging.SystemClock()
	}

	router.GET("/health", handlers.Health())
	if deps.Registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	// Public surface: the directory itself and the visitor contact
	// channel. No session required.
	v1 := router.Group("/v1")
	{
		v1.GET("/profiles", handlers.ListProfiles(deps.Store))
		v1.GET("/profiles/:profileId", handlers.GetProfile(deps.Store))
		contact := v1.Group("/contact")
		if deps.RateLimiter != nil {
			contact.Use(deps.RateLimiter.Middleware())
		}
		contact.POST("/:profileId", handlers.SendPublicMessage(deps.Service))
	}

	// Authenticated surface.
	authed := router.Group("/v1", middleware.AuthMiddleware(deps.Sessions))
	{
		authed.POST("/messages", handlers.SendMessage(deps.Service))
		authed.POST("/messages/read", handlers.MarkRead(deps.Service))
		authed.GET("/messages/unread", handlers.UnreadMessages(deps.Service))
		authed.GET("/messages/ws", handlers.MessagesWebSocket(deps.Service, deps.Metrics))
		authed.GET("/conversations", handlers.ListConversations(deps.Service))
		authed.GET("/conversations/:conversationId/messages", handlers.ConversationMessages(deps.Service))
		authed.PUT("/profiles/:profileId", handlers.UpsertProfile(deps.Store, clock))
		authed.DELETE("/profiles/:profileId", handlers.DeleteProfile(deps.Store))
		authed.POST("/profiles/:profileId/avatar", handlers.UploadAvatar(deps.Store, deps.Blobs, clock))
	}
}
