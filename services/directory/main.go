// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// The directory service hosts the appraiser/umpire directory and its
// messaging core behind one HTTP server. Configuration is entirely
// environment-driven so the container needs no mounted config:
//
//	DIRECTORY_PORT           listen port (default 12300)
//	DIRECTORY_DATA_DIR       badger data directory; empty = in-memory
//	DIRECTORY_SESSION_TOKENS "token:userId,token:userId" static table
//	DIRECTORY_AVATAR_BUCKET  GCS bucket for avatars; empty = in-memory
//	DIRECTORY_GCS_KEY        service account key path (optional)
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/appraiserlink/appraiserlink/services/directory/blobstore"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/middleware"
	"github.com/appraiserlink/appraiserlink/services/directory/observability"
	"github.com/appraiserlink/appraiserlink/services/directory/routes"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
	"github.com/appraiserlink/appraiserlink/services/directory/store/badgerstore"
)

// publicContactRate bounds anonymous contact sends per client IP.
const (
	publicContactRate  = rate.Limit(1)
	publicContactBurst = 5
)

// parseSessionTokens parses "token:userId,token:userId". Malformed
// entries are skipped with a warning rather than failing startup.
func parseSessionTokens(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, userID, ok := strings.Cut(pair, ":")
		if !ok || token == "" || userID == "" {
			slog.Warn("Skipping malformed session token entry")
			continue
		}
		tokens[token] = userID
	}
	return tokens
}

func openStore(dataDir string) (store.Store, error) {
	if dataDir == "" {
		slog.Info("DIRECTORY_DATA_DIR not set, using the in-memory store")
		return store.NewMemory(), nil
	}
	slog.Info("Opening badger store", "dataDir", dataDir)
	return badgerstore.Open(badgerstore.DefaultConfig(dataDir))
}

func openBlobs(ctx context.Context) (blobstore.Store, error) {
	bucket := os.Getenv("DIRECTORY_AVATAR_BUCKET")
	if bucket == "" {
		slog.Info("DIRECTORY_AVATAR_BUCKET not set, storing avatars in memory")
		return blobstore.NewMemory(), nil
	}
	return blobstore.NewGCS(ctx, bucket, os.Getenv("DIRECTORY_GCS_KEY"))
}

func main() {
	port := os.Getenv("DIRECTORY_PORT")
	if port == "" {
		port = "12300"
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	st, err := openStore(os.Getenv("DIRECTORY_DATA_DIR"))
	if err != nil {
		log.Fatalf("Failed to open the store: %v", err)
	}
	defer st.Close()

	blobs, err := openBlobs(context.Background())
	if err != nil {
		log.Fatalf("Failed to open the avatar store: %v", err)
	}
	defer blobs.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMessagingMetrics(registry)

	sessions := middleware.NewStaticTokenProvider(
		parseSessionTokens(os.Getenv("DIRECTORY_SESSION_TOKENS")))

	svc := messaging.NewService(st, messaging.NewBroker(), messaging.SystemClock(), metrics)

	router := gin.Default()
	routes.SetupRoutes(router, routes.Deps{
		Service:     svc,
		Store:       st,
		Blobs:       blobs,
		Sessions:    sessions,
		Metrics:     metrics,
		Registry:    registry,
		RateLimiter: middleware.NewRateLimiter(publicContactRate, publicContactBurst),
	})

	log.Println("Starting the directory server on port ", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
