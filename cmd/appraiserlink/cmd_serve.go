// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	appconfig "github.com/appraiserlink/appraiserlink/cmd/appraiserlink/config"
	"github.com/appraiserlink/appraiserlink/pkg/logging"
	"github.com/appraiserlink/appraiserlink/services/directory/blobstore"
	"github.com/appraiserlink/appraiserlink/services/directory/messaging"
	"github.com/appraiserlink/appraiserlink/services/directory/middleware"
	"github.com/appraiserlink/appraiserlink/services/directory/observability"
	"github.com/appraiserlink/appraiserlink/services/directory/routes"
	"github.com/appraiserlink/appraiserlink/services/directory/store"
	"github.com/appraiserlink/appraiserlink/services/directory/store/badgerstore"
)

// parseLogLevel maps the config's level string onto the logging
// package's Level, defaulting to info.
func parseLogLevel(level string) logging.Level {
	switch level {
	case "debug":
		return logging.LevelDebug
	case "warn":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func loadConfig() (appconfig.AppConfig, error) {
	if configPath != "" {
		return appconfig.LoadFrom(configPath)
	}
	if err := appconfig.Load(); err != nil {
		return appconfig.AppConfig{}, err
	}
	return appconfig.Global, nil
}

func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.New(logging.Config{
		Level:   parseLogLevel(cfg.Logging.Level),
		LogDir:  cfg.Logging.Dir,
		Service: "directory",
		JSON:    cfg.Logging.JSON,
	})
	defer logger.Close()
	lg := logger.Slog()
	lg.Info("Starting the appraiserlink directory server", "port", cfg.Server.Port)

	var st store.Store
	if cfg.Server.DataDir == "" {
		lg.Info("No data_dir configured, using the in-memory store")
		st = store.NewMemory()
	} else {
		badgerCfg := badgerstore.DefaultConfig(cfg.Server.DataDir)
		badgerCfg.Logger = lg
		st, err = badgerstore.Open(badgerCfg)
		if err != nil {
			return fmt.Errorf("failed to open the badger store: %w", err)
		}
	}
	defer st.Close()

	var blobs blobstore.Store
	if cfg.Avatars.Bucket == "" {
		lg.Info("No avatar bucket configured, storing avatars in memory")
		blobs = blobstore.NewMemory()
	} else {
		blobs, err = blobstore.NewGCS(context.Background(), cfg.Avatars.Bucket, cfg.Avatars.CredentialsFile)
		if err != nil {
			return fmt.Errorf("failed to open the avatar store: %w", err)
		}
	}
	defer blobs.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMessagingMetrics(registry)

	contactRate := cfg.Contact.RatePerSecond
	if contactRate <= 0 {
		contactRate = 1
	}
	contactBurst := cfg.Contact.Burst
	if contactBurst <= 0 {
		contactBurst = 5
	}

	router := gin.Default()
	routes.SetupRoutes(router, routes.Deps{
		Service:     messaging.NewService(st, messaging.NewBroker(), messaging.SystemClock(), metrics),
		Store:       st,
		Blobs:       blobs,
		Sessions:    middleware.NewStaticTokenProvider(cfg.Sessions.Tokens),
		Metrics:     metrics,
		Registry:    registry,
		RateLimiter: middleware.NewRateLimiter(rate.Limit(contactRate), contactBurst),
	})

	port := cfg.Server.Port
	if port == "" {
		port = "12300"
	}
	if err := router.Run(":" + port); err != nil {
		return fmt.Errorf("server exited: %w", err)
	}
	return nil
}
