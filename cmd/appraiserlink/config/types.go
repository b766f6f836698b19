// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

// AppConfig is the top-level configuration for the appraiserlink CLI
// and the directory server it launches.
type AppConfig struct {
	// Server configures the HTTP listener and persistence.
	Server ServerConfig `yaml:"server"`

	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Avatars configures profile image storage.
	Avatars AvatarConfig `yaml:"avatars"`

	// Sessions maps bearer tokens to user IDs for the static session
	// provider. A real identity provider replaces this block.
	Sessions SessionConfig `yaml:"sessions"`

	// Contact bounds the anonymous public contact channel.
	Contact ContactConfig `yaml:"contact"`
}

type ServerConfig struct {
	Port    string `yaml:"port"`     // e.g. "12300"
	DataDir string `yaml:"data_dir"` // badger directory; empty = in-memory
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	Dir   string `yaml:"dir"`   // log file directory; empty = stderr only
	JSON  bool   `yaml:"json"`
}

type AvatarConfig struct {
	// Bucket is the GCS bucket for avatar images. Empty keeps avatars
	// in process memory, which only suits local development.
	Bucket string `yaml:"bucket"`

	// CredentialsFile is a service account key path. Empty uses
	// application default credentials.
	CredentialsFile string `yaml:"credentials_file"`
}

type SessionConfig struct {
	Tokens map[string]string `yaml:"tokens"` // token -> user ID
}

type ContactConfig struct {
	RatePerSecond float64 `yaml:"rate_per_second"`
	Burst         int     `yaml:"burst"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() AppConfig {
	return AppConfig{
		Server: ServerConfig{
			Port: "12300",
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/.appraiserlink/logs",
		},
		Sessions: SessionConfig{
			Tokens: map[string]string{},
		},
		Contact: ContactConfig{
			RatePerSecond: 1,
			Burst:         5,
		},
	}
}
