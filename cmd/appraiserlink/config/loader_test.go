// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLoadFrom_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "appraiserlink.yaml")
	want := AppConfig{
		Server:  ServerConfig{Port: "9999", DataDir: "/var/lib/appraiserlink"},
		Logging: LoggingConfig{Level: "debug", JSON: true},
		Avatars: AvatarConfig{Bucket: "appraiserlink-avatars"},
		Sessions: SessionConfig{
			Tokens: map[string]string{"tok-1": "user-1"},
		},
		Contact: ContactConfig{RatePerSecond: 2, Burst: 10},
	}
	data, err := yaml.Marshal(want)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	got, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadFrom_MissingFile(t *testing.T) {
	_, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFrom_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0644))
	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestCreateDefault_WritesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "appraiserlink.yaml")
	require.NoError(t, createDefault(path))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, "12300", cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, float64(1), cfg.Contact.RatePerSecond)
}
