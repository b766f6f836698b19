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
	"log"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

var (
	rootCmd = &cobra.Command{
		Use:   "appraiserlink",
		Short: "A CLI to run and manage the AppraiserLink directory",
		Long: `AppraiserLink hosts a directory of insurance appraisers and umpires
with direct messaging between members and a public contact channel
for anonymous visitors.`,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Starts the directory server",
		Long: `Starts the HTTP server hosting the profile directory, the messaging
API, and the live-update websocket. Configuration comes from
~/.appraiserlink/appraiserlink.yaml unless --config points elsewhere.`,
		RunE: runServeCommand,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Prints the appraiserlink version",
		Run:   runVersionCommand,
	}

	configPath string
)

func init() {
	serveCmd.Flags().StringVar(&configPath, "config", "",
		"path to a config file (default ~/.appraiserlink/appraiserlink.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
