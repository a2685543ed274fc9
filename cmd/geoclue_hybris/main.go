// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/geoclue_hybris/internal/app"
	"github.com/relabs-tech/geoclue_hybris/internal/config"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to YAML configuration")
	flag.Parse()

	log.Println("starting geoclue-hybris location provider")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunProvider(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
