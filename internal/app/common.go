// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"os"

	"github.com/relabs-tech/geoclue_hybris/internal/bus"
	"github.com/relabs-tech/geoclue_hybris/internal/config"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

// currentConfig returns the global configuration, or the defaults when
// InitGlobal was never called.
func currentConfig() *config.Config {
	if cfg := config.Get(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func newLogger(cfg *config.Config, component string) logging.Logger {
	return logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.AddSource,
	}).With(logging.String("component", component))
}

// busConfig derives the bus settings. Consumers get a per-process client id
// since the id is their identity towards the provider.
func busConfig(cfg *config.Config, role string) bus.Config {
	id := cfg.MQTT.ClientID
	if role != "" {
		id = fmt.Sprintf("%s-%s-%d", id, role, os.Getpid())
	}
	return bus.Config{
		Broker:      cfg.MQTT.Broker,
		ClientID:    id,
		Prefix:      cfg.MQTT.TopicPrefix,
		QoS:         byte(cfg.MQTT.QoS),
		CallTimeout: cfg.MQTT.CallTimeout(),
	}
}
