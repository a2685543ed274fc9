// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/geoclue_hybris/internal/bus"
)

// RunConsoleMQTT holds a reference on the provider and prints every signal
// until Ctrl+C.
func RunConsoleMQTT() error {
	cfg := currentConfig()
	ctx := context.Background()

	client := bus.NewClient(busConfig(cfg, "console"), newLogger(cfg, "console"))
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	log.Printf("console: connected to MQTT broker at %s as %s", cfg.MQTT.Broker, client.ID())

	out := newPrinter(os.Stdout)
	if err := client.Subscribe(out); err != nil {
		return err
	}
	log.Printf("console: subscribed to %s signals", cfg.MQTT.TopicPrefix)

	if name, desc, err := client.GetProviderInfo(ctx); err == nil {
		log.Printf("console: provider %s (%s)", name, desc)
	}
	if err := client.AddReference(ctx); err != nil {
		return err
	}
	if st, err := client.GetStatus(ctx); err == nil {
		out.StatusChanged(st)
	}

	// Wait for Ctrl+C
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("console: shutting down")
	if err := client.RemoveReference(ctx); err != nil {
		log.Printf("console: remove reference: %v", err)
	}
	return nil
}
