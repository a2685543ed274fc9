// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/relabs-tech/geoclue_hybris/internal/config"
	"github.com/relabs-tech/geoclue_hybris/internal/driver"
	"github.com/relabs-tech/geoclue_hybris/internal/provider"
)

const mockClient = "mock-console"

// RunMockConsole runs the provider in-process on the simulated driver and
// prints its notifications. No broker is needed.
func RunMockConsole() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runMockConsole(ctx, currentConfig(), os.Stdout)
}

func runMockConsole(ctx context.Context, cfg *config.Config, w io.Writer) error {
	lg := newLogger(cfg, "mock")
	drv := driver.NewSim(cfg.DriverOptions(), lg)

	p, err := provider.Start(ctx, provider.Options{
		Driver:     drv,
		Notifier:   newPrinter(w),
		Logger:     lg,
		IntervalMs: uint32(cfg.Driver.IntervalMs),
	})
	if err != nil {
		return err
	}
	if err := p.Service.AddReference(mockClient); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		log.Println("mock console: shutting down")
		if err := p.Service.RemoveReference(mockClient); err != nil {
			return err
		}
	case <-p.Service.Done():
	}
	<-p.Service.Done()
	return nil
}
