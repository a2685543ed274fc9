// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/relabs-tech/geoclue_hybris/internal/bus"
	"github.com/relabs-tech/geoclue_hybris/internal/config"
	"github.com/relabs-tech/geoclue_hybris/internal/driver"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
	"github.com/relabs-tech/geoclue_hybris/internal/observability"
	"github.com/relabs-tech/geoclue_hybris/internal/provider"
)

// RunProvider runs the location provider until it is torn down by its
// clients or the process receives SIGINT/SIGTERM.
func RunProvider() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runProvider(ctx, currentConfig())
}

func runProvider(ctx context.Context, cfg *config.Config) error {
	log := newLogger(cfg, "provider")

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "geoclue-hybris",
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewProviderCollector(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.Metrics.ListenAddr != "" {
		stopMetrics := serveMetrics(cfg.Metrics.ListenAddr, metrics.Handler(), log)
		defer stopMetrics()
	}

	// a missing driver module is fatal
	drv, err := driver.Open(cfg.Driver.Module, cfg.DriverOptions(), log)
	if err != nil {
		return err
	}

	srv := bus.NewServer(busConfig(cfg, ""), log)
	if err := srv.Connect(ctx); err != nil {
		return err
	}
	defer srv.Close()

	p, err := provider.Start(ctx, provider.Options{
		Driver:            drv,
		Notifier:          srv,
		Metrics:           metrics,
		Logger:            log,
		IntervalMs:        uint32(cfg.Driver.IntervalMs),
		InjectTime:        cfg.Driver.InjectTime,
		TimeUncertaintyMs: cfg.Driver.TimeUncertaintyMs,
	})
	if err != nil {
		return err
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.Sessions.OnTeardown(cancel)

	log.Info(ctx, "provider ready",
		logging.String("service", provider.ServiceName),
		logging.String("path", provider.ObjectPath),
		logging.String("driver", cfg.Driver.Module))

	err = srv.Serve(serveCtx, bus.NewDispatcher(p.Service, log, metrics))

	// make sure the driver is stopped when leaving on a signal
	p.Service.Shutdown()

	if errors.Is(err, context.Canceled) {
		log.Info(context.Background(), "provider stopped")
		return nil
	}
	return err
}

func serveMetrics(addr string, h http.Handler, log logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info(context.Background(), "metrics listening", logging.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(context.Background(), "metrics server failed", logging.Err(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
