// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package provider

import (
	"context"
	"errors"
	"time"

	"github.com/relabs-tech/geoclue_hybris/internal/driver"
	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

const (
	defaultIntervalMs  = 1000
	defaultJoinTimeout = 2 * time.Second
)

// Options configures Start.
type Options struct {
	Driver   driver.Driver
	Notifier Notifier
	Metrics  Metrics
	Logger   logging.Logger

	IntervalMs        uint32
	InjectTime        bool
	TimeUncertaintyMs int
	JoinTimeout       time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Provider is a running provider: the state, the driver callback router,
// the session registry and the service facade built on them.
type Provider struct {
	State    *State
	Router   *Router
	Sessions *Registry
	Service  *Service

	log  logging.Logger
	mode driver.PositionMode
}

// Start wires the provider around opts.Driver and brings the driver up:
// init, position mode, optional time injection, then status Acquiring.
// An init failure is not fatal; it selects standalone mode instead of
// MS-based.
func Start(ctx context.Context, opts Options) (*Provider, error) {
	if opts.Driver == nil {
		return nil, errors.New("provider: driver is required")
	}
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	notify := opts.Notifier
	if notify == nil {
		notify = nopNotifier{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.IntervalMs
	if interval == 0 {
		interval = defaultIntervalMs
	}
	joinTimeout := opts.JoinTimeout
	if joinTimeout <= 0 {
		joinTimeout = defaultJoinTimeout
	}

	state := NewState(now())
	router := NewRouter(state, notify, metrics, log)
	router.now = now

	p := &Provider{State: state, Router: router, log: log}
	p.Sessions = NewRegistry(opts.Driver, log, metrics, func() {
		state.Release()
		jctx, cancel := context.WithTimeout(context.Background(), joinTimeout)
		defer cancel()
		if err := router.Join(jctx); err != nil {
			log.Warn(context.Background(), "driver threads not joined", logging.Err(err))
		}
	})
	p.Service = NewService(state, p.Sessions, log)

	p.mode = driver.ModeMSBased
	if err := opts.Driver.Init(router); err != nil {
		log.Warn(ctx, "driver init failed, using standalone mode", logging.Err(err))
		p.mode = driver.ModeStandalone
	}

	req := driver.PositionModeRequest{
		Mode:          p.mode,
		Recurrence:    driver.RecurrencePeriodic,
		MinIntervalMs: interval,
	}
	if err := opts.Driver.SetPositionMode(req); err != nil {
		log.Warn(ctx, "set position mode failed", logging.Err(err))
	}

	if opts.InjectTime {
		t := now().UnixMilli()
		if err := opts.Driver.InjectTime(t, t, opts.TimeUncertaintyMs); err != nil {
			log.Warn(ctx, "time injection failed", logging.Err(err))
		}
	}

	router.apply(func() Update { return state.ApplyStatus(gps.StatusAcquiring) })

	log.Info(ctx, "provider started",
		logging.Stringer("mode", p.mode), logging.Int("interval_ms", int(interval)))
	return p, nil
}

// Mode returns the position mode selected at start.
func (p *Provider) Mode() driver.PositionMode { return p.mode }
