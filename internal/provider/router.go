// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package provider

import (
	"context"
	"sync"
	"time"

	"github.com/relabs-tech/geoclue_hybris/internal/driver"
	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

// Router is the callback set handed to the driver. It turns driver events
// into State mutations and emits the resulting notifications once the state
// lock is released. Every method may be called from any goroutine.
//
// emitMu is held from before a mutation until its notifications are out, so
// subscribers see changes in the order they were applied and the last
// StatusChanged always matches State.Status.
type Router struct {
	emitMu  sync.Mutex
	state   *State
	notify  Notifier
	metrics Metrics
	log     logging.Logger
	now     func() time.Time
	threads threads
}

var _ driver.Callbacks = (*Router)(nil)

func NewRouter(state *State, notify Notifier, metrics Metrics, log logging.Logger) *Router {
	if notify == nil {
		notify = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Router{
		state:   state,
		notify:  notify,
		metrics: metrics,
		log:     log,
		now:     time.Now,
		threads: threads{log: log},
	}
}

func (r *Router) Location(loc gps.Location) {
	r.metrics.CallbackReceived("location")
	r.apply(func() Update { return r.state.ApplyLocation(loc) })
}

func (r *Router) Status(hw driver.HardwareStatus) {
	r.metrics.CallbackReceived("status")

	var st gps.Status
	switch hw {
	case driver.StatusNone:
		st = gps.StatusUnavailable
	case driver.StatusEngineOn:
		st = gps.StatusAcquiring
	case driver.StatusEngineOff:
		st = gps.StatusUnavailable
	default:
		r.log.Debug(context.Background(), "hardware status ignored", logging.Stringer("status", hw))
		return
	}
	r.apply(func() Update { return r.state.ApplyStatus(st) })
}

func (r *Router) SvStatus(report gps.SvReport) {
	r.metrics.CallbackReceived("satellites")
	r.apply(func() Update { return r.state.ApplySatellites(report, r.now()) })
}

// apply runs one state mutation and emits its notifications before any
// other mutation can start.
func (r *Router) apply(mutate func() Update) {
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	emit(mutate(), r.notify, r.metrics)
}

// NMEA sentences are not forwarded.
func (r *Router) NMEA(timestampMillis int64, sentence string) {
	r.metrics.CallbackReceived("nmea")
}

func (r *Router) SetCapabilities(c driver.Capabilities) {
	r.metrics.CallbackReceived("capabilities")
	r.log.Info(context.Background(), "driver capabilities", logging.Stringer("capabilities", c))
}

func (r *Router) AcquireWakelock() {}
func (r *Router) ReleaseWakelock() {}

// CreateThread runs start on a goroutine that Join can wait for.
func (r *Router) CreateThread(name string, start func()) error {
	if r.state.Released() {
		return ErrTerminated
	}
	return r.threads.Go(name, start)
}

// Join waits for the driver threads to exit, bounded by ctx.
func (r *Router) Join(ctx context.Context) error {
	return r.threads.Join(ctx)
}
