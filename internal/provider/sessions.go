// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package provider

import (
	"context"
	"errors"
	"sync"

	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

// ErrTerminated is returned by session operations after teardown.
var ErrTerminated = errors.New("provider terminated")

// Sensor is the lifecycle half of a driver. Only the Registry calls it.
type Sensor interface {
	Start() error
	Stop() error
	Cleanup()
}

// Registry reference-counts client sessions and owns the sensor lifecycle.
//
// The sensor starts when the first reference of the first client arrives;
// that client becomes the owner. The provider is torn down when the last
// reference goes away or when the owner drops any reference, even if other
// clients still hold sessions.
type Registry struct {
	log     logging.Logger
	metrics Metrics
	sensor  Sensor

	mu         sync.Mutex
	sessions   map[string]int
	owner      string
	terminated bool
	onTeardown []func()
	done       chan struct{}
}

// NewRegistry creates an empty registry for sensor. onTeardown hooks run
// once, in order, after the sensor has been stopped and cleaned up.
func NewRegistry(sensor Sensor, log logging.Logger, metrics Metrics, onTeardown ...func()) *Registry {
	if log == nil {
		log = logging.Noop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Registry{
		log:        log,
		metrics:    metrics,
		sensor:     sensor,
		sessions:   make(map[string]int),
		onTeardown: onTeardown,
		done:       make(chan struct{}),
	}
}

// OnTeardown appends a hook to run at teardown.
func (r *Registry) OnTeardown(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onTeardown = append(r.onTeardown, fn)
}

func (r *Registry) AddReference(client string) error {
	r.mu.Lock()
	if r.terminated {
		r.mu.Unlock()
		return ErrTerminated
	}
	r.sessions[client]++
	start := len(r.sessions) == 1 && r.sessions[client] == 1
	if start {
		r.owner = client
	}
	count := r.sessions[client]
	r.reportLocked()
	r.mu.Unlock()

	r.log.Debug(context.Background(), "reference added",
		logging.String("client", client), logging.Int("count", count))

	if start {
		r.log.Info(context.Background(), "starting sensor", logging.String("owner", client))
		if err := r.sensor.Start(); err != nil {
			r.log.Error(context.Background(), "sensor start failed", logging.Err(err))
		}
	}
	return nil
}

// RemoveReference drops one reference held by client. Unknown clients are
// ignored.
func (r *Registry) RemoveReference(client string) error {
	r.mu.Lock()
	if r.terminated {
		r.mu.Unlock()
		return ErrTerminated
	}
	count, ok := r.sessions[client]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	count--
	if count == 0 {
		delete(r.sessions, client)
	} else {
		r.sessions[client] = count
	}
	teardown := len(r.sessions) == 0 || client == r.owner
	r.reportLocked()
	r.mu.Unlock()

	r.log.Debug(context.Background(), "reference removed",
		logging.String("client", client), logging.Int("count", count))

	if teardown {
		reason := "last reference removed"
		if client == r.owner {
			reason = "owner left"
		}
		r.teardown(reason)
	}
	return nil
}

// Shutdown tears down immediately, ignoring reference counts.
func (r *Registry) Shutdown() {
	r.teardown("shutdown requested")
}

func (r *Registry) teardown(reason string) {
	r.mu.Lock()
	if r.terminated {
		r.mu.Unlock()
		return
	}
	r.terminated = true
	live := len(r.sessions)
	r.sessions = make(map[string]int)
	hooks := r.onTeardown
	r.reportLocked()
	r.mu.Unlock()

	r.log.Info(context.Background(), "tearing down provider",
		logging.String("reason", reason), logging.Int("live_sessions", live))

	if err := r.sensor.Stop(); err != nil {
		r.log.Warn(context.Background(), "sensor stop failed", logging.Err(err))
	}
	r.sensor.Cleanup()

	for _, fn := range hooks {
		fn()
	}
	close(r.done)
}

// RefCount returns the number of references held by client.
func (r *Registry) RefCount(client string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[client]
}

func (r *Registry) Clients() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Owner() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owner
}

func (r *Registry) Terminated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminated
}

// Done is closed once teardown has completed.
func (r *Registry) Done() <-chan struct{} { return r.done }

func (r *Registry) reportLocked() {
	refs := 0
	for _, n := range r.sessions {
		refs += n
	}
	r.metrics.SetSessions(len(r.sessions), refs)
}
