// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProviderCollector bundles the Prometheus metrics of the location provider.
// A nil *ProviderCollector is valid and records nothing.
type ProviderCollector struct {
	gatherer prometheus.Gatherer

	Callbacks     *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Suppressed    *prometheus.CounterVec
	Clients       prometheus.Gauge
	References    prometheus.Gauge

	BusRequests  *prometheus.CounterVec
	BusDurations *prometheus.HistogramVec
}

// NewProviderCollector registers provider metrics against reg, defaulting to
// the global registry when nil.
func NewProviderCollector(reg prometheus.Registerer) (*ProviderCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	callbacks, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gps_driver_callbacks_total",
		Help: "Driver callbacks received, labeled by callback kind.",
	}, []string{"kind"}), "gps_driver_callbacks_total")
	if err != nil {
		return nil, err
	}

	notifications, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_notifications_total",
		Help: "Change notifications emitted to subscribers, labeled by signal.",
	}, []string{"signal"}), "provider_notifications_total")
	if err != nil {
		return nil, err
	}

	suppressed, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_updates_suppressed_total",
		Help: "Driver updates that did not change provider state, labeled by record.",
	}, []string{"record"}), "provider_updates_suppressed_total")
	if err != nil {
		return nil, err
	}

	clients, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "provider_sessions_clients",
		Help: "Number of clients currently holding a reference.",
	}), "provider_sessions_clients")
	if err != nil {
		return nil, err
	}

	refs, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "provider_sessions_references",
		Help: "Total references held across all clients.",
	}), "provider_sessions_references")
	if err != nil {
		return nil, err
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bus_requests_total",
		Help: "Bus method calls handled, labeled by method and result.",
	}, []string{"method", "result"}), "bus_requests_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bus_request_duration_seconds",
		Help:    "Bus method call latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"method"}), "bus_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &ProviderCollector{
		gatherer:      gatherer,
		Callbacks:     callbacks,
		Notifications: notifications,
		Suppressed:    suppressed,
		Clients:       clients,
		References:    refs,
		BusRequests:   requests,
		BusDurations:  durations,
	}, nil
}

// CallbackReceived counts one driver callback.
func (c *ProviderCollector) CallbackReceived(kind string) {
	if c == nil {
		return
	}
	c.Callbacks.WithLabelValues(kind).Inc()
}

// NotificationEmitted counts one emitted signal.
func (c *ProviderCollector) NotificationEmitted(signal string) {
	if c == nil {
		return
	}
	c.Notifications.WithLabelValues(signal).Inc()
}

// UpdateSuppressed counts one driver update that changed nothing.
func (c *ProviderCollector) UpdateSuppressed(record string) {
	if c == nil {
		return
	}
	c.Suppressed.WithLabelValues(record).Inc()
}

// SetSessions records the current session table size.
func (c *ProviderCollector) SetSessions(clients, references int) {
	if c == nil {
		return
	}
	c.Clients.Set(float64(clients))
	c.References.Set(float64(references))
}

// ObserveRequest records one handled bus call.
func (c *ProviderCollector) ObserveRequest(method, result string, d time.Duration) {
	if c == nil {
		return
	}
	c.BusRequests.WithLabelValues(method, result).Inc()
	c.BusDurations.WithLabelValues(method).Observe(d.Seconds())
}

// Handler exposes a ready-to-use /metrics handler.
func (c *ProviderCollector) Handler() http.Handler {
	gatherer := prometheus.DefaultGatherer
	if c != nil && c.gatherer != nil {
		gatherer = c.gatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
