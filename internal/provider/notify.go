// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package provider

import (
	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

// Signal names as they appear on the bus.
const (
	SignalStatusChanged    = "StatusChanged"
	SignalPositionChanged  = "PositionChanged"
	SignalVelocityChanged  = "VelocityChanged"
	SignalSatelliteChanged = "SatelliteChanged"
)

// Notifier receives broadcast notifications. Implementations are called
// from driver goroutines, never with the state lock held.
type Notifier interface {
	StatusChanged(status gps.Status)
	PositionChanged(pos gps.Position)
	VelocityChanged(vel gps.Velocity)
	SatelliteChanged(sats gps.Satellites)
}

// Notifiers fans every notification out to each member in order.
type Notifiers []Notifier

func (ns Notifiers) StatusChanged(status gps.Status) {
	for _, n := range ns {
		n.StatusChanged(status)
	}
}

func (ns Notifiers) PositionChanged(pos gps.Position) {
	for _, n := range ns {
		n.PositionChanged(pos)
	}
}

func (ns Notifiers) VelocityChanged(vel gps.Velocity) {
	for _, n := range ns {
		n.VelocityChanged(vel)
	}
}

func (ns Notifiers) SatelliteChanged(sats gps.Satellites) {
	for _, n := range ns {
		n.SatelliteChanged(sats)
	}
}

type nopNotifier struct{}

func (nopNotifier) StatusChanged(gps.Status)        {}
func (nopNotifier) PositionChanged(gps.Position)    {}
func (nopNotifier) VelocityChanged(gps.Velocity)    {}
func (nopNotifier) SatelliteChanged(gps.Satellites) {}

// Metrics is the subset of the provider collector used by this package.
type Metrics interface {
	CallbackReceived(kind string)
	NotificationEmitted(signal string)
	UpdateSuppressed(record string)
	SetSessions(clients, references int)
}

type nopMetrics struct{}

func (nopMetrics) CallbackReceived(string)    {}
func (nopMetrics) NotificationEmitted(string) {}
func (nopMetrics) UpdateSuppressed(string)    {}
func (nopMetrics) SetSessions(int, int)       {}

// emit publishes u in status, position, velocity, satellites order.
func emit(u Update, n Notifier, m Metrics) {
	for _, rec := range u.Suppressed {
		m.UpdateSuppressed(rec)
	}
	if u.Status != nil {
		n.StatusChanged(*u.Status)
		m.NotificationEmitted(SignalStatusChanged)
	}
	if u.Position != nil {
		n.PositionChanged(*u.Position)
		m.NotificationEmitted(SignalPositionChanged)
	}
	if u.Velocity != nil {
		n.VelocityChanged(*u.Velocity)
		m.NotificationEmitted(SignalVelocityChanged)
	}
	if u.Satellites != nil {
		n.SatelliteChanged(*u.Satellites)
		m.NotificationEmitted(SignalSatelliteChanged)
	}
}
