// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package provider

import (
	"context"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

// Identity of the provider on the bus.
const (
	ProviderName        = "Hybris"
	ProviderDescription = "Hybris GPS provider"
	ServiceName         = "org.freedesktop.Geoclue.Providers.Hybris"
	ObjectPath          = "/org/freedesktop/Geoclue/Providers/Hybris"
)

// Service is the request surface exposed to clients. Getters return copies.
type Service struct {
	state    *State
	sessions *Registry
	log      logging.Logger
}

func NewService(state *State, sessions *Registry, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{state: state, sessions: sessions, log: log}
}

func (s *Service) GetStatus() gps.Status         { return s.state.Status() }
func (s *Service) GetPosition() gps.Position     { return s.state.Position() }
func (s *Service) GetVelocity() gps.Velocity     { return s.state.Velocity() }
func (s *Service) GetSatellites() gps.Satellites { return s.state.Satellites() }

// GetLastSatellites returns the last known satellite view, which is the
// current one.
func (s *Service) GetLastSatellites() gps.Satellites { return s.state.Satellites() }

// SetOptions accepts and ignores options; no keys are recognised.
func (s *Service) SetOptions(opts map[string]any) error {
	if len(opts) > 0 {
		s.log.Debug(context.Background(), "options ignored", logging.Int("count", len(opts)))
	}
	return nil
}

func (s *Service) GetProviderInfo() (name, description string) {
	return ProviderName, ProviderDescription
}

func (s *Service) AddReference(client string) error    { return s.sessions.AddReference(client) }
func (s *Service) RemoveReference(client string) error { return s.sessions.RemoveReference(client) }

// Shutdown stops the provider regardless of outstanding references.
func (s *Service) Shutdown() { s.sessions.Shutdown() }

// Done is closed once the provider has been torn down.
func (s *Service) Done() <-chan struct{} { return s.sessions.Done() }
