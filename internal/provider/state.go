// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package provider

import (
	"sync"
	"time"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

// Update describes what a state mutation changed. Each non-nil field is a
// copy taken under the state lock and is safe to publish after it is
// released.
type Update struct {
	Status     *gps.Status
	Position   *gps.Position
	Velocity   *gps.Velocity
	Satellites *gps.Satellites

	// Suppressed names the records whose update was skipped because the
	// values did not change.
	Suppressed []string
}

// Empty reports whether nothing needs to be emitted.
func (u Update) Empty() bool {
	return u.Status == nil && u.Position == nil && u.Velocity == nil && u.Satellites == nil
}

// State is the current status, position, velocity and satellite view of the
// receiver. A single mutex guards the whole aggregate so that the joint
// position/velocity compare-and-swap can never tear.
type State struct {
	mu         sync.Mutex
	status     gps.Status
	position   gps.Position
	velocity   gps.Velocity
	satellites gps.Satellites
	released   bool
}

// NewState returns the pre-fix placeholder state: status Error, all values
// at the 1.0 sentinel, no valid fields, stamped with now.
func NewState(now time.Time) *State {
	ts := now.Unix()
	return &State{
		status:     gps.StatusError,
		position:   gps.UnknownPosition(ts),
		velocity:   gps.UnknownVelocity(ts),
		satellites: gps.Satellites{Timestamp: ts, UsedPRN: []int{}, Info: []gps.SatelliteInfo{}},
	}
}

// ApplyStatus moves to st. Any status other than Available invalidates the
// stored position and velocity fields; the numeric values stay in place.
func (s *State) ApplyStatus(st gps.Status) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u Update
	if s.released {
		return u
	}
	s.applyStatusLocked(st, &u)
	return u
}

func (s *State) applyStatusLocked(st gps.Status, u *Update) {
	if st == s.status {
		return
	}
	s.status = st
	if st != gps.StatusAvailable {
		s.position.Fields = gps.PositionFieldsNone
		s.velocity.Fields = gps.VelocityFieldsNone
	}
	v := st
	u.Status = &v
}

// ApplyLocation records a fix. A location always implies availability, so
// the status moves to Available first. Position and velocity are each
// updated only when their values changed, NaN comparing equal to NaN.
// Both records carry the timestamp of the last position change.
func (s *State) ApplyLocation(loc gps.Location) Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	var u Update
	if s.released {
		return u
	}
	s.applyStatusLocked(gps.StatusAvailable, &u)

	ts := gps.MillisToSeconds(loc.TimestampMillis)

	p := &s.position
	if gps.EqualOrNaN(p.Latitude, loc.Latitude) &&
		gps.EqualOrNaN(p.Longitude, loc.Longitude) &&
		gps.EqualOrNaN(p.Altitude, loc.Altitude) {
		u.Suppressed = append(u.Suppressed, "position")
	} else {
		p.Latitude = loc.Latitude
		p.Longitude = loc.Longitude
		p.Altitude = loc.Altitude
		p.Timestamp = ts
		s.velocity.Timestamp = ts
		p.Accuracy = gps.DetailedAccuracy(loc.AccuracyMeters)
		p.Fields = gps.PositionFieldsFor(loc.Latitude, loc.Longitude, loc.Altitude)
		pos := *p
		u.Position = &pos
	}

	v := &s.velocity
	if gps.EqualOrNaN(v.Speed, loc.Speed) && gps.EqualOrNaN(v.Direction, loc.Bearing) {
		u.Suppressed = append(u.Suppressed, "velocity")
	} else {
		v.Speed = loc.Speed
		v.Direction = loc.Bearing
		v.Climb = 0
		v.Fields = gps.VelocityFieldsFor(loc.Speed, loc.Bearing)
		vel := *v
		u.Velocity = &vel
	}
	return u
}

// ApplySatellites replaces the satellite view with report. There is no
// change detection; every report is emitted.
func (s *State) ApplySatellites(report gps.SvReport, now time.Time) Update {
	snap := gps.NewSatellites(now.Unix(), report)

	s.mu.Lock()
	defer s.mu.Unlock()

	var u Update
	if s.released {
		return u
	}
	s.satellites = snap
	out := snap.Clone()
	u.Satellites = &out
	return u
}

func (s *State) Status() gps.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *State) Position() gps.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *State) Velocity() gps.Velocity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.velocity
}

func (s *State) Satellites() gps.Satellites {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.satellites.Clone()
}

// Release marks the state as torn down. Later Apply calls are no-ops and
// return an empty Update; getters keep returning the last values.
func (s *State) Release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}

func (s *State) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}
