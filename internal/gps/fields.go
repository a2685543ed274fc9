// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"math"
	"strings"
)

// PositionFields is a bitmask of position fields holding meaningful values.
type PositionFields uint32

const (
	PositionFieldsNone PositionFields = 0
	PositionLatitude   PositionFields = 1 << 0
	PositionLongitude  PositionFields = 1 << 1
	PositionAltitude   PositionFields = 1 << 2
)

// VelocityFields is a bitmask of velocity fields holding meaningful values.
type VelocityFields uint32

const (
	VelocityFieldsNone VelocityFields = 0
	VelocitySpeed      VelocityFields = 1 << 0
	VelocityDirection  VelocityFields = 1 << 1
	VelocityClimb      VelocityFields = 1 << 2
)

// PositionFieldsFor reports which of lat/lon/alt are not NaN.
func PositionFieldsFor(lat, lon, alt float64) PositionFields {
	f := PositionFieldsNone
	if !math.IsNaN(lat) {
		f |= PositionLatitude
	}
	if !math.IsNaN(lon) {
		f |= PositionLongitude
	}
	if !math.IsNaN(alt) {
		f |= PositionAltitude
	}
	return f
}

// VelocityFieldsFor reports which of speed/bearing are not NaN. Climb is
// never reported by the hardware.
func VelocityFieldsFor(speed, bearing float64) VelocityFields {
	f := VelocityFieldsNone
	if !math.IsNaN(bearing) {
		f |= VelocityDirection
	}
	if !math.IsNaN(speed) {
		f |= VelocitySpeed
	}
	return f
}

// Has reports whether all bits of want are set.
func (f PositionFields) Has(want PositionFields) bool { return f&want == want }

// Has reports whether all bits of want are set.
func (f VelocityFields) Has(want VelocityFields) bool { return f&want == want }

func (f PositionFields) String() string {
	return joinFlags(
		flag{f.Has(PositionLatitude), "latitude"},
		flag{f.Has(PositionLongitude), "longitude"},
		flag{f.Has(PositionAltitude), "altitude"},
	)
}

func (f VelocityFields) String() string {
	return joinFlags(
		flag{f.Has(VelocitySpeed), "speed"},
		flag{f.Has(VelocityDirection), "direction"},
		flag{f.Has(VelocityClimb), "climb"},
	)
}

type flag struct {
	set  bool
	name string
}

func joinFlags(flags ...flag) string {
	var names []string
	for _, fl := range flags {
		if fl.set {
			names = append(names, fl.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// EqualOrNaN compares two readings treating NaN as equal to itself, so an
// unknown value that stays unknown is not a change.
func EqualOrNaN(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	return a == b
}
