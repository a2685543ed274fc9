// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import "math"

// UnknownSentinel is the placeholder stored in every coordinate and
// velocity component before the first fix arrives.
const UnknownSentinel = 1.0

// Position is the last known position. Latitude, Longitude and Altitude may
// be NaN; Fields says which of them are meaningful.
type Position struct {
	Fields    PositionFields
	Timestamp int64   // unix seconds
	Latitude  float64 // decimal degrees
	Longitude float64 // decimal degrees
	Altitude  float64 // meters
	Accuracy  Accuracy
}

// Velocity is the last known velocity. Climb is always zero.
type Velocity struct {
	Fields    VelocityFields
	Timestamp int64   // unix seconds
	Speed     float64 // m/s
	Direction float64 // degrees from true north
	Climb     float64
}

// Location is a single location report as delivered by a sensor driver.
type Location struct {
	Latitude        float64
	Longitude       float64
	Altitude        float64
	Speed           float64 // m/s
	Bearing         float64 // degrees
	AccuracyMeters  float64
	TimestampMillis int64
}

// UnknownPosition returns the no-fix placeholder position.
func UnknownPosition(timestamp int64) Position {
	return Position{
		Fields:    PositionFieldsNone,
		Timestamp: timestamp,
		Latitude:  UnknownSentinel,
		Longitude: UnknownSentinel,
		Altitude:  UnknownSentinel,
		Accuracy:  Accuracy{Level: AccuracyNone},
	}
}

// UnknownVelocity returns the no-fix placeholder velocity.
func UnknownVelocity(timestamp int64) Velocity {
	return Velocity{
		Fields:    VelocityFieldsNone,
		Timestamp: timestamp,
		Speed:     UnknownSentinel,
		Direction: UnknownSentinel,
	}
}

// MillisToSeconds converts a driver timestamp to seconds, rounding to the
// nearest second.
func MillisToSeconds(ms int64) int64 {
	return int64(math.Floor(float64(ms)/1000 + 0.5))
}
