// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// AccuracyLevel is the qualitative accuracy of a fix, ordered from none to
// detailed. Values match the historical provider enumeration.
type AccuracyLevel int

const (
	AccuracyNone AccuracyLevel = iota
	AccuracyCountry
	AccuracyRegion
	AccuracyLocality
	AccuracyPostalCode
	AccuracyStreet
	AccuracyDetailed
)

func (l AccuracyLevel) String() string {
	switch l {
	case AccuracyNone:
		return "none"
	case AccuracyCountry:
		return "country"
	case AccuracyRegion:
		return "region"
	case AccuracyLocality:
		return "locality"
	case AccuracyPostalCode:
		return "postalcode"
	case AccuracyStreet:
		return "street"
	case AccuracyDetailed:
		return "detailed"
	default:
		return "unknown"
	}
}

// Accuracy describes positional uncertainty. It is a plain value: copying it
// yields an independent accuracy.
type Accuracy struct {
	Level      AccuracyLevel
	Horizontal float64 // meters
	Vertical   float64 // meters
}

// DetailedAccuracy returns a detailed-level accuracy with the same error
// radius horizontally and vertically.
func DetailedAccuracy(meters float64) Accuracy {
	return Accuracy{Level: AccuracyDetailed, Horizontal: meters, Vertical: meters}
}
