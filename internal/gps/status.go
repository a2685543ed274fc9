// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// Status is the provider service status.
type Status int

const (
	StatusError Status = iota
	StatusUnavailable
	StatusAcquiring
	StatusAvailable
)

func (s Status) String() string {
	switch s {
	case StatusError:
		return "error"
	case StatusUnavailable:
		return "unavailable"
	case StatusAcquiring:
		return "acquiring"
	case StatusAvailable:
		return "available"
	default:
		return "unknown"
	}
}
