// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

// SatelliteInfo is the telemetry of one visible satellite. Values are
// passed through from the driver unchanged.
type SatelliteInfo struct {
	PRN       int
	Azimuth   float64 // degrees
	Elevation float64 // degrees
	SNR       float64 // dB-Hz
}

// Satellites is a snapshot of the visible and used satellite sets.
type Satellites struct {
	Timestamp int64 // unix seconds
	Used      int
	Visible   int
	UsedPRN   []int
	Info      []SatelliteInfo
}

// SvReport is one satellite status report from a driver. Bit (prn-1) of
// UsedInFixMask is set when that PRN contributes to the fix.
type SvReport struct {
	List          []SatelliteInfo
	EphemerisMask uint32
	AlmanacMask   uint32
	UsedInFixMask uint32
}

// UsedInFix reports whether prn has its bit set in the used-in-fix mask.
// PRNs outside 1..32 cannot be represented and are never used.
func (r SvReport) UsedInFix(prn int) bool {
	if prn < 1 || prn > 32 {
		return false
	}
	return r.UsedInFixMask&(1<<uint(prn-1)) != 0
}

// NewSatellites builds a snapshot from report, preserving report order.
func NewSatellites(timestamp int64, report SvReport) Satellites {
	s := Satellites{
		Timestamp: timestamp,
		UsedPRN:   make([]int, 0, len(report.List)),
		Info:      make([]SatelliteInfo, 0, len(report.List)),
	}
	for _, sv := range report.List {
		s.Info = append(s.Info, sv)
		if report.UsedInFix(sv.PRN) {
			s.UsedPRN = append(s.UsedPRN, sv.PRN)
		}
	}
	s.Used = len(s.UsedPRN)
	s.Visible = len(report.List)
	return s
}

// Clone returns a deep copy whose slices do not alias s.
func (s Satellites) Clone() Satellites {
	out := s
	out.UsedPRN = append([]int(nil), s.UsedPRN...)
	out.Info = append([]SatelliteInfo(nil), s.Info...)
	if out.UsedPRN == nil {
		out.UsedPRN = []int{}
	}
	if out.Info == nil {
		out.Info = []SatelliteInfo{}
	}
	return out
}
