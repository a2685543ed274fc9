// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

// Call is the envelope published to <prefix>/call/<Method>.
type Call struct {
	Sender  string            `json:"sender"`
	ReplyTo string            `json:"reply_to,omitempty"`
	ID      string            `json:"id,omitempty"`
	Args    json.RawMessage   `json:"args,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"` // trace propagation
}

// Reply is published to Call.ReplyTo.
type Reply struct {
	ID     string          `json:"id,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Number is a float64 that encodes NaN as JSON null and decodes null back
// to NaN. Infinities have no wire form and fail to encode.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) {
		return []byte("null"), nil
	}
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("bus: cannot encode %v", f)
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = Number(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

type StatusMsg struct {
	Status int    `json:"status"`
	Name   string `json:"name"`
}

type AccuracyMsg struct {
	Level      int    `json:"level"`
	Horizontal Number `json:"horizontal"`
	Vertical   Number `json:"vertical"`
}

type PositionMsg struct {
	Fields    uint32      `json:"fields"`
	Timestamp int64       `json:"timestamp"`
	Latitude  Number      `json:"latitude"`
	Longitude Number      `json:"longitude"`
	Altitude  Number      `json:"altitude"`
	Accuracy  AccuracyMsg `json:"accuracy"`
}

type VelocityMsg struct {
	Fields    uint32 `json:"fields"`
	Timestamp int64  `json:"timestamp"`
	Speed     Number `json:"speed"`
	Direction Number `json:"direction"`
	Climb     Number `json:"climb"`
}

type SatInfoMsg struct {
	PRN       int    `json:"prn"`
	Azimuth   Number `json:"azimuth"`
	Elevation Number `json:"elevation"`
	SNR       Number `json:"snr"`
}

type SatellitesMsg struct {
	Timestamp int64        `json:"timestamp"`
	Used      int          `json:"used"`
	Visible   int          `json:"visible"`
	UsedPRN   []int        `json:"used_prn"`
	Info      []SatInfoMsg `json:"sat_info"`
}

type ProviderInfoMsg struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func EncodeStatus(s gps.Status) StatusMsg {
	return StatusMsg{Status: int(s), Name: s.String()}
}

func (m StatusMsg) Decode() gps.Status { return gps.Status(m.Status) }

func EncodePosition(p gps.Position) PositionMsg {
	return PositionMsg{
		Fields:    uint32(p.Fields),
		Timestamp: p.Timestamp,
		Latitude:  Number(p.Latitude),
		Longitude: Number(p.Longitude),
		Altitude:  Number(p.Altitude),
		Accuracy: AccuracyMsg{
			Level:      int(p.Accuracy.Level),
			Horizontal: Number(p.Accuracy.Horizontal),
			Vertical:   Number(p.Accuracy.Vertical),
		},
	}
}

func (m PositionMsg) Decode() gps.Position {
	return gps.Position{
		Fields:    gps.PositionFields(m.Fields),
		Timestamp: m.Timestamp,
		Latitude:  float64(m.Latitude),
		Longitude: float64(m.Longitude),
		Altitude:  float64(m.Altitude),
		Accuracy: gps.Accuracy{
			Level:      gps.AccuracyLevel(m.Accuracy.Level),
			Horizontal: float64(m.Accuracy.Horizontal),
			Vertical:   float64(m.Accuracy.Vertical),
		},
	}
}

func EncodeVelocity(v gps.Velocity) VelocityMsg {
	return VelocityMsg{
		Fields:    uint32(v.Fields),
		Timestamp: v.Timestamp,
		Speed:     Number(v.Speed),
		Direction: Number(v.Direction),
		Climb:     Number(v.Climb),
	}
}

func (m VelocityMsg) Decode() gps.Velocity {
	return gps.Velocity{
		Fields:    gps.VelocityFields(m.Fields),
		Timestamp: m.Timestamp,
		Speed:     float64(m.Speed),
		Direction: float64(m.Direction),
		Climb:     float64(m.Climb),
	}
}

func EncodeSatellites(s gps.Satellites) SatellitesMsg {
	out := SatellitesMsg{
		Timestamp: s.Timestamp,
		Used:      s.Used,
		Visible:   s.Visible,
		UsedPRN:   append([]int{}, s.UsedPRN...),
		Info:      make([]SatInfoMsg, 0, len(s.Info)),
	}
	for _, sv := range s.Info {
		out.Info = append(out.Info, SatInfoMsg{
			PRN:       sv.PRN,
			Azimuth:   Number(sv.Azimuth),
			Elevation: Number(sv.Elevation),
			SNR:       Number(sv.SNR),
		})
	}
	return out
}

func (m SatellitesMsg) Decode() gps.Satellites {
	out := gps.Satellites{
		Timestamp: m.Timestamp,
		Used:      m.Used,
		Visible:   m.Visible,
		UsedPRN:   append([]int{}, m.UsedPRN...),
		Info:      make([]gps.SatelliteInfo, 0, len(m.Info)),
	}
	for _, sv := range m.Info {
		out.Info = append(out.Info, gps.SatelliteInfo{
			PRN:       sv.PRN,
			Azimuth:   float64(sv.Azimuth),
			Elevation: float64(sv.Elevation),
			SNR:       float64(sv.SNR),
		})
	}
	return out
}
