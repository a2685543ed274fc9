// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/provider"
)

// printer writes one line per provider signal.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

var _ provider.Notifier = (*printer)(nil)

func newPrinter(w io.Writer) *printer { return &printer{w: w} }

func (p *printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *printer) StatusChanged(s gps.Status) {
	p.printf("[STAT] %s\n", s)
}

func (p *printer) PositionChanged(pos gps.Position) {
	p.printf("[POS ] t=%d lat=%.6f lon=%.6f alt=%.1fm acc=%s/%.1fm fields=%s\n",
		pos.Timestamp, pos.Latitude, pos.Longitude, pos.Altitude,
		pos.Accuracy.Level, pos.Accuracy.Horizontal, pos.Fields)
}

func (p *printer) VelocityChanged(v gps.Velocity) {
	p.printf("[VEL ] t=%d speed=%.2fm/s dir=%.1f° climb=%.1f fields=%s\n",
		v.Timestamp, v.Speed, v.Direction, v.Climb, v.Fields)
}

func (p *printer) SatelliteChanged(s gps.Satellites) {
	prns := make([]string, len(s.UsedPRN))
	for i, prn := range s.UsedPRN {
		prns[i] = fmt.Sprint(prn)
	}
	p.printf("[SATS] t=%d used=%d visible=%d prn=[%s]\n",
		s.Timestamp, s.Used, s.Visible, strings.Join(prns, " "))
}
