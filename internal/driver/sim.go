// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package driver

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

const (
	simRadiusDeg    = 0.002 // ~200m
	simAltitude     = 12.0
	simAccuracy     = 5.0
	simAcquireTicks = 3
)

var simPRNs = []int{2, 5, 9, 12, 15, 21, 25, 29, 31}

// Sim is a simulated receiver that drives around a circle. It produces
// smoothly changing values and needs no hardware.
type Sim struct {
	log logging.Logger

	centerLat float64
	centerLon float64

	mu       sync.Mutex
	cb       Callbacks
	interval time.Duration
	stop     chan struct{}
	tick     int
}

// NewSim creates a simulated driver centred on cfg.CenterLat/CenterLon.
func NewSim(cfg Config, log logging.Logger) *Sim {
	if log == nil {
		log = logging.Noop()
	}
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	return &Sim{
		log:       log,
		centerLat: cfg.CenterLat,
		centerLon: cfg.CenterLon,
		interval:  interval,
	}
}

func (s *Sim) Init(cb Callbacks) error {
	s.mu.Lock()
	s.cb = cb
	s.mu.Unlock()
	cb.SetCapabilities(CapabilityScheduling | CapabilitySingleShot)
	return nil
}

func (s *Sim) SetPositionMode(req PositionModeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if req.MinIntervalMs > 0 {
		s.interval = time.Duration(req.MinIntervalMs) * time.Millisecond
	}
	s.log.Debug(context.Background(), "position mode set",
		logging.Stringer("mode", req.Mode),
		logging.Int("interval_ms", int(req.MinIntervalMs)))
	return nil
}

func (s *Sim) InjectTime(timeMillis, referenceMillis int64, uncertaintyMs int) error {
	s.log.Debug(context.Background(), "time injected",
		logging.Any("time_ms", timeMillis),
		logging.Int("uncertainty_ms", uncertaintyMs))
	return nil
}

func (s *Sim) Start() error {
	s.mu.Lock()
	cb := s.cb
	if cb == nil {
		s.mu.Unlock()
		return ErrNotInitialized
	}
	if s.stop != nil {
		s.mu.Unlock()
		return nil
	}
	stop := make(chan struct{})
	s.stop = stop
	s.tick = 0
	interval := s.interval
	s.mu.Unlock()

	cb.Status(StatusEngineOn)
	cb.Status(StatusSessionBegin)
	return cb.CreateThread("gps-sim", func() { s.run(stop, interval) })
}

func (s *Sim) Stop() error {
	s.mu.Lock()
	cb := s.cb
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)
	if cb != nil {
		cb.Status(StatusSessionEnd)
		cb.Status(StatusEngineOff)
	}
	return nil
}

func (s *Sim) Cleanup() {
	_ = s.Stop()
	s.mu.Lock()
	s.cb = nil
	s.mu.Unlock()
}

func (s *Sim) run(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			s.step(now)
		}
	}
}

// step emits one tick of simulated data.
func (s *Sim) step(now time.Time) {
	s.mu.Lock()
	cb := s.cb
	n := s.tick
	s.tick++
	s.mu.Unlock()
	if cb == nil {
		return
	}

	cb.SvStatus(s.satellites(n))
	if n < simAcquireTicks {
		return
	}
	cb.Location(s.location(n, now))
}

func (s *Sim) location(n int, now time.Time) gps.Location {
	t := float64(n) * 0.05
	lat := s.centerLat + simRadiusDeg*math.Sin(t)
	lon := s.centerLon + simRadiusDeg*math.Cos(t)

	// tangential speed on the circle, in m/s per tick of the angle
	speed := simRadiusDeg * 111_320 * 0.05 / s.interval.Seconds()
	bearing := math.Mod(360-t*180/math.Pi, 360)

	return gps.Location{
		Latitude:        lat,
		Longitude:       lon,
		Altitude:        simAltitude,
		Speed:           speed,
		Bearing:         bearing,
		AccuracyMeters:  simAccuracy,
		TimestampMillis: now.UnixMilli(),
	}
}

func (s *Sim) satellites(n int) gps.SvReport {
	report := gps.SvReport{List: make([]gps.SatelliteInfo, 0, len(simPRNs))}
	for i, prn := range simPRNs {
		az := math.Mod(float64(i*40+n), 360)
		el := 15 + float64((i*7+n/10)%60)
		report.List = append(report.List, gps.SatelliteInfo{
			PRN:       prn,
			Azimuth:   az,
			Elevation: el,
			SNR:       20 + float64((i*3)%25),
		})
		report.EphemerisMask |= 1 << uint(prn-1)
		report.AlmanacMask |= 1 << uint(prn-1)
		if n >= simAcquireTicks && i < 6 {
			report.UsedInFixMask |= 1 << uint(prn-1)
		}
	}
	return report
}
