package provider

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

var t0 = time.Unix(1700000000, 0)

func TestNewStateIsPlaceholder(t *testing.T) {
	s := NewState(t0)
	if s.Status() != gps.StatusError {
		t.Fatalf("status = %v, want error", s.Status())
	}
	pos := s.Position()
	if pos.Fields != gps.PositionFieldsNone || pos.Latitude != 1 || pos.Longitude != 1 || pos.Altitude != 1 {
		t.Fatalf("position = %+v", pos)
	}
	if pos.Timestamp != t0.Unix() || pos.Accuracy.Level != gps.AccuracyNone {
		t.Fatalf("position = %+v", pos)
	}
	vel := s.Velocity()
	if vel.Fields != gps.VelocityFieldsNone || vel.Speed != 1 || vel.Direction != 1 || vel.Climb != 0 {
		t.Fatalf("velocity = %+v", vel)
	}
	sats := s.Satellites()
	if sats.Used != 0 || sats.Visible != 0 || sats.UsedPRN == nil || sats.Info == nil {
		t.Fatalf("satellites = %+v", sats)
	}
}

func TestFirstFixAfterAcquiring(t *testing.T) {
	s := NewState(t0)
	s.ApplyStatus(gps.StatusAcquiring)

	u := s.ApplyLocation(gps.Location{
		Latitude:        10,
		Longitude:       20,
		Altitude:        5,
		Speed:           math.NaN(),
		Bearing:         math.NaN(),
		AccuracyMeters:  3,
		TimestampMillis: 1000000,
	})

	if u.Status == nil || *u.Status != gps.StatusAvailable {
		t.Fatalf("status update = %v, want available", u.Status)
	}
	if u.Position == nil {
		t.Fatalf("expected PositionChanged")
	}
	p := *u.Position
	if p.Fields != gps.PositionLatitude|gps.PositionLongitude|gps.PositionAltitude {
		t.Fatalf("position fields = %v", p.Fields)
	}
	if p.Timestamp != 1000 {
		t.Fatalf("timestamp = %d, want 1000", p.Timestamp)
	}
	if p.Accuracy != (gps.Accuracy{Level: gps.AccuracyDetailed, Horizontal: 3, Vertical: 3}) {
		t.Fatalf("accuracy = %+v", p.Accuracy)
	}

	// initial speed/bearing are the 1.0 sentinel, so NaN is a change
	if u.Velocity == nil {
		t.Fatalf("expected VelocityChanged")
	}
	if u.Velocity.Fields != gps.VelocityFieldsNone {
		t.Fatalf("velocity fields = %v, want none", u.Velocity.Fields)
	}
	if u.Velocity.Timestamp != 1000 || u.Velocity.Climb != 0 {
		t.Fatalf("velocity = %+v", *u.Velocity)
	}
	if s.Status() != gps.StatusAvailable {
		t.Fatalf("status = %v", s.Status())
	}
}

func TestUnchangedPositionIsSuppressed(t *testing.T) {
	nan := math.NaN()
	cases := []struct {
		name          string
		lat, lon, alt float64
		wantFields    gps.PositionFields
	}{
		{"values", 10, 20, 5, gps.PositionLatitude | gps.PositionLongitude | gps.PositionAltitude},
		{"nan altitude", 10, 20, nan, gps.PositionLatitude | gps.PositionLongitude},
		{"all nan", nan, nan, nan, gps.PositionFieldsNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewState(t0)
			loc := gps.Location{Latitude: tc.lat, Longitude: tc.lon, Altitude: tc.alt, Speed: 1, Bearing: 1, TimestampMillis: 5000}
			first := s.ApplyLocation(loc)
			if first.Position == nil {
				t.Fatalf("first update not applied")
			}

			loc.TimestampMillis = 9000
			loc.AccuracyMeters = 42
			u := s.ApplyLocation(loc)
			if u.Position != nil {
				t.Fatalf("unchanged position emitted")
			}
			if len(u.Suppressed) == 0 || u.Suppressed[0] != "position" {
				t.Fatalf("suppressed = %v", u.Suppressed)
			}
			got := s.Position()
			if got.Fields != tc.wantFields {
				t.Fatalf("fields = %v, want %v", got.Fields, tc.wantFields)
			}
			if got.Timestamp != 5 || got.Accuracy.Horizontal != 0 {
				t.Fatalf("suppressed update leaked: %+v", got)
			}
		})
	}
}

func TestUnchangedVelocityIsSuppressed(t *testing.T) {
	s := NewState(t0)
	s.ApplyLocation(gps.Location{Latitude: 1, Longitude: 2, Altitude: 3, Speed: 4, Bearing: 90})
	u := s.ApplyLocation(gps.Location{Latitude: 1.5, Longitude: 2, Altitude: 3, Speed: 4, Bearing: 90})
	if u.Position == nil {
		t.Fatalf("moved position not emitted")
	}
	if u.Velocity != nil {
		t.Fatalf("unchanged velocity emitted")
	}
	if v := s.Velocity(); v.Fields != gps.VelocitySpeed|gps.VelocityDirection {
		t.Fatalf("velocity fields = %v", v.Fields)
	}
}

func TestVelocitySharesPositionTimestamp(t *testing.T) {
	s := NewState(t0)
	s.ApplyLocation(gps.Location{Latitude: 1, Longitude: 2, Altitude: 3, Speed: 4, Bearing: 5, TimestampMillis: 1000000})

	// Position moves, velocity does not: the stored velocity still follows.
	s.ApplyLocation(gps.Location{Latitude: 9, Longitude: 2, Altitude: 3, Speed: 4, Bearing: 5, TimestampMillis: 2000000})
	if p, v := s.Position(), s.Velocity(); p.Timestamp != 2000 || v.Timestamp != 2000 {
		t.Fatalf("position ts = %d, velocity ts = %d, want 2000 for both", p.Timestamp, v.Timestamp)
	}

	// Velocity alone changes: it is stamped with the last position time.
	u := s.ApplyLocation(gps.Location{Latitude: 9, Longitude: 2, Altitude: 3, Speed: 7, Bearing: 5, TimestampMillis: 3000000})
	if u.Position != nil {
		t.Fatalf("unchanged position emitted")
	}
	if u.Velocity == nil || u.Velocity.Timestamp != 2000 {
		t.Fatalf("velocity update = %+v, want timestamp 2000", u.Velocity)
	}
	if v := s.Velocity(); v.Timestamp != 2000 || v.Speed != 7 {
		t.Fatalf("stored velocity = %+v", v)
	}
}

func TestLeavingAvailableClearsFields(t *testing.T) {
	for _, st := range []gps.Status{gps.StatusError, gps.StatusUnavailable, gps.StatusAcquiring} {
		t.Run(st.String(), func(t *testing.T) {
			s := NewState(t0)
			s.ApplyLocation(gps.Location{Latitude: 10, Longitude: 20, Altitude: 5, Speed: 2, Bearing: 45})

			u := s.ApplyStatus(st)
			if u.Status == nil || *u.Status != st {
				t.Fatalf("status update = %v", u.Status)
			}
			pos, vel := s.Position(), s.Velocity()
			if pos.Fields != gps.PositionFieldsNone || vel.Fields != gps.VelocityFieldsNone {
				t.Fatalf("fields = %v / %v, want none", pos.Fields, vel.Fields)
			}
			if pos.Latitude != 10 || vel.Speed != 2 {
				t.Fatalf("numeric values must be kept: %+v %+v", pos, vel)
			}
		})
	}
}

func TestSameStatusIsNoop(t *testing.T) {
	s := NewState(t0)
	s.ApplyStatus(gps.StatusAcquiring)
	if u := s.ApplyStatus(gps.StatusAcquiring); !u.Empty() {
		t.Fatalf("repeated status emitted: %+v", u)
	}
}

func TestApplySatellites(t *testing.T) {
	s := NewState(t0)
	report := gps.SvReport{
		List: []gps.SatelliteInfo{
			{PRN: 3, Azimuth: 10, Elevation: 20, SNR: 30},
			{PRN: 7, Azimuth: 11, Elevation: 21, SNR: 31},
			{PRN: 40, Azimuth: 12, Elevation: 22, SNR: 32},
			{PRN: 12, Azimuth: 13, Elevation: 23, SNR: 33},
		},
		UsedInFixMask: 1<<(3-1) | 1<<(12-1),
	}
	now := t0.Add(time.Minute)

	u := s.ApplySatellites(report, now)
	if u.Satellites == nil {
		t.Fatalf("satellites not emitted")
	}
	got := *u.Satellites
	if got.Visible != 4 || got.Used != len(got.UsedPRN) || !reflect.DeepEqual(got.UsedPRN, []int{3, 12}) {
		t.Fatalf("satellites = %+v", got)
	}
	if !reflect.DeepEqual(got.Info, report.List) {
		t.Fatalf("info = %+v", got.Info)
	}
	if got.Timestamp != now.Unix() {
		t.Fatalf("timestamp = %d", got.Timestamp)
	}

	// identical reports are still emitted and replace the previous view
	if u := s.ApplySatellites(gps.SvReport{}, now); u.Satellites == nil {
		t.Fatalf("second report not emitted")
	}
	if sats := s.Satellites(); sats.Visible != 0 || len(sats.Info) != 0 {
		t.Fatalf("view not replaced: %+v", sats)
	}
}

func TestGettersReturnCopies(t *testing.T) {
	s := NewState(t0)
	s.ApplyLocation(gps.Location{Latitude: 10, Longitude: 20, Altitude: 5, AccuracyMeters: 3})
	s.ApplySatellites(gps.SvReport{List: []gps.SatelliteInfo{{PRN: 1}}, UsedInFixMask: 1}, t0)

	a, b := s.Position(), s.Position()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("positions differ: %+v %+v", a, b)
	}
	a.Accuracy.Horizontal = 99
	if s.Position().Accuracy.Horizontal != 3 {
		t.Fatalf("accuracy aliased")
	}

	sats := s.Satellites()
	sats.Info[0].PRN = 99
	sats.UsedPRN[0] = 99
	again := s.Satellites()
	if again.Info[0].PRN != 1 || again.UsedPRN[0] != 1 {
		t.Fatalf("satellite slices aliased")
	}
}

func TestReleasedStateIgnoresUpdates(t *testing.T) {
	s := NewState(t0)
	s.ApplyStatus(gps.StatusAcquiring)
	s.Release()

	if u := s.ApplyLocation(gps.Location{Latitude: 10}); !u.Empty() {
		t.Fatalf("update after release: %+v", u)
	}
	if u := s.ApplyStatus(gps.StatusUnavailable); !u.Empty() {
		t.Fatalf("status after release: %+v", u)
	}
	if u := s.ApplySatellites(gps.SvReport{}, t0); !u.Empty() {
		t.Fatalf("satellites after release: %+v", u)
	}
	if s.Status() != gps.StatusAcquiring {
		t.Fatalf("status = %v", s.Status())
	}
}
