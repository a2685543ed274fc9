package driver

import (
	"errors"
	"testing"
	"time"
)

func TestSimAcquiresBeforeReportingLocations(t *testing.T) {
	s := NewSim(Config{CenterLat: 40.4, CenterLon: -3.7, IntervalMs: 1000}, nil)
	rec := &recorder{}
	if err := s.Init(rec); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if rec.caps != CapabilityScheduling|CapabilitySingleShot {
		t.Fatalf("capabilities = %v", rec.caps)
	}

	now := time.Unix(1700000000, 0)
	for i := 0; i < simAcquireTicks; i++ {
		s.step(now)
	}
	if len(rec.locations) != 0 {
		t.Fatalf("location reported while acquiring")
	}
	if len(rec.reports) != simAcquireTicks {
		t.Fatalf("reports = %d, want %d", len(rec.reports), simAcquireTicks)
	}
	if rec.reports[0].UsedInFixMask != 0 {
		t.Fatalf("satellites used before fix")
	}

	s.step(now)
	if len(rec.locations) != 1 {
		t.Fatalf("locations = %d, want 1", len(rec.locations))
	}
	loc := rec.locations[0]
	if loc.TimestampMillis != now.UnixMilli() {
		t.Fatalf("timestamp = %d", loc.TimestampMillis)
	}
	if d := loc.Latitude - 40.4; d > simRadiusDeg || d < -simRadiusDeg {
		t.Fatalf("latitude %v too far from center", loc.Latitude)
	}
	used := 0
	for _, sat := range rec.reports[len(rec.reports)-1].List {
		if rec.reports[len(rec.reports)-1].UsedInFix(sat.PRN) {
			used++
		}
	}
	if used != 6 {
		t.Fatalf("used = %d, want 6", used)
	}
}

func TestSimStartStop(t *testing.T) {
	s := NewSim(Config{IntervalMs: 10}, nil)
	if err := s.Start(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Start before Init = %v", err)
	}

	rec := &recorder{}
	if err := s.Init(rec); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("second Start: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	s.Cleanup()
	rec.wg.Wait()

	got := rec.snapshotStatuses()
	want := []HardwareStatus{StatusEngineOn, StatusSessionBegin, StatusSessionEnd, StatusEngineOff}
	if len(got) != len(want) {
		t.Fatalf("statuses = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
	rec.mu.Lock()
	threads := len(rec.threads)
	reports := len(rec.reports)
	rec.mu.Unlock()
	if threads != 1 {
		t.Fatalf("threads = %d, want 1", threads)
	}
	if reports == 0 {
		t.Fatalf("sim produced no satellite reports")
	}
}
