package driver

import (
	"errors"
	"sync"
	"testing"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

// recorder is a Callbacks implementation that keeps everything it is given.
type recorder struct {
	mu        sync.Mutex
	locations []gps.Location
	statuses  []HardwareStatus
	reports   []gps.SvReport
	sentences []string
	caps      Capabilities
	threads   []string
	wg        sync.WaitGroup
}

func (r *recorder) Location(loc gps.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations = append(r.locations, loc)
}

func (r *recorder) Status(s HardwareStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
}

func (r *recorder) SvStatus(report gps.SvReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recorder) NMEA(timestampMillis int64, sentence string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sentences = append(r.sentences, sentence)
}

func (r *recorder) SetCapabilities(c Capabilities) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caps = c
}

func (r *recorder) AcquireWakelock() {}
func (r *recorder) ReleaseWakelock() {}

func (r *recorder) CreateThread(name string, start func()) error {
	r.mu.Lock()
	r.threads = append(r.threads, name)
	r.mu.Unlock()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		start()
	}()
	return nil
}

func (r *recorder) snapshotStatuses() []HardwareStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HardwareStatus(nil), r.statuses...)
}

func TestOpenUnknownModule(t *testing.T) {
	_, err := Open("does-not-exist", Config{}, nil)
	if !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("Open error = %v, want ErrModuleNotFound", err)
	}
}

func TestOpenSim(t *testing.T) {
	d, err := Open("sim", Config{IntervalMs: 100}, nil)
	if err != nil {
		t.Fatalf("Open sim: %v", err)
	}
	if _, ok := d.(*Sim); !ok {
		t.Fatalf("Open sim returned %T", d)
	}
}

func TestOpenNMEARequiresPort(t *testing.T) {
	if _, err := Open("nmea", Config{}, nil); err == nil {
		t.Fatalf("expected error without serial port")
	}
}

func TestModulesListsBuiltins(t *testing.T) {
	names := Modules()
	want := map[string]bool{"nmea": false, "sim": false}
	for _, n := range names {
		if _, ok := want[n]; ok {
			want[n] = true
		}
	}
	for n, seen := range want {
		if !seen {
			t.Fatalf("module %q not registered, got %v", n, names)
		}
	}
}

func TestCapabilitiesString(t *testing.T) {
	if got := Capabilities(0).String(); got != "none" {
		t.Fatalf("empty capabilities = %q", got)
	}
	c := CapabilityScheduling | CapabilityMSBased
	if got := c.String(); got != "scheduling|ms-based" {
		t.Fatalf("capabilities = %q", got)
	}
}

func TestPowerPinNilIsNoop(t *testing.T) {
	p, err := OpenPowerPin("")
	if err != nil {
		t.Fatalf("OpenPowerPin: %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil pin for empty name")
	}
	if err := p.On(); err != nil {
		t.Fatalf("On: %v", err)
	}
	if err := p.Off(); err != nil {
		t.Fatalf("Off: %v", err)
	}
}
