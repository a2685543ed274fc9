package app

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

func TestPrinterLines(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf)

	p.StatusChanged(gps.StatusAvailable)
	p.PositionChanged(gps.Position{
		Fields:    gps.PositionLatitude | gps.PositionLongitude,
		Timestamp: 1000,
		Latitude:  10,
		Longitude: 20,
		Altitude:  math.NaN(),
		Accuracy:  gps.DetailedAccuracy(3),
	})
	p.VelocityChanged(gps.Velocity{Fields: gps.VelocitySpeed, Timestamp: 1000, Speed: 1.5})
	p.SatelliteChanged(gps.Satellites{Timestamp: 1000, Used: 2, Visible: 3, UsedPRN: []int{4, 9}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	want := []string{
		"[STAT] available",
		"[POS ] t=1000 lat=10.000000 lon=20.000000 alt=NaNm acc=detailed/3.0m fields=latitude|longitude",
		"[VEL ] t=1000 speed=1.50m/s",
		"[SATS] t=1000 used=2 visible=3 prn=[4 9]",
	}
	for i, w := range want {
		if !strings.HasPrefix(lines[i], w) {
			t.Fatalf("line %d = %q, want prefix %q", i, lines[i], w)
		}
	}
}
