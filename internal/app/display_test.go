package app

import (
	"math"
	"reflect"
	"testing"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

func TestDisplayLines(t *testing.T) {
	d := &displayData{}
	if got := d.lines(); !reflect.DeepEqual(got, []string{"GPS Position", "Waiting..."}) {
		t.Fatalf("initial lines = %q", got)
	}

	d.StatusChanged(gps.StatusAcquiring)
	d.SatelliteChanged(gps.Satellites{Used: 0, Visible: 5})
	if got := d.lines(); !reflect.DeepEqual(got, []string{"acquiring 0/5", "No fix"}) {
		t.Fatalf("acquiring lines = %q", got)
	}

	d.StatusChanged(gps.StatusAvailable)
	d.PositionChanged(gps.Position{
		Fields:    gps.PositionLatitude | gps.PositionLongitude | gps.PositionAltitude,
		Latitude:  40.41680,
		Longitude: -3.70380,
		Altitude:  657,
	})
	d.VelocityChanged(gps.Velocity{Fields: gps.VelocitySpeed, Speed: 1.5, Direction: math.NaN()})
	want := []string{"available 0/5", "40.41680N", "3.70380W", "Alt:657m 1.5m/s"}
	if got := d.lines(); !reflect.DeepEqual(got, want) {
		t.Fatalf("fix lines = %q, want %q", got, want)
	}
}

func TestRenderLinesDrawsPixels(t *testing.T) {
	img := renderLines([]string{"abc"})
	if img.Bounds().Dx() != 128 || img.Bounds().Dy() != 64 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	lit := 0
	for _, b := range img.Pix {
		if b != 0 {
			lit++
		}
	}
	if lit == 0 {
		t.Fatalf("nothing drawn")
	}
	if blank := renderLines(nil); blank.Pix[0] != 0 {
		t.Fatalf("blank frame not blank")
	}
}
