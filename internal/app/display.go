// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/geoclue_hybris/internal/bus"
	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/provider"
)

// displayData holds the latest provider signals for the OLED.
type displayData struct {
	mu sync.RWMutex

	status     gps.Status
	haveStatus bool
	pos        gps.Position
	havePos    bool
	vel        gps.Velocity
	haveVel    bool
	sats       gps.Satellites
	haveSats   bool
}

var _ provider.Notifier = (*displayData)(nil)

func (d *displayData) StatusChanged(s gps.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status, d.haveStatus = s, true
}

func (d *displayData) PositionChanged(p gps.Position) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pos, d.havePos = p, true
}

func (d *displayData) VelocityChanged(v gps.Velocity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.vel, d.haveVel = v, true
}

func (d *displayData) SatelliteChanged(s gps.Satellites) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sats, d.haveSats = s, true
}

// lines renders the current data as up to four rows of text.
func (d *displayData) lines() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.haveStatus {
		return []string{"GPS Position", "Waiting..."}
	}

	head := fmt.Sprintf("%-9s", d.status)
	if d.haveSats {
		head += fmt.Sprintf(" %d/%d", d.sats.Used, d.sats.Visible)
	}
	out := []string{head}

	if d.status != gps.StatusAvailable || !d.havePos ||
		!d.pos.Fields.Has(gps.PositionLatitude|gps.PositionLongitude) {
		return append(out, "No fix")
	}

	latDir, lat := "N", d.pos.Latitude
	if lat < 0 {
		latDir, lat = "S", -lat
	}
	lonDir, lon := "E", d.pos.Longitude
	if lon < 0 {
		lonDir, lon = "W", -lon
	}
	out = append(out,
		fmt.Sprintf("%.5f%s", lat, latDir),
		fmt.Sprintf("%.5f%s", lon, lonDir),
	)

	last := ""
	if d.pos.Fields.Has(gps.PositionAltitude) {
		last = fmt.Sprintf("Alt:%.0fm", d.pos.Altitude)
	}
	if d.haveVel && d.vel.Fields.Has(gps.VelocitySpeed) {
		last += fmt.Sprintf(" %.1fm/s", d.vel.Speed)
	}
	if last != "" {
		out = append(out, last)
	}
	return out
}

// renderLines draws rows of 7x13 text onto a 128x64 1-bit frame.
func renderLines(rows []string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	for i, row := range rows {
		if i >= 4 {
			break
		}
		drawer.Dot = fixed.P(0, 13*(i+1))
		drawer.DrawString(row)
	}
	return img
}

// RunDisplay shows provider status, position and satellites on an SSD1306
// OLED. It holds one provider reference while running.
func RunDisplay() error {
	cfg := currentConfig()
	lg := newLogger(cfg, "display")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	i2cBus, err := i2creg.Open(cfg.Display.I2CBus)
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer i2cBus.Close()

	dev, err := ssd1306.NewI2C(i2cBus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Println("display: initialized")

	if err := dev.Draw(dev.Bounds(), renderLines([]string{"Hybris GPS", "Looking for", "sats"}), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	client := bus.NewClient(busConfig(cfg, "display"), lg)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	log.Printf("display: connected to MQTT broker at %s", cfg.MQTT.Broker)

	data := &displayData{}
	if err := client.Subscribe(data); err != nil {
		return err
	}
	if err := client.AddReference(ctx); err != nil {
		return err
	}
	if st, err := client.GetStatus(ctx); err == nil {
		data.StatusChanged(st)
	}

	interval := time.Duration(cfg.Display.UpdateIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Println("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			log.Println("display: shutting down")
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.RemoveReference(rctx)
		case <-ticker.C:
			if err := dev.Draw(dev.Bounds(), renderLines(data.lines()), image.Point{}); err != nil {
				log.Printf("display: error updating display: %v", err)
			}
		}
	}
}
