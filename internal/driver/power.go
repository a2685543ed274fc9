// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package driver

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// PowerPin drives the enable line of a GPS module. A nil *PowerPin is a
// receiver without power control.
type PowerPin struct {
	name string
	pin  gpio.PinIO
}

// OpenPowerPin resolves a GPIO by name, e.g. "GPIO17". An empty name means
// no power control and returns nil.
func OpenPowerPin(name string) (*PowerPin, error) {
	if name == "" {
		return nil, nil
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("gpio %s not found", name)
	}
	return &PowerPin{name: name, pin: pin}, nil
}

func (p *PowerPin) On() error  { return p.set(gpio.High) }
func (p *PowerPin) Off() error { return p.set(gpio.Low) }

func (p *PowerPin) set(level gpio.Level) error {
	if p == nil {
		return nil
	}
	if err := p.pin.Out(level); err != nil {
		return fmt.Errorf("gpio %s out %v: %w", p.name, level, err)
	}
	return nil
}
