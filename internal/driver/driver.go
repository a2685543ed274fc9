// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package driver defines the boundary to a positioning sensor and the
// sensor implementations available to the provider.
//
// A driver reports events by invoking Callbacks from goroutines it asks the
// provider to create through Callbacks.CreateThread. Callbacks may arrive
// concurrently with each other.
package driver

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

var (
	// ErrModuleNotFound is returned by Open for an unknown driver module.
	ErrModuleNotFound = errors.New("driver module not found")
	// ErrNotInitialized is returned when Start is called before Init.
	ErrNotInitialized = errors.New("driver not initialized")
)

// HardwareStatus is the engine/session status reported by a driver.
type HardwareStatus int

const (
	StatusNone HardwareStatus = iota
	StatusSessionBegin
	StatusSessionEnd
	StatusEngineOn
	StatusEngineOff
)

func (s HardwareStatus) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusSessionBegin:
		return "session-begin"
	case StatusSessionEnd:
		return "session-end"
	case StatusEngineOn:
		return "engine-on"
	case StatusEngineOff:
		return "engine-off"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// PositionMode selects how the receiver computes fixes.
type PositionMode int

const (
	ModeStandalone PositionMode = iota
	ModeMSBased
	ModeMSAssisted
)

func (m PositionMode) String() string {
	switch m {
	case ModeStandalone:
		return "standalone"
	case ModeMSBased:
		return "ms-based"
	case ModeMSAssisted:
		return "ms-assisted"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Recurrence selects periodic or single-shot fixes.
type Recurrence int

const (
	RecurrencePeriodic Recurrence = iota
	RecurrenceSingle
)

// Capabilities is the optional-feature bitmask a driver advertises.
type Capabilities uint32

const (
	CapabilityScheduling   Capabilities = 1 << 0
	CapabilityMSBased      Capabilities = 1 << 1
	CapabilityMSAssisted   Capabilities = 1 << 2
	CapabilitySingleShot   Capabilities = 1 << 3
	CapabilityOnDemandTime Capabilities = 1 << 4
)

var capabilityNames = []struct {
	bit  Capabilities
	name string
}{
	{CapabilityScheduling, "scheduling"},
	{CapabilityMSBased, "ms-based"},
	{CapabilityMSAssisted, "ms-assisted"},
	{CapabilitySingleShot, "single-shot"},
	{CapabilityOnDemandTime, "on-demand-time"},
}

// Names lists the capabilities set in c.
func (c Capabilities) Names() []string {
	var out []string
	for _, cn := range capabilityNames {
		if c&cn.bit != 0 {
			out = append(out, cn.name)
		}
	}
	return out
}

func (c Capabilities) String() string {
	names := c.Names()
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// PositionModeRequest carries the arguments of SetPositionMode.
type PositionModeRequest struct {
	Mode              PositionMode
	Recurrence        Recurrence
	MinIntervalMs     uint32
	PreferredAccuracy uint32 // meters
	PreferredTimeMs   uint32
}

// Callbacks is the surface a driver reports into.
type Callbacks interface {
	Location(loc gps.Location)
	Status(status HardwareStatus)
	SvStatus(report gps.SvReport)
	NMEA(timestampMillis int64, sentence string)
	SetCapabilities(caps Capabilities)
	AcquireWakelock()
	ReleaseWakelock()
	// CreateThread runs start on a new goroutine owned by the callee.
	CreateThread(name string, start func()) error
}

// Driver is an opened sensor handle.
type Driver interface {
	Init(cb Callbacks) error
	SetPositionMode(req PositionModeRequest) error
	InjectTime(timeMillis, referenceMillis int64, uncertaintyMs int) error
	Start() error
	Stop() error
	Cleanup()
}

// Config holds the settings every driver module is opened with.
type Config struct {
	SerialPort string
	BaudRate   int
	PowerPin   string
	IntervalMs int
	CenterLat  float64
	CenterLon  float64
}

// Factory opens a driver module.
type Factory func(cfg Config, log logging.Logger) (Driver, error)

var (
	modulesMu sync.RWMutex
	modules   = map[string]Factory{}
)

// Register makes a driver module available to Open.
func Register(name string, f Factory) {
	modulesMu.Lock()
	defer modulesMu.Unlock()
	modules[name] = f
}

// Modules lists registered module names.
func Modules() []string {
	modulesMu.RLock()
	defer modulesMu.RUnlock()
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open looks up module and opens it.
func Open(module string, cfg Config, log logging.Logger) (Driver, error) {
	if log == nil {
		log = logging.Noop()
	}
	modulesMu.RLock()
	f, ok := modules[module]
	modulesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrModuleNotFound, module)
	}
	d, err := f(cfg, log.With(logging.String("driver", module)))
	if err != nil {
		return nil, fmt.Errorf("open driver %q: %w", module, err)
	}
	return d, nil
}

func init() {
	Register("nmea", func(cfg Config, log logging.Logger) (Driver, error) {
		return NewNMEA(cfg, log)
	})
	Register("sim", func(cfg Config, log logging.Logger) (Driver, error) {
		return NewSim(cfg, log), nil
	})
}
