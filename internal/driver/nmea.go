// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package driver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	serial "github.com/jacobsa/go-serial/serial"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

const (
	knotsToMetersPerSecond = 0.514444
	// user equivalent range error used to turn HDOP into meters
	uereMeters = 5.0
)

// NMEA is a driver for receivers that stream NMEA 0183 over a serial port.
type NMEA struct {
	log      logging.Logger
	portName string
	baudRate int
	power    *PowerPin
	openPort func() (io.ReadCloser, error)

	mu      sync.Mutex
	cb      Callbacks
	port    io.ReadCloser
	reading bool
	mode    PositionModeRequest

	running atomic.Bool
	closing atomic.Bool
	dec     *decoder
}

// NewNMEA opens the NMEA driver module. The serial port itself is opened by
// Init.
func NewNMEA(cfg Config, log logging.Logger) (*NMEA, error) {
	if log == nil {
		log = logging.Noop()
	}
	if cfg.SerialPort == "" {
		return nil, errors.New("serial port is required")
	}
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 9600
	}
	power, err := OpenPowerPin(cfg.PowerPin)
	if err != nil {
		return nil, err
	}

	n := &NMEA{
		log:      log,
		portName: cfg.SerialPort,
		baudRate: cfg.BaudRate,
		power:    power,
		dec:      newDecoder(time.Now),
	}
	n.openPort = n.openSerial
	return n, nil
}

func (n *NMEA) openSerial() (io.ReadCloser, error) {
	opts := serial.OpenOptions{
		PortName:              n.portName,
		BaudRate:              uint(n.baudRate),
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	return serial.Open(opts)
}

// Init registers callbacks and opens the serial port. A port failure is
// reported but leaves the driver usable; Start retries the open.
func (n *NMEA) Init(cb Callbacks) error {
	n.mu.Lock()
	n.cb = cb
	n.mu.Unlock()

	cb.SetCapabilities(0)

	if err := n.ensurePort(); err != nil {
		return err
	}
	n.log.Info(context.Background(), "serial port opened",
		logging.String("port", n.portName), logging.Int("baud", n.baudRate))
	return nil
}

func (n *NMEA) ensurePort() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.port != nil {
		return nil
	}
	port, err := n.openPort()
	if err != nil {
		return fmt.Errorf("open %s: %w", n.portName, err)
	}
	n.port = port
	return nil
}

// SetPositionMode is recorded only; plain NMEA receivers have a fixed mode.
func (n *NMEA) SetPositionMode(req PositionModeRequest) error {
	n.mu.Lock()
	n.mode = req
	n.mu.Unlock()
	n.log.Debug(context.Background(), "position mode recorded",
		logging.Stringer("mode", req.Mode),
		logging.Int("interval_ms", int(req.MinIntervalMs)))
	return nil
}

// InjectTime is not supported by NMEA receivers and is ignored.
func (n *NMEA) InjectTime(timeMillis, referenceMillis int64, uncertaintyMs int) error {
	n.log.Debug(context.Background(), "time injection ignored",
		logging.Any("time_ms", timeMillis))
	return nil
}

func (n *NMEA) Start() error {
	n.mu.Lock()
	cb := n.cb
	n.mu.Unlock()
	if cb == nil {
		return ErrNotInitialized
	}
	if n.running.Load() {
		return nil
	}

	if err := n.power.On(); err != nil {
		n.log.Warn(context.Background(), "power on failed", logging.Err(err))
	}
	if err := n.ensurePort(); err != nil {
		cb.Status(StatusNone)
		return err
	}

	n.running.Store(true)
	cb.Status(StatusEngineOn)
	cb.Status(StatusSessionBegin)

	n.mu.Lock()
	port := n.port
	startReader := !n.reading
	n.reading = true
	n.mu.Unlock()

	if !startReader {
		return nil
	}
	if err := cb.CreateThread("nmea-reader", func() { n.read(port, cb) }); err != nil {
		n.mu.Lock()
		n.reading = false
		n.mu.Unlock()
		n.running.Store(false)
		return fmt.Errorf("create reader thread: %w", err)
	}
	return nil
}

func (n *NMEA) Stop() error {
	if !n.running.Swap(false) {
		return nil
	}
	n.mu.Lock()
	cb := n.cb
	n.mu.Unlock()
	if cb != nil {
		cb.Status(StatusSessionEnd)
		cb.Status(StatusEngineOff)
	}
	return n.power.Off()
}

// Cleanup stops the receiver and closes the port, which ends the reader.
func (n *NMEA) Cleanup() {
	if err := n.Stop(); err != nil {
		n.log.Warn(context.Background(), "stop during cleanup failed", logging.Err(err))
	}
	n.closing.Store(true)

	n.mu.Lock()
	port := n.port
	n.port = nil
	n.cb = nil
	n.mu.Unlock()

	if port != nil {
		if err := port.Close(); err != nil {
			n.log.Warn(context.Background(), "close serial port failed", logging.Err(err))
		}
	}
}

func (n *NMEA) read(port io.Reader, cb Callbacks) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "$") {
			continue
		}
		if !n.running.Load() {
			continue
		}
		cb.NMEA(time.Now().UnixMilli(), line)

		sentence, err := nmea.Parse(line)
		if err != nil {
			// partial sentences are common right after power-on
			continue
		}
		n.dec.feed(sentence, cb)
	}
	if err := scanner.Err(); err != nil && !n.closing.Load() {
		n.log.Warn(context.Background(), "serial read failed", logging.Err(err))
	}

	n.mu.Lock()
	n.reading = false
	n.mu.Unlock()
}

// decoder folds a stream of NMEA sentences into driver callbacks.
type decoder struct {
	now func() time.Time

	mu       sync.Mutex
	altitude float64
	hdop     float64
	usedMask uint32
	pending  []gps.SatelliteInfo
}

func newDecoder(now func() time.Time) *decoder {
	return &decoder{
		now:      now,
		altitude: math.NaN(),
		hdop:     math.NaN(),
	}
}

func (d *decoder) feed(s nmea.Sentence, cb Callbacks) {
	switch m := s.(type) {
	case nmea.GGA:
		d.mu.Lock()
		if m.FixQuality == nmea.Invalid {
			d.altitude = math.NaN()
			d.hdop = math.NaN()
		} else {
			d.altitude = m.Altitude
			d.hdop = m.HDOP
		}
		d.mu.Unlock()

	case nmea.GSA:
		var mask uint32
		if m.FixType != nmea.FixNone {
			for _, sv := range m.SV {
				prn, err := strconv.Atoi(strings.TrimSpace(sv))
				if err != nil || prn < 1 || prn > 32 {
					continue
				}
				mask |= 1 << uint(prn-1)
			}
		}
		d.mu.Lock()
		d.usedMask = mask
		d.mu.Unlock()

	case nmea.GSV:
		d.mu.Lock()
		if m.MessageNumber == 1 {
			d.pending = d.pending[:0]
		}
		for _, info := range m.Info {
			d.pending = append(d.pending, gps.SatelliteInfo{
				PRN:       int(info.SVPRNNumber),
				Azimuth:   float64(info.Azimuth),
				Elevation: float64(info.Elevation),
				SNR:       float64(info.SNR),
			})
		}
		if m.MessageNumber != m.TotalMessages {
			d.mu.Unlock()
			return
		}
		report := gps.SvReport{
			List:          append([]gps.SatelliteInfo(nil), d.pending...),
			UsedInFixMask: d.usedMask,
		}
		d.pending = d.pending[:0]
		d.mu.Unlock()
		cb.SvStatus(report)

	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			return
		}
		d.mu.Lock()
		alt := d.altitude
		accuracy := 0.0
		if !math.IsNaN(d.hdop) {
			accuracy = d.hdop * uereMeters
		}
		d.mu.Unlock()

		cb.Location(gps.Location{
			Latitude:        m.Latitude,
			Longitude:       m.Longitude,
			Altitude:        alt,
			Speed:           m.Speed * knotsToMetersPerSecond,
			Bearing:         m.Course,
			AccuracyMeters:  accuracy,
			TimestampMillis: d.fixTime(m.Date, m.Time).UnixMilli(),
		})
	}
}

func (d *decoder) fixTime(date nmea.Date, t nmea.Time) time.Time {
	if !date.Valid || !t.Valid {
		return d.now()
	}
	return time.Date(2000+date.YY, time.Month(date.MM), date.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}
