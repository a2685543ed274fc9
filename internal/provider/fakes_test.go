package provider

import (
	"fmt"
	"sync"

	"github.com/relabs-tech/geoclue_hybris/internal/driver"
	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

// fakeDriver records lifecycle calls.
type fakeDriver struct {
	mu       sync.Mutex
	cb       driver.Callbacks
	initErr  error
	startErr error
	inits    int
	starts   int
	stops    int
	cleanups int
	modes    []driver.PositionModeRequest
	injected []int64

	// onStart runs inside Start after the counters are updated.
	onStart func(cb driver.Callbacks)
}

func (d *fakeDriver) Init(cb driver.Callbacks) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.inits++
	d.cb = cb
	return d.initErr
}

func (d *fakeDriver) SetPositionMode(req driver.PositionModeRequest) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modes = append(d.modes, req)
	return nil
}

func (d *fakeDriver) InjectTime(timeMillis, referenceMillis int64, uncertaintyMs int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.injected = append(d.injected, timeMillis)
	return nil
}

func (d *fakeDriver) Start() error {
	d.mu.Lock()
	d.starts++
	cb := d.cb
	hook := d.onStart
	d.mu.Unlock()
	if hook != nil {
		hook(cb)
	}
	return d.startErr
}

func (d *fakeDriver) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	return nil
}

func (d *fakeDriver) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleanups++
}

func (d *fakeDriver) counts() (starts, stops, cleanups int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.starts, d.stops, d.cleanups
}

// recNotifier records every notification, plus their order.
type recNotifier struct {
	mu         sync.Mutex
	order      []string
	statuses   []gps.Status
	positions  []gps.Position
	velocities []gps.Velocity
	satellites []gps.Satellites
}

func (n *recNotifier) StatusChanged(s gps.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.order = append(n.order, fmt.Sprintf("status:%s", s))
	n.statuses = append(n.statuses, s)
}

func (n *recNotifier) PositionChanged(p gps.Position) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.order = append(n.order, "position")
	n.positions = append(n.positions, p)
}

func (n *recNotifier) VelocityChanged(v gps.Velocity) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.order = append(n.order, "velocity")
	n.velocities = append(n.velocities, v)
}

func (n *recNotifier) SatelliteChanged(s gps.Satellites) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.order = append(n.order, "satellites")
	n.satellites = append(n.satellites, s)
}

func (n *recNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.order...)
}

// recMetrics counts calls by name.
type recMetrics struct {
	mu         sync.Mutex
	callbacks  map[string]int
	emitted    map[string]int
	suppressed map[string]int
	clients    int
	refs       int
}

func newRecMetrics() *recMetrics {
	return &recMetrics{
		callbacks:  map[string]int{},
		emitted:    map[string]int{},
		suppressed: map[string]int{},
	}
}

func (m *recMetrics) CallbackReceived(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks[kind]++
}

func (m *recMetrics) NotificationEmitted(signal string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitted[signal]++
}

func (m *recMetrics) UpdateSuppressed(record string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suppressed[record]++
}

func (m *recMetrics) SetSessions(clients, refs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients, m.refs = clients, refs
}
