package bus

import (
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
)

// doneToken is an already completed mqtt.Token.
type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type fakeMessage struct {
	topic    string
	payload  []byte
	retained bool
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return m.retained }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// broker is an in-memory loopback shared by fake clients.
type broker struct {
	mu        sync.Mutex
	subs      map[string]mqtt.MessageHandler
	published []fakeMessage
}

func newBroker() *broker {
	return &broker{subs: map[string]mqtt.MessageHandler{}}
}

func (b *broker) client() *fakeClient { return &fakeClient{b: b} }

func (b *broker) messages(prefix string) []fakeMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []fakeMessage
	for _, m := range b.published {
		if strings.HasPrefix(m.topic, prefix) {
			out = append(out, m)
		}
	}
	return out
}

func match(filter, topic string) bool {
	f := strings.Split(filter, "/")
	t := strings.Split(topic, "/")
	if len(f) != len(t) {
		return false
	}
	for i := range f {
		if f[i] != "+" && f[i] != t[i] {
			return false
		}
	}
	return true
}

// fakeClient implements the parts of mqtt.Client the bus uses.
type fakeClient struct {
	mqtt.Client
	b *broker
}

func (c *fakeClient) Connect() mqtt.Token     { return doneToken{} }
func (c *fakeClient) Disconnect(quiesce uint) {}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	msg := fakeMessage{topic: topic, payload: payload.([]byte), retained: retained}
	c.b.mu.Lock()
	c.b.published = append(c.b.published, msg)
	var handlers []mqtt.MessageHandler
	for filter, h := range c.b.subs {
		if match(filter, topic) {
			handlers = append(handlers, h)
		}
	}
	c.b.mu.Unlock()
	for _, h := range handlers {
		h(c, msg)
	}
	return doneToken{}
}

func (c *fakeClient) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	c.b.subs[topic] = callback
	return doneToken{}
}

func (c *fakeClient) Unsubscribe(topics ...string) mqtt.Token {
	c.b.mu.Lock()
	defer c.b.mu.Unlock()
	for _, t := range topics {
		delete(c.b.subs, t)
	}
	return doneToken{}
}

// fakeFacade records reference calls and serves fixed records.
type fakeFacade struct {
	mu       sync.Mutex
	added    []string
	removed  []string
	shutdown int
	options  map[string]any
	position gps.Position
	addErr   error
}

func (f *fakeFacade) GetStatus() gps.Status         { return gps.StatusAvailable }
func (f *fakeFacade) GetPosition() gps.Position     { return f.position }
func (f *fakeFacade) GetVelocity() gps.Velocity     { return gps.UnknownVelocity(7) }
func (f *fakeFacade) GetSatellites() gps.Satellites { return fixedSatellites() }
func (f *fakeFacade) GetLastSatellites() gps.Satellites {
	return fixedSatellites()
}

func (f *fakeFacade) SetOptions(opts map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options = opts
	return nil
}

func (f *fakeFacade) GetProviderInfo() (string, string) { return "Hybris", "Hybris GPS provider" }

func (f *fakeFacade) AddReference(client string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, client)
	return f.addErr
}

func (f *fakeFacade) RemoveReference(client string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, client)
	return nil
}

func (f *fakeFacade) Shutdown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shutdown++
}

func fixedSatellites() gps.Satellites {
	return gps.NewSatellites(100, gps.SvReport{
		List:          []gps.SatelliteInfo{{PRN: 1, Azimuth: 10, Elevation: 20, SNR: 30}, {PRN: 2}},
		UsedInFixMask: 1,
	})
}

type recRequests struct {
	mu      sync.Mutex
	results map[string]string
}

func (r *recRequests) ObserveRequest(method, result string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]string{}
	}
	r.results[method] = result
}
