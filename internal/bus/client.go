// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
	"github.com/relabs-tech/geoclue_hybris/internal/provider"
)

const defaultCallTimeout = 5 * time.Second

// RemoteError is an error reply returned by the provider.
type RemoteError struct {
	Method  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Method, e.Message)
}

// Client talks to a provider over the broker. Its MQTT client id is the
// sender identity the provider sees.
type Client struct {
	client  mqtt.Client
	topics  Topics
	id      string
	qos     byte
	timeout time.Duration
	log     logging.Logger
	tracer  trace.Tracer

	seq     atomic.Uint64
	mu      sync.Mutex
	pending map[string]chan Reply
}

func NewClient(cfg Config, log logging.Logger) *Client {
	return newClient(mqtt.NewClient(cfg.clientOptions()), cfg, log)
}

func newClient(client mqtt.Client, cfg Config, log logging.Logger) *Client {
	if log == nil {
		log = logging.Noop()
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		client:  client,
		topics:  NewTopics(cfg.Prefix),
		id:      cfg.ClientID,
		qos:     cfg.QoS,
		timeout: timeout,
		log:     log,
		tracer:  otel.Tracer(tracerName),
		pending: make(map[string]chan Reply),
	}
}

// ID is the sender identity used for reference counting.
func (c *Client) ID() string { return c.id }

// Connect connects to the broker and subscribes to this client's reply
// topic.
func (c *Client) Connect(ctx context.Context) error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	topic := c.topics.Reply(c.id)
	token := c.client.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		c.deliver(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	c.log.Info(ctx, "bus client connected", logging.String("client_id", c.id))
	return nil
}

func (c *Client) Close() {
	c.client.Disconnect(250)
}

func (c *Client) deliver(payload []byte) {
	var r Reply
	if err := json.Unmarshal(payload, &r); err != nil {
		c.log.Warn(context.Background(), "malformed reply", logging.Err(err))
		return
	}
	c.mu.Lock()
	ch, ok := c.pending[r.ID]
	delete(c.pending, r.ID)
	c.mu.Unlock()
	if !ok {
		return
	}
	ch <- r
}

// Call invokes method and decodes the result into out, which may be nil.
func (c *Client) Call(ctx context.Context, method string, args, out any) error {
	ctx, span := c.tracer.Start(ctx, "bus.call."+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("bus.method", method)),
	)
	defer span.End()

	err := c.call(ctx, method, args, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (c *Client) call(ctx context.Context, method string, args, out any) error {
	call := Call{
		Sender:  c.id,
		ReplyTo: c.topics.Reply(c.id),
		ID:      strconv.FormatUint(c.seq.Add(1), 10),
		Meta:    map[string]string{},
	}
	if args != nil {
		raw, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode args: %w", err)
		}
		call.Args = raw
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(call.Meta))

	payload, err := json.Marshal(call)
	if err != nil {
		return fmt.Errorf("encode call: %w", err)
	}

	ch := make(chan Reply, 1)
	c.mu.Lock()
	c.pending[call.ID] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, call.ID)
		c.mu.Unlock()
	}()

	token := c.client.Publish(c.topics.Call(method), c.qos, false, payload)
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("publish %s: %w", method, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", method, err)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		if r.Error != "" {
			return &RemoteError{Method: method, Message: r.Error}
		}
		if out != nil && len(r.Result) > 0 {
			if err := json.Unmarshal(r.Result, out); err != nil {
				return fmt.Errorf("decode %s result: %w", method, err)
			}
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%s: %w", method, ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) AddReference(ctx context.Context) error {
	return c.Call(ctx, MethodAddReference, nil, nil)
}

func (c *Client) RemoveReference(ctx context.Context) error {
	return c.Call(ctx, MethodRemoveReference, nil, nil)
}

func (c *Client) Shutdown(ctx context.Context) error {
	return c.Call(ctx, MethodShutdown, nil, nil)
}

func (c *Client) SetOptions(ctx context.Context, opts map[string]any) error {
	return c.Call(ctx, MethodSetOptions, opts, nil)
}

func (c *Client) GetStatus(ctx context.Context) (gps.Status, error) {
	var m StatusMsg
	if err := c.Call(ctx, MethodGetStatus, nil, &m); err != nil {
		return gps.StatusError, err
	}
	return m.Decode(), nil
}

func (c *Client) GetPosition(ctx context.Context) (gps.Position, error) {
	var m PositionMsg
	if err := c.Call(ctx, MethodGetPosition, nil, &m); err != nil {
		return gps.Position{}, err
	}
	return m.Decode(), nil
}

func (c *Client) GetVelocity(ctx context.Context) (gps.Velocity, error) {
	var m VelocityMsg
	if err := c.Call(ctx, MethodGetVelocity, nil, &m); err != nil {
		return gps.Velocity{}, err
	}
	return m.Decode(), nil
}

func (c *Client) GetSatellites(ctx context.Context) (gps.Satellites, error) {
	var m SatellitesMsg
	if err := c.Call(ctx, MethodGetSatellite, nil, &m); err != nil {
		return gps.Satellites{}, err
	}
	return m.Decode(), nil
}

func (c *Client) GetProviderInfo(ctx context.Context) (name, description string, err error) {
	var m ProviderInfoMsg
	if err := c.Call(ctx, MethodGetProviderInfo, nil, &m); err != nil {
		return "", "", err
	}
	return m.Name, m.Description, nil
}

// Subscribe delivers every provider signal to h.
func (c *Client) Subscribe(h provider.Notifier) error {
	token := c.client.Subscribe(c.topics.Signals(), c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		if err := DecodeSignal(Last(msg.Topic()), msg.Payload(), h); err != nil {
			c.log.Warn(context.Background(), "signal dropped",
				logging.String("topic", msg.Topic()), logging.Err(err))
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", c.topics.Signals(), token.Error())
	}
	return nil
}

// DecodeSignal decodes one signal payload and hands it to h.
func DecodeSignal(name string, payload []byte, h provider.Notifier) error {
	switch name {
	case provider.SignalStatusChanged:
		var m StatusMsg
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		h.StatusChanged(m.Decode())
	case provider.SignalPositionChanged:
		var m PositionMsg
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		h.PositionChanged(m.Decode())
	case provider.SignalVelocityChanged:
		var m VelocityMsg
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		h.VelocityChanged(m.Decode())
	case provider.SignalSatelliteChanged:
		var m SatellitesMsg
		if err := json.Unmarshal(payload, &m); err != nil {
			return err
		}
		h.SatelliteChanged(m.Decode())
	default:
		return fmt.Errorf("unknown signal %q", name)
	}
	return nil
}
