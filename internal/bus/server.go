// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
	"github.com/relabs-tech/geoclue_hybris/internal/provider"
)

const publishTimeout = 2 * time.Second

// Config describes the broker connection.
type Config struct {
	Broker      string
	ClientID    string
	Prefix      string
	QoS         byte
	CallTimeout time.Duration
}

func (c Config) clientOptions() *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(c.Broker).
		SetClientID(c.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
}

// Server exposes a provider on the broker. It publishes provider
// notifications and feeds incoming calls to a Dispatcher.
type Server struct {
	client mqtt.Client
	topics Topics
	qos    byte
	log    logging.Logger
}

var _ provider.Notifier = (*Server)(nil)

func NewServer(cfg Config, log logging.Logger) *Server {
	return newServer(mqtt.NewClient(cfg.clientOptions()), cfg, log)
}

func newServer(client mqtt.Client, cfg Config, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		client: client,
		topics: NewTopics(cfg.Prefix),
		qos:    cfg.QoS,
		log:    log,
	}
}

func (s *Server) Connect(ctx context.Context) error {
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	s.log.Info(ctx, "connected to broker", logging.String("prefix", s.topics.Prefix))
	return nil
}

// Serve subscribes to method calls and runs d until ctx ends.
func (s *Server) Serve(ctx context.Context, d *Dispatcher) error {
	token := s.client.Subscribe(s.topics.Calls(), s.qos, func(_ mqtt.Client, msg mqtt.Message) {
		method := Last(msg.Topic())
		var call Call
		if err := json.Unmarshal(msg.Payload(), &call); err != nil {
			s.log.Warn(context.Background(), "malformed call",
				logging.String("topic", msg.Topic()), logging.Err(err))
			return
		}
		d.Enqueue(method, call, func(r Reply) { s.reply(call.ReplyTo, r) })
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", s.topics.Calls(), token.Error())
	}
	s.log.Info(ctx, "serving calls", logging.String("topic", s.topics.Calls()))

	err := d.Run(ctx)

	if t := s.client.Unsubscribe(s.topics.Calls()); !t.WaitTimeout(publishTimeout) {
		s.log.Warn(context.Background(), "unsubscribe timed out")
	}
	return err
}

func (s *Server) Close() {
	s.client.Disconnect(250)
}

func (s *Server) reply(topic string, r Reply) {
	if topic == "" {
		return
	}
	s.publish(topic, false, r)
}

func (s *Server) StatusChanged(status gps.Status) {
	s.publish(s.topics.Signal(provider.SignalStatusChanged), true, EncodeStatus(status))
}

func (s *Server) PositionChanged(pos gps.Position) {
	s.publish(s.topics.Signal(provider.SignalPositionChanged), false, EncodePosition(pos))
}

func (s *Server) VelocityChanged(vel gps.Velocity) {
	s.publish(s.topics.Signal(provider.SignalVelocityChanged), false, EncodeVelocity(vel))
}

func (s *Server) SatelliteChanged(sats gps.Satellites) {
	s.publish(s.topics.Signal(provider.SignalSatelliteChanged), false, EncodeSatellites(sats))
}

func (s *Server) publish(topic string, retained bool, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.log.Error(context.Background(), "marshal failed", logging.String("topic", topic), logging.Err(err))
		return
	}
	token := s.client.Publish(topic, s.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		s.log.Warn(context.Background(), "publish timed out", logging.String("topic", topic))
		return
	}
	if err := token.Error(); err != nil {
		s.log.Warn(context.Background(), "publish failed", logging.String("topic", topic), logging.Err(err))
	}
}
