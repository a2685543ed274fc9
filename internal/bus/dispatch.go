// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

const tracerName = "github.com/relabs-tech/geoclue_hybris/internal/bus"

var (
	ErrUnknownMethod = errors.New("unknown method")
	ErrTimeout       = errors.New("bus call timed out")
	errNoSender      = errors.New("call has no sender")
)

// Facade is the provider surface served over the bus.
type Facade interface {
	GetStatus() gps.Status
	GetPosition() gps.Position
	GetVelocity() gps.Velocity
	GetSatellites() gps.Satellites
	GetLastSatellites() gps.Satellites
	SetOptions(opts map[string]any) error
	GetProviderInfo() (name, description string)
	AddReference(client string) error
	RemoveReference(client string) error
	Shutdown()
}

// RequestMetrics records handled calls.
type RequestMetrics interface {
	ObserveRequest(method, result string, d time.Duration)
}

type nopRequestMetrics struct{}

func (nopRequestMetrics) ObserveRequest(string, string, time.Duration) {}

type request struct {
	method string
	call   Call
	reply  func(Reply)
}

// Dispatcher serialises bus calls onto one goroutine, the only one that
// touches the facade on behalf of clients.
type Dispatcher struct {
	facade  Facade
	log     logging.Logger
	metrics RequestMetrics
	tracer  trace.Tracer
	queue   chan request
}

func NewDispatcher(f Facade, log logging.Logger, metrics RequestMetrics) *Dispatcher {
	if log == nil {
		log = logging.Noop()
	}
	if metrics == nil {
		metrics = nopRequestMetrics{}
	}
	return &Dispatcher{
		facade:  f,
		log:     log,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		queue:   make(chan request, 64),
	}
}

// Enqueue hands a call to the dispatch goroutine. It never blocks; when the
// queue is full the call is rejected with an error reply.
func (d *Dispatcher) Enqueue(method string, call Call, reply func(Reply)) {
	select {
	case d.queue <- request{method: method, call: call, reply: reply}:
	default:
		d.log.Warn(context.Background(), "dispatch queue full, dropping call",
			logging.String("method", method), logging.String("sender", call.Sender))
		if reply != nil {
			reply(Reply{ID: call.ID, Error: "provider busy"})
		}
	}
}

// Run drains the queue until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-d.queue:
			r := d.Handle(ctx, req.method, req.call)
			if req.reply != nil {
				req.reply(r)
			}
		}
	}
}

// Handle executes a single call against the facade.
func (d *Dispatcher) Handle(ctx context.Context, method string, call Call) Reply {
	start := time.Now()
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(call.Meta))
	ctx, span := d.tracer.Start(ctx, "bus."+method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("bus.method", method),
			attribute.String("bus.sender", call.Sender),
		),
	)
	defer span.End()

	result, err := d.invoke(method, call)
	reply := Reply{ID: call.ID}
	outcome := "ok"
	if err == nil && result != nil {
		reply.Result, err = json.Marshal(result)
	}
	if err != nil {
		outcome = "error"
		reply.Result = nil
		reply.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		d.log.Warn(ctx, "bus call failed",
			logging.String("method", method),
			logging.String("sender", call.Sender),
			logging.Err(err))
	}
	d.metrics.ObserveRequest(method, outcome, time.Since(start))
	return reply
}

func (d *Dispatcher) invoke(method string, call Call) (any, error) {
	f := d.facade
	switch method {
	case MethodGetStatus:
		return EncodeStatus(f.GetStatus()), nil
	case MethodGetPosition:
		return EncodePosition(f.GetPosition()), nil
	case MethodGetVelocity:
		return EncodeVelocity(f.GetVelocity()), nil
	case MethodGetSatellite:
		return EncodeSatellites(f.GetSatellites()), nil
	case MethodGetLastSatellite:
		return EncodeSatellites(f.GetLastSatellites()), nil
	case MethodSetOptions:
		var opts map[string]any
		if len(call.Args) > 0 {
			if err := json.Unmarshal(call.Args, &opts); err != nil {
				return nil, fmt.Errorf("decode options: %w", err)
			}
		}
		return struct{}{}, f.SetOptions(opts)
	case MethodGetProviderInfo:
		name, desc := f.GetProviderInfo()
		return ProviderInfoMsg{Name: name, Description: desc}, nil
	case MethodAddReference:
		if call.Sender == "" {
			return nil, errNoSender
		}
		return struct{}{}, f.AddReference(call.Sender)
	case MethodRemoveReference:
		if call.Sender == "" {
			return nil, errNoSender
		}
		return struct{}{}, f.RemoveReference(call.Sender)
	case MethodShutdown:
		f.Shutdown()
		return struct{}{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}
}
