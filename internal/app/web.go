// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/geoclue_hybris/internal/bus"
	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
	"github.com/relabs-tech/geoclue_hybris/internal/provider"
)

//go:embed static
var staticFiles embed.FS

// RunWeb bridges provider signals to HTTP and WebSocket clients. It holds
// one provider reference for its lifetime.
func RunWeb() error {
	cfg := currentConfig()
	lg := newLogger(cfg, "web")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := bus.NewClient(busConfig(cfg, "web"), lg)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close()
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTT.Broker)

	bridge := newWebBridge(lg)
	if err := client.Subscribe(bridge); err != nil {
		return err
	}
	if err := client.AddReference(ctx); err != nil {
		return err
	}
	if st, err := client.GetStatus(ctx); err == nil {
		bridge.StatusChanged(st)
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              cfg.Web.ListenAddr,
		Handler:           bridge.routes(static),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	log.Printf("web server listening on %s", cfg.Web.ListenAddr)
	err = srv.ListenAndServe()

	rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if rerr := client.RemoveReference(rctx); rerr != nil {
		log.Printf("web: remove reference: %v", rerr)
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// wsFrame is what browsers receive on /ws.
type wsFrame struct {
	Signal string `json:"signal"`
	Data   any    `json:"data"`
	Stamp  int64  `json:"stamp"` // unix ms
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// webBridge caches the latest signals and fans them out to WebSockets.
type webBridge struct {
	log logging.Logger

	mu         sync.RWMutex
	status     *bus.StatusMsg
	position   *bus.PositionMsg
	velocity   *bus.VelocityMsg
	satellites *bus.SatellitesMsg

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
	upgrader  websocket.Upgrader
}

var _ provider.Notifier = (*webBridge)(nil)

func newWebBridge(log logging.Logger) *webBridge {
	return &webBridge{
		log:     log,
		clients: make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (b *webBridge) routes(static fs.FS) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", b.handleWS)
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		b.mu.RLock()
		v := b.status
		b.mu.RUnlock()
		writeCached(w, v, v != nil)
	})
	mux.HandleFunc("/api/position", func(w http.ResponseWriter, r *http.Request) {
		b.mu.RLock()
		v := b.position
		b.mu.RUnlock()
		writeCached(w, v, v != nil)
	})
	mux.HandleFunc("/api/velocity", func(w http.ResponseWriter, r *http.Request) {
		b.mu.RLock()
		v := b.velocity
		b.mu.RUnlock()
		writeCached(w, v, v != nil)
	})
	mux.HandleFunc("/api/satellites", func(w http.ResponseWriter, r *http.Request) {
		b.mu.RLock()
		v := b.satellites
		b.mu.RUnlock()
		writeCached(w, v, v != nil)
	})
	return mux
}

func writeCached(w http.ResponseWriter, v any, ok bool) {
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func (b *webBridge) StatusChanged(s gps.Status) {
	m := bus.EncodeStatus(s)
	b.mu.Lock()
	b.status = &m
	b.mu.Unlock()
	b.broadcast(provider.SignalStatusChanged, m)
}

func (b *webBridge) PositionChanged(p gps.Position) {
	m := bus.EncodePosition(p)
	b.mu.Lock()
	b.position = &m
	b.mu.Unlock()
	b.broadcast(provider.SignalPositionChanged, m)
}

func (b *webBridge) VelocityChanged(v gps.Velocity) {
	m := bus.EncodeVelocity(v)
	b.mu.Lock()
	b.velocity = &m
	b.mu.Unlock()
	b.broadcast(provider.SignalVelocityChanged, m)
}

func (b *webBridge) SatelliteChanged(s gps.Satellites) {
	m := bus.EncodeSatellites(s)
	b.mu.Lock()
	b.satellites = &m
	b.mu.Unlock()
	b.broadcast(provider.SignalSatelliteChanged, m)
}

func encodeFrame(signal string, data any) ([]byte, error) {
	return json.Marshal(wsFrame{Signal: signal, Data: data, Stamp: time.Now().UnixMilli()})
}

func (b *webBridge) broadcast(signal string, data any) {
	msg, err := encodeFrame(signal, data)
	if err != nil {
		b.log.Warn(context.Background(), "encode frame failed", logging.Err(err))
		return
	}
	b.clientsMu.Lock()
	defer b.clientsMu.Unlock()
	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			// slow client, drop the frame
		}
	}
}

// snapshot returns frames for every cached signal, status first.
func (b *webBridge) snapshot() [][]byte {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var frames [][]byte
	add := func(signal string, v any) {
		if msg, err := encodeFrame(signal, v); err == nil {
			frames = append(frames, msg)
		}
	}
	if b.status != nil {
		add(provider.SignalStatusChanged, *b.status)
	}
	if b.position != nil {
		add(provider.SignalPositionChanged, *b.position)
	}
	if b.velocity != nil {
		add(provider.SignalVelocityChanged, *b.velocity)
	}
	if b.satellites != nil {
		add(provider.SignalSatelliteChanged, *b.satellites)
	}
	return frames
}

func (b *webBridge) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn(r.Context(), "websocket upgrade failed", logging.Err(err))
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}
	for _, msg := range b.snapshot() {
		client.send <- msg
	}

	b.clientsMu.Lock()
	b.clients[client] = struct{}{}
	n := len(b.clients)
	b.clientsMu.Unlock()
	b.log.Debug(r.Context(), "websocket client connected", logging.Int("clients", n))

	// Writer goroutine
	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				break
			}
		}
	}()

	// Reader goroutine (keep-alive and close detection)
	go func() {
		defer func() {
			b.clientsMu.Lock()
			delete(b.clients, client)
			b.clientsMu.Unlock()
			close(client.send)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
