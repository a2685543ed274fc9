package app

import (
	"encoding/json"
	"io/fs"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/geoclue_hybris/internal/gps"
	"github.com/relabs-tech/geoclue_hybris/internal/logging"
)

func newTestBridge(t *testing.T) (*webBridge, *httptest.Server) {
	t.Helper()
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		t.Fatalf("static: %v", err)
	}
	b := newWebBridge(logging.Noop())
	srv := httptest.NewServer(b.routes(static))
	t.Cleanup(srv.Close)
	return b, srv
}

func TestWebAPIBeforeAndAfterData(t *testing.T) {
	b, srv := newTestBridge(t)

	for _, path := range []string{"/api/status", "/api/position", "/api/velocity", "/api/satellites"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("GET %s = %d, want 503", path, resp.StatusCode)
		}
	}

	b.PositionChanged(gps.Position{
		Fields:    gps.PositionLatitude | gps.PositionLongitude,
		Timestamp: 1000,
		Latitude:  10,
		Longitude: 20,
		Altitude:  math.NaN(),
	})

	resp, err := http.Get(srv.URL + "/api/position")
	if err != nil {
		t.Fatalf("GET position: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["latitude"] != float64(10) || body["altitude"] != nil {
		t.Fatalf("body = %v", body)
	}
}

func TestWebIndexServed(t *testing.T) {
	_, srv := newTestBridge(t)
	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestWebSocketStreamsSignals(t *testing.T) {
	b, srv := newTestBridge(t)
	b.StatusChanged(gps.StatusAcquiring)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var f struct {
		Signal string          `json:"signal"`
		Data   json.RawMessage `json:"data"`
	}
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if f.Signal != "StatusChanged" || string(f.Data) != `{"status":2,"name":"acquiring"}` {
		t.Fatalf("snapshot frame = %s %s", f.Signal, f.Data)
	}

	// the client is registered once the snapshot has been queued
	deadline := time.Now().Add(time.Second)
	for {
		b.clientsMu.Lock()
		n := len(b.clients)
		b.clientsMu.Unlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(time.Millisecond)
	}

	b.SatelliteChanged(gps.Satellites{Timestamp: 5, Used: 1, Visible: 1, UsedPRN: []int{7}, Info: []gps.SatelliteInfo{{PRN: 7}}})
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	if f.Signal != "SatelliteChanged" {
		t.Fatalf("broadcast frame = %s", f.Signal)
	}
}
