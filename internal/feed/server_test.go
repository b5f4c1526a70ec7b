package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/devsync/internal/device"
	"github.com/nerrad567/devsync/internal/infrastructure/config"
	"github.com/nerrad567/devsync/internal/infrastructure/logging"
	"github.com/nerrad567/devsync/internal/inventory"
)

type fakeSource struct {
	mu        sync.Mutex
	devices   []device.Device
	connected bool
}

func (f *fakeSource) Devices() []device.Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]device.Device{}, f.devices...)
}

func (f *fakeSource) Device(id string) (device.Device, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.devices {
		if d.ID == id {
			return d, true
		}
	}
	return device.Device{}, false
}

func (f *fakeSource) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSource) Origin() string { return "origin-1" }

func testConfig() config.FeedConfig {
	return config.FeedConfig{
		Enabled:        true,
		Host:           "127.0.0.1",
		Port:           0,
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}
}

func newTestServer(t *testing.T) (*Server, *fakeSource, *httptest.Server) {
	t.Helper()
	src := &fakeSource{
		devices: []device.Device{
			{ID: "1", Name: "Pump", SerialNumber: "P-1", Active: true},
			{ID: "2", Name: "Valve", SerialNumber: "V-2"},
		},
		connected: true,
	}
	srv, err := New(Deps{Config: testConfig(), Logger: logging.Discard(), Source: src, Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, src, ts
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp
}

// ─── HTTP ────────────────────────────────────────────────────────────

func TestNew_RequiresSource(t *testing.T) {
	if _, err := New(Deps{Config: testConfig()}); err == nil {
		t.Error("New() without source succeeded, want error")
	}
}

func TestHealth(t *testing.T) {
	_, src, ts := newTestServer(t)
	src.connected = false

	var body map[string]any
	resp := getJSON(t, ts.URL+"/health", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" || body["connected"] != false || body["origin"] != "origin-1" {
		t.Errorf("health = %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestHealth_DependencyChecks(t *testing.T) {
	src := &fakeSource{connected: false}
	srv, err := New(Deps{
		Config: testConfig(),
		Logger: logging.Discard(),
		Source: src,
		Checks: map[string]HealthCheck{
			"mqtt":     func(context.Context) error { return errors.New("mqtt: not connected") },
			"influxdb": func(context.Context) error { return nil },
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	resp := getJSON(t, ts.URL+"/health", &body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body.Status != "degraded" {
		t.Errorf("status = %q, want degraded", body.Status)
	}
	if body.Checks["mqtt"] != "mqtt: not connected" || body.Checks["influxdb"] != "ok" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	_, _, ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "abc")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "abc" {
		t.Errorf("X-Request-ID = %q, want abc", got)
	}
}

func TestListDevices(t *testing.T) {
	_, _, ts := newTestServer(t)

	var body struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	getJSON(t, ts.URL+"/api/devices", &body)

	if body.Count != 2 || len(body.Devices) != 2 {
		t.Fatalf("count = %d, devices = %d, want 2", body.Count, len(body.Devices))
	}
	if body.Devices[0].Name != "Pump" || body.Devices[1].Name != "Valve" {
		t.Errorf("devices = %+v, want Pump then Valve", body.Devices)
	}
}

func TestGetDevice(t *testing.T) {
	_, _, ts := newTestServer(t)

	tests := []struct {
		id         string
		wantStatus int
	}{
		{"2", http.StatusOK},
		{"404", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var body map[string]any
			resp := getJSON(t, ts.URL+"/api/devices/"+tt.id, &body)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK && body["serialNumber"] != "V-2" {
				t.Errorf("device = %v", body)
			}
			if tt.wantStatus == http.StatusNotFound && body["code"] != ErrCodeNotFound {
				t.Errorf("error body = %v", body)
			}
		})
	}
}

func TestReadOnly(t *testing.T) {
	_, _, ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/devices", "application/json", strings.NewReader(`{"name":"x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", resp.StatusCode)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _, _ := newTestServer(t)

	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

// ─── WebSocket ───────────────────────────────────────────────────────

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg outbound) {
	t.Helper()
	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msg.Type, err)
	}
}

func read(t *testing.T, ws *websocket.Conn) WSMessage {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg WSMessage
	if err := ws.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func subscribe(t *testing.T, ws *websocket.Conn, channels ...string) {
	t.Helper()
	send(t, ws, outbound{Type: WSTypeSubscribe, ID: "sub", Payload: WSSubscribePayload{Channels: channels}})
	if got := read(t, ws); got.Type != WSTypeResponse || got.ID != "sub" {
		t.Fatalf("subscribe response = %+v", got)
	}
}

func TestWebSocket_StreamsSubscribedNotifications(t *testing.T) {
	srv, _, ts := newTestServer(t)
	ws := dial(t, ts)
	subscribe(t, ws, ChannelRemote)

	srv.Notify(inventory.Notification{Kind: inventory.KindSuccess, Op: inventory.OpCreate, Message: "mine"})
	srv.Notify(inventory.Notification{
		Kind:       inventory.KindRemote,
		Op:         inventory.OpDelete,
		DeviceID:   "2",
		DeviceName: "Valve",
		Message:    "Valve was deleted by another user",
	})

	msg := read(t, ws)
	if msg.Type != WSTypeEvent || msg.EventType != ChannelRemote {
		t.Fatalf("message = %+v, want remote event", msg)
	}

	var payload struct {
		Notification inventory.Notification `json:"notification"`
		Devices      []device.Device        `json:"devices"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.Notification.DeviceID != "2" || payload.Notification.Kind != inventory.KindRemote {
		t.Errorf("notification = %+v", payload.Notification)
	}
	if len(payload.Devices) != 2 {
		t.Errorf("snapshot devices = %d, want 2", len(payload.Devices))
	}
}

func TestWebSocket_Unsubscribe(t *testing.T) {
	srv, _, ts := newTestServer(t)
	ws := dial(t, ts)
	subscribe(t, ws, ChannelFailure)

	send(t, ws, outbound{Type: WSTypeUnsubscribe, ID: "u", Payload: WSSubscribePayload{Channels: []string{ChannelFailure}}})
	if got := read(t, ws); got.ID != "u" {
		t.Fatalf("unsubscribe response = %+v", got)
	}

	srv.Notify(inventory.Notification{Kind: inventory.KindFailure, Op: inventory.OpUpdate})
	send(t, ws, outbound{Type: WSTypePing, ID: "p"})

	if got := read(t, ws); got.Type != WSTypePong {
		t.Errorf("next message = %+v, want pong (no event after unsubscribe)", got)
	}
}

func TestWebSocket_Snapshot(t *testing.T) {
	_, _, ts := newTestServer(t)
	ws := dial(t, ts)

	send(t, ws, outbound{Type: WSTypeSnapshot, ID: "s"})
	msg := read(t, ws)

	var payload struct {
		Devices []device.Device `json:"devices"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if msg.ID != "s" || len(payload.Devices) != 2 {
		t.Errorf("snapshot = %+v", msg)
	}
}

func TestWebSocket_Errors(t *testing.T) {
	_, _, ts := newTestServer(t)
	ws := dial(t, ts)

	tests := []struct {
		name string
		msg  outbound
	}{
		{"unknown type", outbound{Type: "create", ID: "1"}},
		{"unknown channel", outbound{Type: WSTypeSubscribe, ID: "2", Payload: WSSubscribePayload{Channels: []string{"device.state_changed"}}}},
		{"missing payload", outbound{Type: WSTypeSubscribe, ID: "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			send(t, ws, tt.msg)
			if got := read(t, ws); got.Type != WSTypeError || got.ID != tt.msg.ID {
				t.Errorf("response = %+v, want error", got)
			}
		})
	}
}

func TestWebSocket_InvalidJSON(t *testing.T) {
	_, _, ts := newTestServer(t)
	ws := dial(t, ts)

	if err := ws.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := read(t, ws); got.Type != WSTypeError {
		t.Errorf("response = %+v, want error", got)
	}
}

func TestChannelFor(t *testing.T) {
	tests := []struct {
		kind inventory.Kind
		want string
	}{
		{inventory.KindSuccess, ChannelSuccess},
		{inventory.KindFailure, ChannelFailure},
		{inventory.KindRemote, ChannelRemote},
	}
	for _, tt := range tests {
		if got := ChannelFor(tt.kind); got != tt.want {
			t.Errorf("ChannelFor(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

// ─── Lifecycle ───────────────────────────────────────────────────────

func TestStartClose(t *testing.T) {
	src := &fakeSource{connected: true}
	srv, err := New(Deps{Config: testConfig(), Logger: logging.Discard(), Source: src})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := srv.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded, want error")
	}

	addr := srv.Addr()
	if addr == "" {
		t.Fatal("Addr() empty after Start")
	}
	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	resp.Body.Close()

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := srv.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if srv.Addr() != "" {
		t.Error("Addr() not empty after Close")
	}
}

func TestStart_AddressInUse(t *testing.T) {
	first, _, _ := newTestServer(t)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer first.Close()

	cfg := testConfig()
	_, port, _ := net.SplitHostPort(first.Addr())
	p, err := strconv.Atoi(port)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}
	cfg.Port = p

	second, err := New(Deps{Config: cfg, Logger: logging.Discard(), Source: &fakeSource{}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Fatal("Start() on a bound port succeeded, want error")
	}
}

func TestClose_DisconnectsClients(t *testing.T) {
	srv, _, _ := newTestServer(t)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	ws, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := srv.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := ws.ReadMessage(); err == nil {
		t.Error("ReadMessage() after Close succeeded, want error")
	} else if ne := net.Error(nil); errors.As(err, &ne) && ne.Timeout() {
		t.Error("connection was not closed by Close")
	}
}
