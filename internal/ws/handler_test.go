package ws_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jobpulse/notify/internal/domain"
	"github.com/jobpulse/notify/internal/registry"
	"github.com/jobpulse/notify/internal/ws"
)

func newTestServer(t *testing.T, reg registry.Registry) *httptest.Server {
	t.Helper()
	h := ws.NewHandler(reg, ws.Options{
		WriteTimeout: time.Second,
		PingInterval: 10 * time.Second,
		SendBuffer:   8,
	}, zap.NewNop(), nil)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func register(t *testing.T, conn *websocket.Conn, userID string) {
	t.Helper()
	if err := conn.WriteJSON(ws.Envelope{Event: ws.EventRegister, UserID: userID}); err != nil {
		t.Fatalf("send register: %v", err)
	}
}

// waitForRegistration polls until the registry reflects the announcement,
// since registration is processed asynchronously by the read pump.
func waitForRegistration(t *testing.T, reg registry.Registry, userID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(reg.Lookup(userID)) == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("registry never reached %d conns for %s", want, userID)
}

func TestHandler_RegisterThenReceivePush(t *testing.T) {
	reg := registry.NewMemory()
	srv := newTestServer(t, reg)
	conn := dial(t, srv)

	register(t, conn, "u1")
	waitForRegistration(t, reg, "u1", 1)

	n := &domain.Notification{
		ID:              "n1",
		RecipientUserID: "u1",
		Title:           "hello",
		Message:         "world",
		Type:            domain.TypeTest,
		CreatedAt:       time.Now().UTC(),
	}
	handles := reg.Lookup("u1")
	if err := handles[0].Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env ws.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read push: %v", err)
	}
	if env.Event != ws.EventNotification {
		t.Fatalf("expected notification event, got %q", env.Event)
	}
	if env.Data == nil || env.Data.ID != "n1" {
		t.Fatalf("unexpected payload: %+v", env.Data)
	}
}

// A connected session that never registers must not appear in the registry.
func TestHandler_UnregisteredSessionReceivesNothing(t *testing.T) {
	reg := registry.NewMemory()
	srv := newTestServer(t, reg)
	_ = dial(t, srv)

	time.Sleep(50 * time.Millisecond)
	if users, conns := reg.Stats(); users != 0 || conns != 0 {
		t.Fatalf("expected empty registry, got users=%d conns=%d", users, conns)
	}
}

func TestHandler_DisconnectDeregisters(t *testing.T) {
	reg := registry.NewMemory()
	srv := newTestServer(t, reg)
	conn := dial(t, srv)

	register(t, conn, "u1")
	waitForRegistration(t, reg, "u1", 1)

	conn.Close()
	waitForRegistration(t, reg, "u1", 0)
}

func TestHandler_MalformedFrameIgnored(t *testing.T) {
	reg := registry.NewMemory()
	srv := newTestServer(t, reg)
	conn := dial(t, srv)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}

	// Session survives the malformed frame and can still register.
	register(t, conn, "u1")
	waitForRegistration(t, reg, "u1", 1)
}

func TestHandler_NonWebsocketRequestRejected(t *testing.T) {
	reg := registry.NewMemory()
	srv := newTestServer(t, reg)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for plain GET, got %d", resp.StatusCode)
	}
}

func TestEnvelope_EncodeDecode(t *testing.T) {
	n := &domain.Notification{
		ID:              "n1",
		RecipientUserID: "u1",
		Title:           "t",
		Message:         "m",
		Type:            domain.TypeJob,
		CreatedAt:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	raw, err := ws.EncodeNotification(n)
	if err != nil {
		t.Fatal(err)
	}
	env, err := ws.DecodeEnvelope(raw)
	if err != nil {
		t.Fatal(err)
	}
	if env.Event != ws.EventNotification || env.Data.ID != "n1" || env.Data.Type != domain.TypeJob {
		t.Fatalf("round trip mismatch: %+v", env)
	}
}
