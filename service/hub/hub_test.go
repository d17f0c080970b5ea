package hub

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nezhahq/sysmon/pkg/utils"
)

func newServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublish(t *testing.T) {
	h, srv := newServer(t)
	conn := dial(t, srv)
	waitFor(t, func() bool { return h.Subscribers() == 1 })

	h.Publish(EventAlert, map[string]string{"client_id": "host-a"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}
	var ev struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	if err := utils.Json.Unmarshal(b, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Type != EventAlert || ev.Data["client_id"] != "host-a" {
		t.Errorf("unexpected event %s", b)
	}
}

func TestPublishWithoutSubscribers(t *testing.T) {
	h := New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Publish(EventSnapshot, struct{}{})
	if h.Subscribers() != 0 {
		t.Error("expected no subscribers")
	}
}

func TestUnsubscribeOnDisconnect(t *testing.T) {
	h, srv := newServer(t)
	conn := dial(t, srv)
	waitFor(t, func() bool { return h.Subscribers() == 1 })

	conn.Close()
	waitFor(t, func() bool { return h.Subscribers() == 0 })
}

func TestClose(t *testing.T) {
	h, srv := newServer(t)
	conn := dial(t, srv)
	waitFor(t, func() bool { return h.Subscribers() == 1 })

	h.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	if !errors.As(err, &closeErr) || closeErr.Code != websocket.CloseNormalClosure {
		t.Errorf("expected a normal close, got %v", err)
	}
	waitFor(t, func() bool { return h.Subscribers() == 0 })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if err := h.ServeWS(rec, req); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
