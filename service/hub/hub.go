package hub

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nezhahq/sysmon/pkg/utils"
)

const (
	EventSnapshot = "snapshot"
	EventAlert    = "alert"
	EventReport   = "report"

	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
	pongTimeout  = 60 * time.Second
)

var ErrClosed = errors.New("hub closed")

type Event struct {
	Type string    `json:"type"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub fans ingest events out to websocket subscribers. A subscriber that
// cannot keep up loses events instead of slowing publishers down.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	closed bool
}

func New(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32768,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.With("component", "hub"),
		subs:   make(map[*subscriber]struct{}),
	}
}

func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish never blocks.
func (h *Hub) Publish(eventType string, data any) {
	b, err := utils.Json.Marshal(Event{Type: eventType, Time: time.Now().UTC(), Data: data})
	if err != nil {
		h.logger.Warn("encode event", "type", eventType, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.send <- b:
		default:
			h.logger.Debug("subscriber too slow, dropping event", "type", eventType)
		}
	}
}

// ServeWS upgrades the request and streams events until the peer goes away
// or the hub is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) error {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	s := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return ErrClosed
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.subs, s)
		h.mu.Unlock()
		conn.Close()
	}()

	go h.readLoop(s)
	h.writeLoop(s)
	return nil
}

// readLoop drains control frames; subscribers never send data.
func (h *Hub) readLoop(s *subscriber) {
	defer s.stop()
	s.conn.SetReadLimit(512)
	s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			return
		case b := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		s.stop()
	}
}
