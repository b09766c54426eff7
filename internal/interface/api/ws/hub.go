package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"devtransfer/internal/domain/transfer"
)

const (
	bufferSize   = 256
	historySize  = 50
	writeTimeout = 10 * time.Second
)

// Hub streams ledger events to connected admin websocket clients.
// New clients first receive the most recent events.
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	in       chan transfer.Event

	mu      sync.RWMutex
	clients map[*websocket.Conn]struct{}
	history []transfer.Event
	next    int
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			// admin auth runs before the upgrade
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		in:      make(chan transfer.Event, bufferSize),
		clients: make(map[*websocket.Conn]struct{}),
		history: make([]transfer.Event, 0, historySize),
	}
}

// Emit never blocks; a full buffer drops the event.
func (h *Hub) Emit(e transfer.Event) {
	select {
	case h.in <- e:
	default:
		h.log.Warn("ws buffer full, event dropped", zap.String("kind", string(e.Kind)))
	}
}

func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case e := <-h.in:
			h.remember(e)
			h.broadcast(e)
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				_ = c.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(time.Second))
				_ = c.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	// history is written under the write lock so broadcast cannot interleave
	h.mu.Lock()
	for _, e := range h.recent() {
		if err := h.write(conn, e); err != nil {
			h.mu.Unlock()
			_ = conn.Close()
			return
		}
	}
	h.clients[conn] = struct{}{}
	h.mu.Unlock()

	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.drop(conn)
				return
			}
		}
	}()
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(e transfer.Event) {
	var failed []*websocket.Conn

	h.mu.RLock()
	for c := range h.clients {
		if err := h.write(c, e); err != nil {
			failed = append(failed, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range failed {
		h.drop(c)
	}
}

func (h *Hub) write(c *websocket.Conn, e transfer.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_ = c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.WriteMessage(websocket.TextMessage, data)
}

func (h *Hub) drop(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	_ = c.Close()
}

func (h *Hub) remember(e transfer.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.history) < historySize {
		h.history = append(h.history, e)
		return
	}
	h.history[h.next] = e
	h.next = (h.next + 1) % historySize
}

// recent returns the buffered events oldest first. Callers hold h.mu.
func (h *Hub) recent() []transfer.Event {
	out := make([]transfer.Event, 0, len(h.history))
	out = append(out, h.history[h.next:]...)
	return append(out, h.history[:h.next]...)
}
