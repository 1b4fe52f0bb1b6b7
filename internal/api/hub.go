package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Hub fans published status snapshots out to websocket subscribers. Slow
// subscribers drop messages instead of blocking the publisher.
type Hub struct {
	log      *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	last    []byte
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[chan []byte]struct{}),
	}
}

func (h *Hub) Publish(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		h.log.Warn("encode broadcast failed", "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = b
	for out := range h.clients {
		select {
		case out <- b:
		default:
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) join() chan []byte {
	out := make(chan []byte, 8)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[out] = struct{}{}
	if h.last != nil {
		out <- h.last
	}
	return out
}

func (h *Hub) leave(out chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, out)
}

func (h *Hub) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	out := h.join()
	defer h.leave(out)

	done := make(chan struct{})
	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-done:
				writeErr <- nil
				return
			case b := <-out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Subscribers only listen; reads detect disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	close(done)
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
}
