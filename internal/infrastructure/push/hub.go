package push

import (
	"encoding/json"
	"sync"

	"github.com/mangaexporter/backend/internal/core/ports"
	"github.com/mangaexporter/backend/internal/domain"
	"github.com/mangaexporter/backend/internal/infrastructure/logger"
)

const (
	textMessage = 1 // websocket.TextMessage
	sendBuffer  = 16
)

// Conn is the part of a websocket connection the hub needs.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type client struct {
	conn Conn
	send chan []byte
}

// Hub fans progress snapshots out to every connected browser window.
type Hub struct {
	logger  *logger.Logger
	onEmpty func()

	mu      sync.Mutex
	clients map[*client]struct{}
	latest  []byte
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		logger:  log,
		clients: make(map[*client]struct{}),
	}
}

// OnEmpty registers fn to run every time the last window disconnects.
func (h *Hub) OnEmpty(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEmpty = fn
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish never blocks. A client whose buffer is full misses the snapshot;
// the next one carries the full state anyway.
func (h *Hub) Publish(record domain.ProgressRecord) {
	payload, err := json.Marshal(record)
	if err != nil {
		h.logger.Errorw("push_encode_failed", "session_id", record.ID, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = payload
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.logger.Debugw("push_client_slow", "session_id", record.ID)
		}
	}
}

// Serve owns conn until the peer goes away. The latest snapshot, if any, is
// sent right after registration.
func (h *Hub) Serve(conn Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.latest != nil {
		c.send <- h.latest
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Infow("push_client_connected", "clients", count)

	done := make(chan struct{})
	go h.writeLoop(c, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	delete(h.clients, c)
	close(c.send)
	count = len(h.clients)
	onEmpty := h.onEmpty
	h.mu.Unlock()

	<-done
	conn.Close()
	h.logger.Infow("push_client_disconnected", "clients", count)

	if count == 0 && onEmpty != nil {
		onEmpty()
	}
}

func (h *Hub) writeLoop(c *client, done chan<- struct{}) {
	defer close(done)
	for payload := range c.send {
		if err := c.conn.WriteMessage(textMessage, payload); err != nil {
			h.logger.Debugw("push_write_failed", "error", err)
			c.conn.Close()
			for range c.send {
			}
			return
		}
	}
}

var _ ports.ProgressPublisher = (*Hub)(nil)
