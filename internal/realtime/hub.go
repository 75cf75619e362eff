// Package realtime streams newly proposed revisions to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"treelof-api/internal/logger"
	"treelof-api/internal/metrics"
	"treelof-api/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientBuffer   = 16
	broadcastQueue = 64
)

// Event is the message sent to subscribers for every stored batch.
type Event struct {
	Type      string                   `json:"type"`
	Revisions []*models.RevisionDetail `json:"revisions"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans out revision events to every connected client. A client whose
// buffer is full is disconnected rather than allowed to stall the others.
type Hub struct {
	upgrader  websocket.Upgrader
	clients   map[*client]bool
	clientsMu sync.Mutex
	broadcast chan []byte
	log       *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// origin trust is decided before the upgrade
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*client]bool),
		broadcast: make(chan []byte, broadcastQueue),
		log:       log.With("component", "revision_feed"),
	}
}

// Run delivers queued events until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.broadcast:
			h.clientsMu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					h.log.Warn("dropping slow feed subscriber", "remote", c.conn.RemoteAddr().String())
					h.removeLocked(c)
				}
			}
			h.clientsMu.Unlock()
		}
	}
}

// Publish queues revs for delivery. It never blocks the caller.
func (h *Hub) Publish(revs []*models.Revision) {
	if len(revs) == 0 {
		return
	}
	event := Event{Type: "revisions.proposed", Revisions: make([]*models.RevisionDetail, 0, len(revs))}
	for _, rev := range revs {
		event.Revisions = append(event.Revisions, &models.RevisionDetail{Revision: rev})
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error("failed to encode feed event", "error", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.log.Warn("feed queue full, event dropped", "count", len(revs))
	}
}

// ServeWS upgrades the request and registers the connection. It returns when
// the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}
	h.clientsMu.Lock()
	h.clients[c] = true
	h.clientsMu.Unlock()
	metrics.FeedSubscribers.Inc()

	go h.writePump(c)
	h.readPump(c)
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.clientsMu.Lock()
	h.removeLocked(c)
	h.clientsMu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
	metrics.FeedSubscribers.Dec()
}

func (h *Hub) closeAll() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for c := range h.clients {
		h.removeLocked(c)
	}
}
