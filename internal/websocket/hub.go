package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dsyorkd/emr-controller/internal/logger"
	"github.com/dsyorkd/emr-controller/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// Event is one cluster status transition pushed to subscribers.
type Event struct {
	Type      string               `json:"type"`
	ClusterID uint                 `json:"cluster_id"`
	Status    models.ClusterStatus `json:"status"`
	Reason    string               `json:"reason,omitempty"`
	Address   string               `json:"address,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// Hub broadcasts cluster status transitions to connected websocket
// clients. Slow clients are dropped rather than allowed to block the
// lifecycle path.
type Hub struct {
	upgrader websocket.Upgrader
	logger   logger.Interface

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan Event
}

// NewHub creates a new event hub
func NewHub(log logger.Interface) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger:  log.WithField("component", "websocket"),
		clients: make(map[*client]struct{}),
	}
}

// PublishClusterStatus fans the transition out to all subscribers
// without blocking the caller.
func (h *Hub) PublishClusterStatus(cluster *models.Cluster) {
	event := Event{
		Type:      "cluster-status",
		ClusterID: cluster.ID,
		Status:    cluster.MostRecentStatus,
		Reason:    cluster.StateChangeReason,
		Address:   cluster.MasterAddress,
		Timestamp: time.Now().UTC(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- event:
		default:
			// Listener is not keeping up; drop it.
			go h.remove(c)
		}
	}
}

// ServeHTTP upgrades the connection and subscribes it to events
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan Event, sendBufferSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects all subscribers
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.conn.Close()
	}
}

// readPump drains the connection to process control frames and detect
// closure. Inbound data messages are ignored; the stream is one-way.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
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
		h.remove(c)
	}()

	for {
		select {
		case event := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
