// Package stream pushes newly collected samples to WebSocket subscribers.
package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"btc-metrics/internal/domain"
	"btc-metrics/internal/util"
)

const writeWait = 5 * time.Second

type Hub struct {
	upgrader websocket.Upgrader
	logger   *util.Logger

	mu          sync.Mutex
	subscribers map[*websocket.Conn]bool
	latest      *domain.MetricSample

	// OnSubscribersChanged, if set, is called with the new count under the hub lock.
	OnSubscribersChanged func(n int)
}

func NewHub(logger *util.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:      logger,
		subscribers: make(map[*websocket.Conn]bool),
	}
}

// Publish records sample as the latest and sends it to every subscriber.
// Subscribers that fail to receive it are disconnected.
func (h *Hub) Publish(sample domain.MetricSample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := sample
	h.latest = &s

	for conn := range h.subscribers {
		if err := writeSample(conn, sample); err != nil {
			h.logger.Debug("dropping stream subscriber", zap.Error(err))
			h.removeLocked(conn)
		}
	}
}

// ServeHTTP upgrades the request, sends the latest sample if one exists and
// keeps the connection registered until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}

	h.mu.Lock()
	if h.latest != nil {
		if err := writeSample(conn, *h.latest); err != nil {
			h.mu.Unlock()
			conn.Close()
			return
		}
	}
	h.subscribers[conn] = true
	h.notifyLocked()
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.removeLocked(conn)
		h.mu.Unlock()
	}()

	// Clients only listen; reading drives close and ping handling.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.subscribers {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		h.removeLocked(conn)
	}
}

func (h *Hub) removeLocked(conn *websocket.Conn) {
	if _, ok := h.subscribers[conn]; !ok {
		return
	}
	delete(h.subscribers, conn)
	conn.Close()
	h.notifyLocked()
}

func (h *Hub) notifyLocked() {
	if h.OnSubscribersChanged != nil {
		h.OnSubscribersChanged(len(h.subscribers))
	}
}

func writeSample(conn *websocket.Conn, sample domain.MetricSample) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(sample)
}
