// Package notify pushes domain events to connected clients over WebSocket.
// Delivery is best effort: slow or broken connections are dropped, never
// waited on, so ledger writes cannot stall on notification fan-out.
package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/gota-app/expense-ledger/internal/application/port"
	"github.com/gota-app/expense-ledger/internal/domain/event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// Hub tracks connected clients per user and fans group events out to every
// connected member. Implements port.Notifier.
type Hub struct {
	membership port.MembershipProvider
	logger     *zap.Logger
	upgrader   websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan *event.Event
}

// NewHub creates a new Hub
func NewHub(membership port.MembershipProvider, logger *zap.Logger) *Hub {
	return &Hub{
		membership: membership,
		logger:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Auth and origin policy live in the gateway in front of this
			// service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[string]map[*client]struct{}),
	}
}

// HandleConnection upgrades the request and serves the connection until the
// peer disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Failed to upgrade connection",
			zap.String("user_id", userID), zap.Error(err))
		return
	}

	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan *event.Event, sendBufferSize),
	}
	h.register(c)
	h.logger.Info("Client connected", zap.String("user_id", userID))

	go c.writePump()
	c.readPump()

	h.unregister(c)
	h.logger.Info("Client disconnected", zap.String("user_id", userID))
}

// NotifyUser implements port.Notifier. Events to a user with no open
// connections are dropped silently; a full send buffer drops the event and
// logs.
func (h *Hub) NotifyUser(ctx context.Context, userID string, evt *event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[userID] {
		select {
		case c.send <- evt:
		default:
			h.logger.Warn("Dropping event, client send buffer full",
				zap.String("user_id", userID), zap.String("event_id", evt.ID))
		}
	}
}

// NotifyGroup implements port.Notifier. Membership resolution and fan-out run
// in a goroutine so callers never block on it.
func (h *Hub) NotifyGroup(ctx context.Context, groupID string, evt *event.Event) {
	go func() {
		members, err := h.membership.ActiveMembers(context.Background(), groupID)
		if err != nil {
			h.logger.Error("Failed to resolve group for notification",
				zap.String("group_id", groupID), zap.Error(err))
			return
		}
		for _, m := range members {
			h.NotifyUser(context.Background(), m.UserID, evt)
		}
	}()
}

// ConnectedUsers returns how many distinct users have open connections.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[c.userID]; ok {
		if _, ok := conns[c]; ok {
			delete(conns, c)
			close(c.send)
			if len(conns) == 0 {
				delete(h.clients, c.userID)
			}
		}
	}
	c.conn.Close()
}

// readPump drains inbound frames to process pongs and detect disconnects.
// Clients never send application data on this socket.
func (c *client) readPump() {
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

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case evt, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(evt); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Verify interface compliance
var _ port.Notifier = (*Hub)(nil)
