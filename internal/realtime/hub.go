package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	HandshakeTimeout: 3 * time.Second,
}

var (
	writeWait    = 10 * time.Second
	pongWait     = 30 * time.Second
	pingInterval = pongWait * 9 / 10
)

const sendBuffer = 16

// message types pushed to clients
const (
	TypeNotification = "NOTIFICATION"
	TypeCacheCleared = "CACHE_CLEARED"
)

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub keeps every live websocket connection, indexed by user
type Hub struct {
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	byUser  map[string]map[*client]struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[*client]struct{}),
		byUser:  make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if c.userID == "" {
		return
	}
	set, ok := h.byUser[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.byUser[c.userID] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	if set, ok := h.byUser[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.byUser, c.userID)
		}
	}
	c.close()
}

// Count number of live connections
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(message interface{}) ([]byte, error) {
	if b, ok := message.([]byte); ok {
		return b, nil
	}
	return json.Marshal(message)
}

// enqueue drops the message for clients that can not keep up
func (h *Hub) enqueue(targets []*client, data []byte) int {
	sent := 0
	for _, c := range targets {
		select {
		case c.send <- data:
			sent++
		default:
			h.logger.Warn("websocket send buffer full, message dropped", zap.String("user.id", c.userID))
		}
	}
	return sent
}

// Broadcast message to every connection, returns the number of connections reached
func (h *Hub) Broadcast(message interface{}) int {
	data, err := encode(message)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		targets = append(targets, c)
	}
	sent := h.enqueue(targets, data)
	h.mu.RUnlock()
	return sent
}

// SendToUser message to every connection of userID
func (h *Hub) SendToUser(userID string, message interface{}) int {
	data, err := encode(message)
	if err != nil {
		h.logger.Error("failed to encode websocket message", zap.Error(err))
		return 0
	}

	h.mu.RLock()
	set := h.byUser[userID]
	targets := make([]*client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	sent := h.enqueue(targets, data)
	h.mu.RUnlock()
	return sent
}

// Close drop all connections
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		h.unregister(c)
	}
}

// Handler upgrade the request, identify resolves the user of the connection and may return ""
func (h *Hub) Handler(identify func(echo.Context) string) echo.HandlerFunc {
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return c.String(http.StatusBadRequest, err.Error())
		}

		cl := &client{
			userID: identify(c),
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
		}
		h.register(cl)
		h.logger.Debug("websocket connected", zap.String("user.id", cl.userID))

		go h.writeRoutine(cl)
		go h.readRoutine(cl)
		return nil
	}
}

// writeRoutine owns every write on the connection, pings included
func (h *Hub) writeRoutine(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

// readRoutine discards client frames, a missing pong ends the connection
func (h *Hub) readRoutine(c *client) {
	defer func() {
		h.unregister(c)
		h.logger.Debug("websocket disconnected", zap.String("user.id", c.userID))
	}()
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
