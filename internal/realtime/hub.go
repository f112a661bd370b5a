package realtime

import (
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/charlesng35/wavtrack/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	sendBuffer = 32
)

// Message is the JSON frame delivered to subscribers.
type Message struct {
	Stream string         `json:"stream"`
	Event  string         `json:"event"`
	Data   any            `json:"data,omitempty"`
	Meta   map[string]any `json:"meta,omitempty"`
}

type controlMessage struct {
	Action  string   `json:"action"`
	Streams []string `json:"streams"`
}

// Hub fans sync events out to websocket clients. Subscriptions are indexed by
// stream and then by user.
type Hub struct {
	mu       sync.RWMutex
	streams  map[string]map[string]map[*client]struct{}
	allowed  map[string]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a hub accepting subscriptions to the named streams, or to
// any stream when none are named.
func NewHub(streams ...string) *Hub {
	allowed := make(map[string]struct{}, len(streams))
	for _, stream := range uniqueStreams(streams) {
		allowed[stream] = struct{}{}
	}
	return &Hub{
		streams: make(map[string]map[string]map[*client]struct{}),
		allowed: allowed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrLoopback,
		},
		log: logger.WithModule("realtime"),
	}
}

// Allowed reports whether clients may subscribe to stream.
func (h *Hub) Allowed(stream string) bool {
	if len(h.allowed) == 0 {
		return true
	}
	_, ok := h.allowed[normalizeStream(stream)]
	return ok
}

// Serve upgrades the request and blocks until the client disconnects.
func (h *Hub) Serve(userID string, streams []string, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
		return
	}

	c := &client{
		hub:     h,
		socket:  socket,
		userID:  userID,
		streams: make(map[string]struct{}),
		send:    make(chan Message, sendBuffer),
	}
	h.subscribe(c, streams)

	go c.writeLoop()
	c.readLoop()
}

// Subscribers returns how many connections listen on stream.
func (h *Hub) Subscribers(stream string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	total := 0
	for _, clients := range h.streams[normalizeStream(stream)] {
		total += len(clients)
	}
	return total
}

// BroadcastStream delivers message to every subscriber of stream.
func (h *Hub) BroadcastStream(stream string, message Message) {
	stream = normalizeStream(stream)

	h.mu.RLock()
	defer h.mu.RUnlock()

	message.Stream = stream
	for _, clients := range h.streams[stream] {
		for c := range clients {
			c.enqueue(message)
		}
	}
}

// BroadcastToUser delivers message to userID's subscribers of stream.
func (h *Hub) BroadcastToUser(stream, userID string, message Message) {
	stream = normalizeStream(stream)
	if userID == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	message.Stream = stream
	for c := range h.streams[stream][userID] {
		c.enqueue(message)
	}
}

func (h *Hub) subscribe(c *client, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		if !h.Allowed(stream) {
			h.log.Debug("ignoring unknown stream", zap.String("stream", stream), zap.String("user_id", c.userID))
			continue
		}
		if _, ok := c.streams[stream]; ok {
			continue
		}
		byUser := h.streams[stream]
		if byUser == nil {
			byUser = make(map[string]map[*client]struct{})
			h.streams[stream] = byUser
		}
		if byUser[c.userID] == nil {
			byUser[c.userID] = make(map[*client]struct{})
		}
		byUser[c.userID][c] = struct{}{}
		c.streams[stream] = struct{}{}
	}
}

func (h *Hub) unsubscribe(c *client, streams []string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, stream := range uniqueStreams(streams) {
		h.removeLocked(c, stream)
	}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for stream := range c.streams {
		h.removeLocked(c, stream)
	}
}

func (h *Hub) removeLocked(c *client, stream string) {
	delete(c.streams, stream)
	byUser, ok := h.streams[stream]
	if !ok {
		return
	}
	delete(byUser[c.userID], c)
	if len(byUser[c.userID]) == 0 {
		delete(byUser, c.userID)
	}
	if len(byUser) == 0 {
		delete(h.streams, stream)
	}
}

type client struct {
	hub     *Hub
	socket  *websocket.Conn
	userID  string
	streams map[string]struct{}
	send    chan Message
	once    sync.Once

	mu     sync.Mutex
	closed bool
}

// enqueue never blocks the broadcaster. A client that cannot keep up is dropped.
func (c *client) enqueue(message Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- message:
	default:
		c.hub.log.Warn("dropping slow websocket client", zap.String("user_id", c.userID))
		go c.close()
	}
}

func (c *client) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug("websocket closed", zap.String("user_id", c.userID), zap.Error(err))
			}
			return
		}

		var ctrl controlMessage
		if err := json.Unmarshal(payload, &ctrl); err != nil {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(ctrl.Action)) {
		case "subscribe":
			c.hub.subscribe(c, ctrl.Streams)
		case "unsubscribe":
			c.hub.unsubscribe(c, ctrl.Streams)
		case "ping":
			c.enqueue(Message{Event: "pong"})
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	})
}

func sameOriginOrLoopback(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := hostOnly(parsed.Host)
	if originHost == hostOnly(r.Host) {
		return true
	}
	if ip := net.ParseIP(originHost); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(originHost, "localhost")
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return hostport
}

func normalizeStream(stream string) string {
	return strings.ToLower(strings.TrimSpace(stream))
}

func uniqueStreams(streams []string) []string {
	seen := make(map[string]struct{}, len(streams))
	out := make([]string, 0, len(streams))
	for _, stream := range streams {
		stream = normalizeStream(stream)
		if stream == "" {
			continue
		}
		if _, ok := seen[stream]; ok {
			continue
		}
		seen[stream] = struct{}{}
		out = append(out, stream)
	}
	return out
}
