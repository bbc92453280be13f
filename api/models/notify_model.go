package models

import (
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"github.com/moyoez/gcomserver-go/types"
)

// NotifyWriteTimeout bounds one websocket write; slower listeners are dropped.
var NotifyWriteTimeout = 5 * time.Second

var (
	notifyHubMu sync.RWMutex
	notifyHub   *Hub
)

// Hub fans notifications out to websocket listeners. Implements types.NotifyHub.
type Hub struct {
	mu      sync.RWMutex
	writers map[*websocket.Conn]*sync.Mutex
}

func NewHub() *Hub {
	return &Hub{writers: make(map[*websocket.Conn]*sync.Mutex)}
}

func (h *Hub) Register(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writers[conn] = &sync.Mutex{}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.writers, conn)
}

// Len returns the number of connected listeners.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.writers)
}

// SendTo writes one notification to a single registered listener.
func (h *Hub) SendTo(conn *websocket.Conn, notification *types.Notification) error {
	payload, err := sonic.Marshal(notification)
	if err != nil {
		return err
	}
	h.mu.RLock()
	mu, ok := h.writers[conn]
	h.mu.RUnlock()
	if !ok {
		return websocket.ErrCloseSent
	}
	return write(conn, mu, payload)
}

// Broadcast sends the notification to every listener. Sessions broadcast
// concurrently, so writes to one connection are serialized; a listener whose
// write fails is unregistered and its read loop ends on the closed socket.
func (h *Hub) Broadcast(notification *types.Notification) {
	if notification == nil {
		return
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		return
	}
	h.mu.RLock()
	targets := make(map[*websocket.Conn]*sync.Mutex, len(h.writers))
	for c, mu := range h.writers {
		targets[c] = mu
	}
	h.mu.RUnlock()

	for conn, mu := range targets {
		if err := write(conn, mu, payload); err != nil {
			h.Unregister(conn)
			_ = conn.Close()
		}
	}
}

func write(conn *websocket.Conn, mu *sync.Mutex, payload []byte) error {
	mu.Lock()
	defer mu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(NotifyWriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// SetNotifyHub sets the hub used for websocket broadcast.
func SetNotifyHub(h *Hub) {
	notifyHubMu.Lock()
	defer notifyHubMu.Unlock()
	notifyHub = h
}

// GetNotifyHub returns the hub, or nil when the status API is disabled.
func GetNotifyHub() *Hub {
	notifyHubMu.RLock()
	defer notifyHubMu.RUnlock()
	return notifyHub
}
