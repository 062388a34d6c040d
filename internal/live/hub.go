package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"cloakroom-backend/internal/timeutil"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Notification is pushed to every connected admin dashboard.
type Notification struct {
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans record activity out to websocket clients. Publishing never blocks
// the caller; if the queue is full the notification is dropped.
type Hub struct {
	log        *zap.Logger
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	clientsMux sync.Mutex
	broadcast  chan Notification
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		log: log.Named("live"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Notification, 256),
	}
}

// Publish queues a notification for delivery.
func (h *Hub) Publish(kind string, data any) {
	n := Notification{Type: kind, Data: data, Timestamp: timeutil.Now()}
	select {
	case h.broadcast <- n:
	default:
		h.log.Warn("live notification dropped", zap.String("type", kind))
	}
}

// Run delivers queued notifications until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case n := <-h.broadcast:
			h.send(n)
		}
	}
}

func (h *Hub) send(n Notification) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for client := range h.clients {
		client.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := client.WriteJSON(n); err != nil {
			client.Close()
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients)
}

// ServeWS upgrades the request and keeps the client registered until it
// disconnects. Incoming messages are ignored.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.clientsMux.Lock()
	h.clients[conn] = true
	h.clientsMux.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.clientsMux.Lock()
			delete(h.clients, conn)
			h.clientsMux.Unlock()
			return
		}
	}
}
