// Package live pushes newly persisted donations to websocket clients.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sakif/donation-backend/internal/model"
)

const (
	broadcastBuffer = 64
	writeTimeout    = time.Second
	pingInterval    = 30 * time.Second
)

// Message is the JSON frame sent to every client.
type Message struct {
	Type      string           `json:"type"`
	Donation  model.PublicView `json:"donation"`
	Timestamp int64            `json:"timestamp"`
}

// Hub owns the set of connected clients. Only the Run goroutine touches the
// client map or writes to a connection.
type Hub struct {
	upgrader   websocket.Upgrader
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	quit       chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
	count      atomic.Int64
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			// The feed only carries public views.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, broadcastBuffer),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and broadcasts until Close is called.
func (h *Hub) Run() {
	defer close(h.done)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case conn := <-h.register:
			h.clients[conn] = true
			h.count.Store(int64(len(h.clients)))
			h.logger.Debug("live client connected", slog.Int("clients", len(h.clients)))

		case conn := <-h.unregister:
			h.drop(conn)

		case msg := <-h.broadcast:
			for conn := range h.clients {
				if err := h.write(conn, websocket.TextMessage, msg); err != nil {
					h.logger.Debug("live client write failed", slog.String("error", err.Error()))
					h.drop(conn)
				}
			}

		case <-ticker.C:
			for conn := range h.clients {
				if err := h.write(conn, websocket.PingMessage, nil); err != nil {
					h.drop(conn)
				}
			}

		case <-h.quit:
			for conn := range h.clients {
				conn.Close()
				delete(h.clients, conn)
			}
			h.count.Store(0)
			return
		}
	}
}

func (h *Hub) write(conn *websocket.Conn, messageType int, data []byte) error {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(messageType, data)
}

func (h *Hub) drop(conn *websocket.Conn) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	conn.Close()
	h.count.Store(int64(len(h.clients)))
	h.logger.Debug("live client disconnected", slog.Int("clients", len(h.clients)))
}

// Publish queues view for every client. It never blocks: when the buffer
// is full the update is dropped.
func (h *Hub) Publish(view model.PublicView) {
	data, err := json.Marshal(Message{
		Type:      "new_donation",
		Donation:  view,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.logger.Error("failed to encode live update", slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("live update dropped, broadcast buffer full",
			slog.String("package", view.Package),
		)
	}
}

// ServeWS upgrades the request and keeps the connection registered until
// the client goes away. Incoming frames are read and discarded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	select {
	case h.register <- conn:
	case <-h.quit:
		conn.Close()
		return
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live client read error", slog.String("error", err.Error()))
			}
			break
		}
	}

	select {
	case h.unregister <- conn:
	case <-h.quit:
	}
}

// ClientCount is the number of registered clients.
func (h *Hub) ClientCount() int {
	return int(h.count.Load())
}

// Close disconnects every client and waits for Run to return. Run must
// have been started. Safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.quit) })
	<-h.done
}
