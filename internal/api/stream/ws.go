// Package stream serves live event channels over WebSockets. Each
// connection attaches a hub subscription for one event and relays its
// messages until the client disconnects.
package stream

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/good-yellow-bee/crowdwatch/internal/hub"
	"github.com/good-yellow-bee/crowdwatch/internal/storage"
)

const (
	// writeWait bounds a single frame write.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for the client's pong.
	pongWait = 60 * time.Second

	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// Handler upgrades HTTP requests to live event streams.
type Handler struct {
	storage  storage.Storage
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a stream handler.
func NewHandler(store storage.Storage, h *hub.Hub) *Handler {
	return &Handler{
		storage: store,
		hub:     h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Auth happens in middleware; cross-origin dashboards are
			// expected.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// greeting is the first frame on every connection.
type greeting struct {
	Type    string `json:"type"`
	EventID string `json:"event_id"`
	Message string `json:"message"`
}

// ServeEvent handles GET /ws/events/{id}. Subscribers receive only
// messages published after they attach; there is no replay.
func (h *Handler) ServeEvent(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "id")

	event, err := h.storage.Events().GetByID(r.Context(), eventID)
	if err != nil {
		log.Printf("ws: get event %s: %v", eventID, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if event == nil {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		log.Printf("ws: upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub := h.hub.Subscribe(eventID)
	defer h.hub.Unsubscribe(sub)

	log.Printf("ws: client %s attached to event %s", r.RemoteAddr, eventID)

	// Reader goroutine: consumes pongs, answers application-level pings,
	// and detects disconnect. Dashboard clients that cannot send protocol
	// pings keep the connection alive with {"action":"ping"} frames.
	done := make(chan struct{})
	pings := make(chan struct{}, 1)
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.SetReadDeadline(time.Now().Add(pongWait))
			var req struct {
				Action string `json:"action"`
			}
			if json.Unmarshal(data, &req) == nil && req.Action == "ping" {
				select {
				case pings <- struct{}{}:
				default:
				}
			}
		}
	}()

	h.writeLoop(conn, sub, eventID, done, pings)

	conn.Close()
	log.Printf("ws: client %s detached from event %s (dropped %d)",
		r.RemoteAddr, eventID, sub.Dropped())
}

func (h *Handler) writeLoop(conn *websocket.Conn, sub *hub.Subscription, eventID string, done <-chan struct{}, pings <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(greeting{
		Type:    "connection_established",
		EventID: eventID,
		Message: "subscribed to event channel",
	}); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := writeMessage(conn, msg); err != nil {
				return
			}
		case <-pings:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"pong"}`)); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, msg hub.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("ws: marshal message: %v", err)
		return nil
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
