package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/speech-translator/internal/capture"
)

// Event types pushed to websocket clients
const (
	EventTranscript  = "transcript"
	EventTranslation = "translation"
	EventFailure     = "failure"
	EventState       = "state"
)

const (
	eventBufferSize = 32
	writeWait       = 5 * time.Second
)

// Event is one display update
type Event struct {
	Type      string    `json:"type"`
	Text      string    `json:"text,omitempty"`
	State     string    `json:"state,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// subscriber is one connected websocket client
type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// EventHub broadcasts display events to websocket clients.
// It implements exchange.Display.
type EventHub struct {
	upgrader    websocket.Upgrader
	logger      *slog.Logger
	subscribers map[*subscriber]struct{}
	mu          sync.RWMutex
}

// NewEventHub creates an empty hub
func NewEventHub(logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:      logger,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// ShowTranscript implements exchange.Display
func (h *EventHub) ShowTranscript(text string) {
	h.Broadcast(Event{Type: EventTranscript, Text: text})
}

// ShowTranslation implements exchange.Display
func (h *EventHub) ShowTranslation(text string) {
	h.Broadcast(Event{Type: EventTranslation, Text: text})
}

// ShowFailure implements exchange.Display
func (h *EventHub) ShowFailure(message string) {
	h.Broadcast(Event{Type: EventFailure, Text: message})
}

// ShowState publishes a recording state transition
func (h *EventHub) ShowState(state capture.State) {
	h.Broadcast(Event{Type: EventState, State: state.String()})
}

// Broadcast queues an event for every subscriber. Subscribers that fall behind miss events.
func (h *EventHub) Broadcast(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers {
		select {
		case sub.send <- event:
		default:
			h.logger.Warn("Dropping event for slow websocket client", slog.String("type", event.Type))
		}
	}
}

// SubscriberCount returns the number of connected clients
func (h *EventHub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and streams events until the client disconnects
func (h *EventHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Event, eventBufferSize)}
	h.add(sub)

	h.logger.Debug("WebSocket client connected", slog.String("remote_addr", r.RemoteAddr))

	done := make(chan struct{})
	go h.writeLoop(sub, done)

	// Read and discard client frames to detect disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.remove(sub)
	close(done)
	conn.Close()

	h.logger.Debug("WebSocket client disconnected", slog.String("remote_addr", r.RemoteAddr))
}

// writeLoop delivers queued events to one client
func (h *EventHub) writeLoop(sub *subscriber, done <-chan struct{}) {
	for {
		select {
		case event := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteJSON(event); err != nil {
				h.logger.Debug("WebSocket write failed", slog.String("error", err.Error()))
				sub.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

// Close disconnects every client
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		sub.conn.Close()
	}
}

func (h *EventHub) add(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers[sub] = struct{}{}
}

func (h *EventHub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subscribers, sub)
}
