package ui

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// EventType names an operation the browser applies to the report page
type EventType string

const (
	EventReset   EventType = "reset"
	EventAppend  EventType = "append"
	EventPlot    EventType = "plot"
	EventTypeset EventType = "typeset"
	EventNotify  EventType = "notify"
	EventLoading EventType = "loading"
	EventSummary EventType = "summary"
	EventPing    EventType = "ping"
)

// clientBuffer is the number of events a slow browser may lag behind before
// it is dropped and has to reconnect
const clientBuffer = 256

// pingInterval keeps idle connections alive through proxies
const pingInterval = 30 * time.Second

// Event is one server-sent event
type Event struct {
	Type EventType
	Data interface{}
}

// ToSSEFormat converts the event to SSE wire format
func (e Event) ToSSEFormat() string {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, `{"error":"error marshalling event"}`)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, jsonData)
}

// stream is the event feed of one browser client. It remembers the current
// document so a reconnecting page can be rebuilt.
type stream struct {
	subscribers map[chan Event]bool
	document    []Event
	loading     *Event
	summary     *Event
}

// SSEHub fans document operations out to the pages of each client
type SSEHub struct {
	clients   map[string]*stream
	clientsMu sync.Mutex
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{clients: make(map[string]*stream)}
}

func (h *SSEHub) streamFor(clientID string) *stream {
	s, ok := h.clients[clientID]
	if !ok {
		s = &stream{subscribers: make(map[chan Event]bool)}
		h.clients[clientID] = s
	}
	return s
}

// Publish records an event for clientID and sends it to every connected
// page. A page whose buffer is full is disconnected.
func (h *SSEHub) Publish(clientID string, event Event) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	s := h.streamFor(clientID)
	switch event.Type {
	case EventReset:
		s.document = []Event{event}
	case EventAppend, EventPlot, EventTypeset:
		s.document = append(s.document, event)
	case EventLoading:
		s.loading = &event
	case EventSummary:
		s.summary = &event
	}

	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			log.Printf("[SSE] Client %s is lagging, dropping its connection", clientID)
			delete(s.subscribers, ch)
			close(ch)
		}
	}
}

// Subscribe attaches a page to clientID. The returned channel starts with a
// replay of the current document.
func (h *SSEHub) Subscribe(clientID string) chan Event {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	s := h.streamFor(clientID)
	replay := make([]Event, 0, len(s.document)+2)
	replay = append(replay, s.document...)
	if s.summary != nil {
		replay = append(replay, *s.summary)
	}
	if s.loading != nil {
		replay = append(replay, *s.loading)
	}

	size := clientBuffer
	if len(replay) > size/2 {
		size = len(replay) * 2
	}
	ch := make(chan Event, size)
	for _, ev := range replay {
		ch <- ev
	}
	s.subscribers[ch] = true
	log.Printf("[SSE] Client %s subscribed (pages: %d, replayed %d events)", clientID, len(s.subscribers), len(replay))
	return ch
}

// Unsubscribe detaches a page
func (h *SSEHub) Unsubscribe(clientID string, ch chan Event) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	s, ok := h.clients[clientID]
	if !ok {
		return
	}
	if s.subscribers[ch] {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// Remove forgets a client and closes its pages
func (h *SSEHub) Remove(clientID string) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if s, ok := h.clients[clientID]; ok {
		for ch := range s.subscribers {
			close(ch)
		}
		delete(h.clients, clientID)
	}
}

// GetClientCount returns the number of pages connected for a client
func (h *SSEHub) GetClientCount(clientID string) int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if s, ok := h.clients[clientID]; ok {
		return len(s.subscribers)
	}
	return 0
}

// ServeClient streams the events of clientID until the request ends
func (h *SSEHub) ServeClient(w http.ResponseWriter, r *http.Request, clientID string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ch := h.Subscribe(clientID)
	defer h.Unsubscribe(clientID, ch)

	fmt.Fprint(w, "retry: 2000\n\n")
	flusher.Flush()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	ctx := r.Context()
	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			if _, err := fmt.Fprint(w, event.ToSSEFormat()); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			ping := Event{Type: EventPing, Data: map[string]string{"status": "alive", "timestamp": time.Now().Format(time.RFC3339)}}
			if _, err := fmt.Fprint(w, ping.ToSSEFormat()); err != nil {
				return
			}
			flusher.Flush()

		case <-ctx.Done():
			return
		}
	}
}
