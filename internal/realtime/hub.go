package realtime

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/potalora/ai-web-records-app-take-2/internal/platform/logger"
)

const (
	outboundBuffer    = 10
	heartbeatInterval = 15 * time.Second
)

// Hub fans events out to connected clients, keyed by user. Every event
// names its user, so routing is a map lookup rather than channel
// subscriptions.
type Hub struct {
	mu      sync.RWMutex
	log     *logger.Logger
	clients map[uuid.UUID]map[*Client]bool
}

func NewHub(baseLog *logger.Logger) *Hub {
	return &Hub{
		log:     baseLog.With("service", "EventHub"),
		clients: make(map[uuid.UUID]map[*Client]bool),
	}
}

// NewClient registers a stream for the user and returns it. Callers
// must release it with CloseClient.
func (h *Hub) NewClient(userID uuid.UUID) *Client {
	client := &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Outbound: make(chan Event, outboundBuffer),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	clients, ok := h.clients[userID]
	if !ok {
		clients = make(map[*Client]bool)
		h.clients[userID] = clients
	}
	clients[client] = true
	h.mu.Unlock()

	h.log.Debug("event client connected", "client_id", client.ID, "user_id", userID)
	return client
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.clients, client.UserID)
		}
	}
}

// Broadcast queues the event on every stream the event's user has open.
// A full buffer drops its oldest queued event first, so a slow reader
// always ends up with the newest progress rather than the stalest.
func (h *Hub) Broadcast(event Event) {
	if event.UserID == uuid.Nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients[event.UserID] {
		select {
		case client.Outbound <- event:
			continue
		default:
		}
		select {
		case <-client.Outbound:
		default:
		}
		select {
		case client.Outbound <- event:
		default:
		}
		h.log.Debug("outbound buffer full, dropped oldest event", "client_id", client.ID)
	}
}

// ServeHTTP streams the client's events in SSE framing until the
// request ends or the client is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Debug("event client context done", "client_id", client.ID, "error", ctx.Err())
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			// Padded so buffering proxies pass the heartbeat through.
			const pingSize = 8*1024 - len(": ping \n\n")
			fmt.Fprint(w, ": ping "+strings.Repeat("#", pingSize)+"\n\n")
			flusher.Flush()
		case event := <-client.Outbound:
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Warn("failed to marshal event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// CloseClient unregisters the client and closes its channels. The
// client must not be used afterwards.
func (h *Hub) CloseClient(client *Client) {
	close(client.done)
	h.RemoveClient(client)
	close(client.Outbound)
}
