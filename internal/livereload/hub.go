// Package livereload pushes reload events to browsers over server-sent
// events and injects the client script into served pages.
package livereload

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/assetpipe/internal/metrics"
)

// Kind tells clients how much to reload.
type Kind string

const (
	KindPage Kind = "page"
	// KindCSS lets clients swap stylesheets without reloading the page.
	KindCSS Kind = "css"
)

// Event is one broadcast.
type Event struct {
	Hash string `json:"hash"`
	Kind Kind   `json:"kind"`
}

// Hub manages SSE clients for reload broadcasts.
type Hub struct {
	mu        sync.RWMutex
	nextID    int
	clients   map[int]*client
	recorder  metrics.Recorder
	closed    bool
	last      Event
	heartbeat time.Duration
}

type client struct {
	id   int
	ch   chan Event
	done chan struct{}
}

func NewHub(rec metrics.Recorder) *Hub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Hub{clients: map[int]*client{}, recorder: rec, heartbeat: 30 * time.Second}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	c := &client{ch: make(chan Event, 8), done: make(chan struct{})}
	h.mu.Lock()
	c.id = h.nextID
	h.nextID++
	h.clients[c.id] = c
	current := h.last
	n := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetReloadClients(n)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		slog.Debug("livereload write", "error", err)
		h.removeClient(c.id)
		return
	}
	if current.Kind == "" {
		current.Kind = KindPage
	}
	if err := writeEvent(bw, current); err != nil {
		slog.Debug("livereload write", "error", err)
		h.removeClient(c.id)
		return
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(h.heartbeat)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(c.id)
			return
		case <-c.done:
			h.removeClient(c.id)
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err == nil {
				_ = bw.Flush()
				flusher.Flush()
			} else {
				slog.Debug("livereload ping write", "error", err)
			}
		case ev := <-c.ch:
			if err := writeEvent(bw, ev); err == nil {
				_ = bw.Flush()
				flusher.Flush()
			} else {
				slog.Debug("livereload broadcast write", "error", err)
			}
		}
	}
}

func writeEvent(bw *bufio.Writer, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = bw.WriteString("data: " + string(data) + "\n\n")
	return err
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		close(c.done)
	}
	n := len(h.clients)
	h.mu.Unlock()
	if ok {
		h.recorder.SetReloadClients(n)
	}
}

// Reload broadcasts a fresh token of kind and returns it.
func (h *Hub) Reload(kind Kind) string {
	ev := Event{Hash: uuid.NewString(), Kind: kind}
	h.Broadcast(ev)
	return ev.Hash
}

// Broadcast sends ev to all clients; a repeated hash is ignored. Clients
// whose buffers are full are dropped.
func (h *Hub) Broadcast(ev Event) {
	h.mu.Lock()
	if h.closed || ev.Hash == "" || ev.Hash == h.last.Hash {
		h.mu.Unlock()
		return
	}
	h.last = ev
	snapshot := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- ev:
		case <-c.done:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	h.recorder.IncReloadBroadcast(string(ev.Kind))
	slog.Debug("livereload broadcast", "hash", ev.Hash, "kind", ev.Kind, "clients", len(snapshot), "dropped", dropped)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*client{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
	h.recorder.SetReloadClients(0)
}
