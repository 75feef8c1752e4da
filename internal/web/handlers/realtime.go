package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/referral-labels/internal/correction"
)

// HeartbeatInterval spaces keep-alive events on idle progress streams.
var HeartbeatInterval = 15 * time.Second

// UpdateNotification is the payload of every server-sent event.
type UpdateNotification struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// progressHub fans correction progress out to the workspace's SSE streams.
// Slow subscribers miss intermediate updates rather than block the run.
type progressHub struct {
	mu   sync.Mutex
	subs map[chan correction.Progress]struct{}
}

func newProgressHub() *progressHub {
	return &progressHub{subs: make(map[chan correction.Progress]struct{})}
}

func (h *progressHub) subscribe() (<-chan correction.Progress, func()) {
	ch := make(chan correction.Progress, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *progressHub) publish(p correction.Progress) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

// CorrectionProgress streams the workspace's correction progress as
// Server-Sent Events: a "snapshot" event on connect, then "progress" events
// and periodic heartbeats until the client disconnects.
func (h *WorkspacesHandler) CorrectionProgress(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates, unsubscribe := ws.progress.subscribe()
	defer unsubscribe()

	sendSSEEvent(w, flusher, "snapshot", ws.Workflow.Snapshot())

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-updates:
			sendSSEEvent(w, flusher, "progress", p)
		case <-ticker.C:
			sendSSEEvent(w, flusher, "heartbeat", map[string]interface{}{
				"timestamp": time.Now(),
			})
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, eventType string, data interface{}) {
	notification := UpdateNotification{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	jsonData, err := json.Marshal(notification)
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", jsonData)
	flusher.Flush()
}
