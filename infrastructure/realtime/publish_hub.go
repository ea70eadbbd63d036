package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"multipost/domain/model"
)

const (
	EventPublishOutcome  = "publish_outcome"
	EventPublishComplete = "publish_complete"
)

// PublishEvent is an SSE payload describing orchestration progress.
type PublishEvent struct {
	Type     string                `json:"type"`
	RunID    string                `json:"runId,omitempty"`
	Platform string                `json:"platform,omitempty"`
	Outcome  *model.PublishOutcome `json:"outcome,omitempty"`
	Entry    *model.HistoryEntry   `json:"entry,omitempty"`
}

// Hub fans publish events out to every connected panel.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan PublishEvent]struct{}
}

func NewPublishHub() *Hub {
	return &Hub{subs: make(map[chan PublishEvent]struct{})}
}

// Serve streams events to an authenticated client (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	if c.GetString("user_id") == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan PublishEvent, 16)
	h.addSubscriber(ch)
	defer h.removeSubscriber(ch)

	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: " + evt.Type + "\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		}
	}
}

func (h *Hub) addSubscriber(ch chan PublishEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) removeSubscriber(ch chan PublishEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) broadcast(evt PublishEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
}

// BroadcastOutcome announces that one platform of a run has settled.
func (h *Hub) BroadcastOutcome(runID string, platform string, outcome model.PublishOutcome) {
	h.broadcast(PublishEvent{Type: EventPublishOutcome, RunID: runID, Platform: platform, Outcome: &outcome})
}

// Notify announces a recorded run. It never fails.
func (h *Hub) Notify(_ context.Context, entry *model.HistoryEntry) error {
	if entry == nil {
		return nil
	}
	h.broadcast(PublishEvent{Type: EventPublishComplete, RunID: entry.ID, Entry: entry})
	return nil
}
