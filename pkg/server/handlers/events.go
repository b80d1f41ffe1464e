package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/mindgraph"
)

// EventsHandler streams graph lifecycle events as server-sent events.
type EventsHandler struct {
	events    mindgraph.EventSource
	heartbeat time.Duration
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(events mindgraph.EventSource) *EventsHandler {
	return &EventsHandler{events: events, heartbeat: 30 * time.Second}
}

// Stream handles GET /events?graph_id=. A "ready" event is sent once the
// subscription is active; heartbeats keep idle connections open.
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.events == nil {
		c.AbortWithStatus(http.StatusServiceUnavailable)
		return
	}
	graphID := c.Query("graph_id")

	ch, cancel := h.events.Subscribe(64)
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	c.SSEvent("ready", gin.H{"graph_id": graphID})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			c.Writer.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if graphID != "" && ev.GraphID != graphID {
				continue
			}
			c.SSEvent(string(ev.Type), ev)
			c.Writer.Flush()
		}
	}
}
