package handler

import (
	"fmt"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/material/events"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EventsHandler 物料变更 SSE 推送
type EventsHandler struct {
	hub       *events.Hub
	heartbeat time.Duration
	logger    *zap.Logger
}

func NewEventsHandler(hub *events.Hub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, heartbeat: 30 * time.Second, logger: logger}
}

// Stream GET /events
func (h *EventsHandler) Stream(c *gin.Context) {
	if h.hub == nil {
		ServiceUnavailable(c, "event stream is not enabled")
		return
	}

	userID := GetUserID(c)
	clientID := fmt.Sprintf("%s_%d", userID, time.Now().UnixNano())
	client := &events.Client{
		ID:     clientID,
		UserID: userID,
		Events: make(chan events.Event, 64),
	}
	h.hub.Register(client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")

	c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: {\"client_id\":%q}\n\n", events.EventConnected, clientID))
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-clientGone:
			h.hub.Unregister(clientID)
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			c.Writer.WriteString(fmt.Sprintf("event: %s\ndata: %s\n\n", event.EventType, event.Data))
			c.Writer.Flush()
		case <-heartbeat.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		}
	}
}
