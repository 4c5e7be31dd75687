package handlers

import (
	"time"

	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/events"
	"github.com/AbnadabyBonaparte/suna-alsham-automl-sub002/internal/infrastructure/logger"
	"github.com/gofiber/contrib/websocket"
)

const pingInterval = 30 * time.Second

type EventsHandler struct {
	hub    *events.Hub
	logger *logger.Logger
}

func NewEventsHandler(hub *events.Hub, logger *logger.Logger) *EventsHandler {
	return &EventsHandler{hub: hub, logger: logger}
}

// Stream pushes every fleet event to the client as JSON until either side
// goes away.
func (h *EventsHandler) Stream(c *websocket.Conn) {
	feed, cancel := h.hub.Subscribe()
	defer cancel()
	h.logger.Infow("event_stream_opened", "remote", c.RemoteAddr().String())

	// The read loop only detects client disconnects.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			h.logger.Infow("event_stream_closed")
			return
		case ev, ok := <-feed:
			if !ok {
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				h.logger.Warnw("event_stream_write_failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
