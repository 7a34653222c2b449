package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hyperdeck/bridge/internal/channels"
)

type pushEvent struct {
	Channel string
	Payload any
}

// StreamEvents handles GET /api/events: an SSE stream fanning out
// every receive channel to the connected client. Slow clients drop
// events rather than block the publishers.
func (h *Handlers) StreamEvents(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	events := make(chan pushEvent, 64)

	var unsubs []func()
	for _, d := range h.bridge.Catalogue().List(channels.Receive) {
		name := d.Name
		unsub, err := h.bridge.Subscribe(name, func(payload any) {
			select {
			case events <- pushEvent{Channel: name, Payload: payload}:
			default:
			}
		})
		if err != nil {
			continue
		}
		unsubs = append(unsubs, unsub)
	}
	defer func() {
		for _, u := range unsubs {
			u()
		}
	}()

	c.Status(http.StatusOK)
	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-events:
			c.SSEvent(ev.Channel, ev.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
