package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/infrastructure/http/v1/dto"
	"github.com/jaennil/guide_helper/backend/tilerender/internal/usecase"
)

// Events streams a "repaint" server-sent event whenever a tile finishes
// rendering. Bursts collapse into a single event. The stream ends when the
// client leaves or the notifier is closed on shutdown.
func (h *Handler) Events(c *gin.Context) {
	l := requestLogger(c)
	ctx := c.Request.Context()

	events, unsubscribe := h.notifier.Subscribe()
	defer unsubscribe()

	// the server write timeout would otherwise end the stream
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	// clients see the stream open before the first repaint
	c.Status(http.StatusOK)
	c.Writer.Flush()

	l.Debug("repaint stream opened", "ip", c.ClientIP())

	send := func(e usecase.Event, ok bool) bool {
		if !ok {
			return false
		}
		c.SSEvent("repaint", dto.RepaintEvent{
			Tile: e.Key.String(),
			Z:    e.Key.Z,
			X:    e.Key.X,
			Y:    e.Key.Y,
			Kind: e.Kind.String(),
		})
		return true
	}

	c.Stream(func(io.Writer) bool {
		// pending events go out before cancellation is honored
		select {
		case e, ok := <-events:
			return send(e, ok)
		default:
		}

		select {
		case <-ctx.Done():
			return false
		case e, ok := <-events:
			return send(e, ok)
		}
	})

	l.Debug("repaint stream closed", "ip", c.ClientIP())
}
