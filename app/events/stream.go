// Package events contains the live-update endpoint
package events

import (
	"time"

	"github.com/EllieBekrian/cab432/internal"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	busevents "github.com/EllieBekrian/cab432/internal/events"
)

// Stream serves a long-lived text/event-stream connection. Every
// subscriber gets an initial connected event with its session id,
// periodic pings so half-open connections die, and every event
// published on the bus while it's connected. The registration is
// released as soon as the connection goes away.
func Stream(c *gin.Context, d *internal.Deps) {
	id, ch, cancel := d.Bus.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("connected", gin.H{
		"id": id,
		"ts": time.Now().UTC(),
	})
	c.Writer.Flush()

	zap.L().Debug("Live listener connected", zap.String("subscriber", id))

	keepAlive := time.NewTicker(busevents.KeepAliveInterval)
	defer keepAlive.Stop()

	done := c.Request.Context().Done()

	for {
		select {
		case <-done:
			zap.L().Debug("Live listener disconnected", zap.String("subscriber", id))
			return

		case <-keepAlive.C:
			c.SSEvent("ping", "keepalive")
			c.Writer.Flush()

		case evt, ok := <-ch:
			if !ok {
				return
			}

			payload := gin.H{"ts": evt.TS}
			for k, v := range evt.Data {
				payload[k] = v
			}

			c.SSEvent(evt.Name, payload)
			c.Writer.Flush()
		}
	}
}
