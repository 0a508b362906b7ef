package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/herald/internal/broadcast"
)

// handleSSE streams push events to one user over a long-lived connection.
// The stream opens with a connected event, carries message events published
// by the delivery path, and sends ping heartbeats so intermediaries keep the
// connection alive. The subscription is always released on disconnect.
func handleSSE(b *broadcast.Broadcaster, heartbeat time.Duration) gin.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return func(c *gin.Context) {
		userID := c.Query("user")
		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
			return
		}

		conn := b.Subscribe(userID)
		if conn == nil {
			// Broadcaster is shutting down.
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "shutting down"})
			return
		}
		defer b.Unsubscribe(conn)

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")

		writeSSE(c.Writer, broadcast.EventConnected, map[string]string{"user_id": userID})
		c.Writer.Flush()

		ctx := c.Request.Context()
		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-conn.Events:
				if !ok {
					// Evicted as a slow consumer or closed at shutdown.
					return
				}
				writeSSE(c.Writer, evt.Type, evt.Data)
				c.Writer.Flush()
			case <-ticker.C:
				writeSSE(c.Writer, broadcast.EventPing, map[string]string{
					"timestamp": time.Now().UTC().Format(time.RFC3339),
				})
				c.Writer.Flush()
			}
		}
	}
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, string(jsonData))
}
