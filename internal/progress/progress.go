// Package progress streams a job's state to an external caller over
// Server-Sent Events, re-expressing the teacher's broadcast-registration
// hub pattern for a one-way, poll-free HTTP stream instead of a socket.
package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/tuan6100/audio-pipeline/internal/pipeline"
	"go.uber.org/zap"
)

// JobStore is the subset of *store.Store the SSE handler needs.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*pipeline.Job, error)
	Subscribe(ctx context.Context, jobID string) *redis.PubSub
}

// Handler streams one job's progress as Server-Sent Events.
type Handler struct {
	Store  JobStore
	Logger *zap.Logger
}

// NewHandler builds a Handler backed by s.
func NewHandler(s JobStore, logger *zap.Logger) *Handler {
	return &Handler{Store: s, Logger: logger}
}

// Stream handles GET /api/v1/jobs/:id/progress: it writes the job's current
// snapshot as the first frame, then relays every subsequent pub/sub frame
// until one reports a terminal status, at which point it closes the stream.
func (h *Handler) Stream(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		c.JSON(400, gin.H{"error": "job id is required"})
		return
	}
	ctx := c.Request.Context()

	job, err := h.Store.GetJob(ctx, jobID)
	if err != nil {
		c.JSON(404, gin.H{"error": "job not found"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	frame := pipeline.ProgressFrame{JobID: job.ID, Status: job.Status, Progress: job.Progress, Message: job.Message}
	if !writeFrame(c, frame) {
		return
	}
	c.Writer.Flush()
	if job.Status.Terminal() {
		return
	}

	pubsub := h.Store.Subscribe(ctx, jobID)
	defer pubsub.Close()
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var next pipeline.ProgressFrame
			if err := json.Unmarshal([]byte(msg.Payload), &next); err != nil {
				h.Logger.Warn("progress: malformed frame, dropping", zap.String("job_id", jobID), zap.Error(err))
				continue
			}
			if !writeFrame(c, next) {
				return
			}
			c.Writer.Flush()
			if next.Status.Terminal() {
				return
			}
		}
	}
}

func writeFrame(c *gin.Context, frame pipeline.ProgressFrame) bool {
	data, err := json.Marshal(frame)
	if err != nil {
		return false
	}
	_, err = fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	return err == nil
}
