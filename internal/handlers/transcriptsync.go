// Package handlers holds the pipeline's minimal external-facing HTTP
// handlers: everything beyond progress streaming and transcript sync is
// out of scope for this service.
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/tuan6100/audio-pipeline/internal/errors"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"github.com/tuan6100/audio-pipeline/internal/transcriptsync"
	"github.com/tuan6100/audio-pipeline/internal/util"
)

// TranscriptSyncHandler exposes internal/transcriptsync over HTTP for the
// (out-of-scope) edit UI to call once a collaborator edits a transcript.
type TranscriptSyncHandler struct {
	Sync *transcriptsync.Service
}

// NewTranscriptSyncHandler builds a TranscriptSyncHandler backed by sync.
func NewTranscriptSyncHandler(sync *transcriptsync.Service) *TranscriptSyncHandler {
	return &TranscriptSyncHandler{Sync: sync}
}

type syncRequest struct {
	Segments []transcriptsync.Segment `json:"segments"`
}

// SyncTranscript handles PUT /api/v1/jobs/:id/transcript: it takes the
// caller's edited segment list and pushes it into object storage,
// overwriting the job's transcript artifacts. Concurrent edits to the same
// job are the caller's problem -- this is a last-write-wins overwrite.
func (h *TranscriptSyncHandler) SyncTranscript(c *gin.Context) {
	jobID := c.Param("id")
	if jobID == "" {
		util.RespondWithAPIError(c, errors.BadRequest("job id is required"))
		return
	}

	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithAPIError(c, errors.BadRequest("invalid transcript payload: "+err.Error()))
		metrics.GetApplication().TranscriptSyncTotal.WithLabelValues("bad_request").Inc()
		return
	}

	result, err := h.Sync.Sync(c.Request.Context(), jobID, req.Segments)
	if err != nil {
		util.RespondWithAPIError(c, errors.InternalError("failed to sync transcript").WithDetails(err.Error()))
		metrics.GetApplication().TranscriptSyncTotal.WithLabelValues("error").Inc()
		return
	}

	metrics.GetApplication().TranscriptSyncTotal.WithLabelValues("success").Inc()
	c.JSON(200, result)
}
