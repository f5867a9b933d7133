package orchestrator

import (
	"context"
	"fmt"

	"github.com/tuan6100/audio-pipeline/internal/events"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"github.com/tuan6100/audio-pipeline/internal/pipeline"
	"github.com/tuan6100/audio-pipeline/internal/telemetry"
	"go.uber.org/zap"
)

// completedCleanupPrefixes are swept once a job finishes successfully.
// results/ and hls/ are the job's deliverables and are kept.
var completedCleanupPrefixes = []string{
	"clean/",
	"segments/",
	"enhanced/",
	"transcripts/",
}

// failureCleanupPrefixes are swept when a job is failed or cancelled: unlike
// the success path there are no deliverables worth keeping, so results/ and
// hls/ are removed too.
var failureCleanupPrefixes = []string{
	"raw/",
	"clean/",
	"segments/",
	"transcripts/",
	"enhanced/",
	"analysis/",
	"hls/",
	"results/",
	"tmp/",
}

// terminateJob is the single convergence point for a job's non-success exit:
// it records the terminal status, sweeps the job's object-store footprint,
// publishes the matching terminal event, and best-effort notifies the user.
// Safe to call more than once for the same job (UpdateProgress and
// DeletePrefix are both idempotent).
func (h *Handlers) terminateJob(ctx context.Context, jobID string, status pipeline.Status, reason string) (err error) {
	ctx, span := telemetry.GetJobEvents().TraceJobCancelled(ctx, jobID, reason)
	defer func() {
		telemetry.RecordStageError(span, err)
		span.End()
	}()

	h.Logger.Warn("terminating job",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
		zap.String("reason", reason),
	)

	if err := h.Store.UpdateProgress(ctx, jobID, status, 0, reason); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}

	if err := sweepPrefixes(ctx, h.Objects, jobID, failureCleanupPrefixes); err != nil {
		h.Logger.Error("cleanup sweep failed", zap.String("job_id", jobID), zap.Error(err))
	}

	var (
		exchange   string
		routingKey string
		body       interface{}
	)
	switch status {
	case pipeline.StatusCancelled:
		exchange, routingKey = exchangeTerminal, "event.job_cancelled"
		body = events.JobCancelledEvent{JobID: jobID, Reason: reason}
	default:
		exchange, routingKey = exchangeTerminal, "event.job_failed"
		body = events.JobFailedEvent{JobID: jobID, Reason: reason}
	}
	if err := h.Producer.Publish(ctx, exchange, routingKey, body); err != nil {
		return fmt.Errorf("publish terminal event: %w", err)
	}

	h.sendPushNotification(jobID, status, reason)
	return nil
}

// sendPushNotification is a stand-in for the upstream push-notification
// integration, which is out of scope here: it only logs.
func (h *Handlers) sendPushNotification(jobID string, status pipeline.Status, reason string) {
	h.Logger.Info("push notification (stub)",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
		zap.String("reason", reason),
	)
}

// sweepPrefixes deletes every object under job-scoped prefix+jobID+"/" for
// each prefix in prefixes. Errors from one prefix don't stop the rest.
func sweepPrefixes(ctx context.Context, store objectstore.Store, jobID string, prefixes []string) error {
	var firstErr error
	for _, prefix := range prefixes {
		full := fmt.Sprintf("%s%s/", prefix, jobID)
		if err := store.DeletePrefix(ctx, full); err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("delete prefix %s: %w", full, err)
			}
			continue
		}
		metrics.GetApplication().CleanupSweptKeys.WithLabelValues(prefix).Inc()
	}
	return firstErr
}
