package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// JobEvents provides helper methods for tracing job-lifecycle operations,
// the pipeline-domain equivalents of HTTP/DB span helpers: job submission,
// per-stage dispatch and completion, and terminal outcomes.
type JobEvents struct {
	tracer trace.Tracer
}

// NewJobEvents creates a new job-lifecycle events tracer.
func NewJobEvents() *JobEvents {
	return &JobEvents{
		tracer: otel.Tracer("job-events"),
	}
}

// TraceJobSubmitted creates a span for a newly observed file.uploaded event
// starting (or resuming) a job's run through the pipeline.
func (je *JobEvents) TraceJobSubmitted(ctx context.Context, jobID, userID string) (context.Context, trace.Span) {
	ctx, span := je.tracer.Start(ctx, "job.submitted",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("user.id", userID),
		),
	)
	return ctx, span
}

// StageDispatchAttrs attributes for a command fan-out to a worker stage.
type StageDispatchAttrs struct {
	Stage      string // "preprocess", "segment", "diarize", "enhance", "lang_detect", "recognize", "transcode"
	Index      int    // segment index, -1 when the stage is not per-segment
	RoutingKey string
}

// TraceStageDispatch creates a span for publishing a cmd.* message to a
// worker stage.
func (je *JobEvents) TraceStageDispatch(ctx context.Context, jobID string, attrs StageDispatchAttrs) (context.Context, trace.Span) {
	ctx, span := je.tracer.Start(ctx, "job.stage_dispatch",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("stage.name", attrs.Stage),
			attribute.String("stage.routing_key", attrs.RoutingKey),
		),
	)
	if attrs.Index >= 0 {
		span.SetAttributes(attribute.Int("stage.index", attrs.Index))
	}
	return ctx, span
}

// StageCompletionAttrs attributes for a worker stage reporting done.
type StageCompletionAttrs struct {
	Stage       string
	Index       int
	SegmentsAll bool // true once every segment-fan-out stage has reported in
}

// TraceStageCompleted creates a span for a worker_events.*.done message
// being folded into job state.
func (je *JobEvents) TraceStageCompleted(ctx context.Context, jobID string, attrs StageCompletionAttrs) (context.Context, trace.Span) {
	ctx, span := je.tracer.Start(ctx, "job.stage_completed",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("stage.name", attrs.Stage),
		),
	)
	if attrs.Index >= 0 {
		span.SetAttributes(attribute.Int("stage.index", attrs.Index))
	}
	if attrs.SegmentsAll {
		span.SetAttributes(attribute.Bool("stage.segments_all_done", true))
	}
	return ctx, span
}

// TracePostprocessTriggered creates a span for the fan-in guard claiming
// postprocess_triggered and publishing cmd.postprocess.
func (je *JobEvents) TracePostprocessTriggered(ctx context.Context, jobID string, segmentCount int) (context.Context, trace.Span) {
	ctx, span := je.tracer.Start(ctx, "job.postprocess_triggered",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.Int("job.segment_count", segmentCount),
		),
	)
	return ctx, span
}

// TraceJobFinalized creates a span for a job reaching its terminal state.
func (je *JobEvents) TraceJobFinalized(ctx context.Context, jobID string, status string) (context.Context, trace.Span) {
	ctx, span := je.tracer.Start(ctx, "job.finalized",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("job.status", status),
		),
	)
	return ctx, span
}

// TraceJobCancelled creates a span for an external or DLQ-triggered job
// termination.
func (je *JobEvents) TraceJobCancelled(ctx context.Context, jobID, reason string) (context.Context, trace.Span) {
	ctx, span := je.tracer.Start(ctx, "job.cancelled",
		trace.WithAttributes(
			attribute.String("job.id", jobID),
			attribute.String("job.cancel_reason", reason),
		),
	)
	return ctx, span
}

// RecordStageError records an error in a stage-tracing span.
func RecordStageError(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

var globalJobEvents *JobEvents

// GetJobEvents returns the global job-lifecycle events tracer,
// initializing it on first use.
func GetJobEvents() *JobEvents {
	if globalJobEvents == nil {
		globalJobEvents = NewJobEvents()
	}
	return globalJobEvents
}
