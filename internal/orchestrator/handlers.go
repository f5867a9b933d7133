// Package orchestrator implements the job state machine: one handler per
// worker completion event, driving fan-out of per-stage commands and
// fan-in of per-segment completions to a single terminal post-process
// trigger.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/tuan6100/audio-pipeline/internal/commands"
	"github.com/tuan6100/audio-pipeline/internal/events"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"github.com/tuan6100/audio-pipeline/internal/pipeline"
	"github.com/tuan6100/audio-pipeline/internal/store"
	"github.com/tuan6100/audio-pipeline/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	exchangeCommands = "audio_ops"
	exchangeEvents   = "worker_events"
	exchangeTerminal = "audio_events"
)

// JobStore is the subset of *store.Store the orchestrator needs, narrowed
// to an interface so tests can drive it against an in-memory fake.
type JobStore interface {
	InitJob(ctx context.Context, jobID, userID string) error
	GetJob(ctx context.Context, jobID string) (*pipeline.Job, error)
	UpdateProgress(ctx context.Context, jobID string, status pipeline.Status, progress int, message string) error
	MarkStepDone(ctx context.Context, jobID string, step pipeline.StepKey) error
	IsStepDone(ctx context.Context, jobID string, step pipeline.StepKey) (bool, error)
	CompareAndSetStep(ctx context.Context, jobID string, step pipeline.StepKey) (bool, error)
	SetSegmentTotal(ctx context.Context, jobID string, total int) error
	IncrementSegmentDone(ctx context.Context, jobID string) (int, error)
	SegmentCounters(ctx context.Context, jobID string) (pipeline.SegmentCounters, error)
	AppendSegmentRecord(ctx context.Context, jobID string, rec pipeline.SegmentRecord) error
	ListSegmentRecords(ctx context.Context, jobID string) ([]pipeline.SegmentRecord, error)
}

// Publisher is the subset of *broker.Producer the orchestrator needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// Handlers holds the dependencies every event handler needs and implements
// one method per event spec.md §6 names.
type Handlers struct {
	Store    JobStore
	Producer Publisher
	Objects  objectstore.Store
	Logger   *zap.Logger
}

// isCancelled reports whether jobID should stop: CANCELLING is the
// cooperative hint a handler already in flight observes before terminateJob's
// cleanup has settled the job at the terminal CANCELLED status.
func (h *Handlers) isCancelled(ctx context.Context, jobID string) bool {
	job, err := h.Store.GetJob(ctx, jobID)
	if err != nil {
		return false
	}
	switch job.Status {
	case pipeline.StatusCancelled, pipeline.StatusCancelling:
		h.Logger.Warn("job was cancelled, stopping workflow", zap.String("job_id", jobID))
		return true
	default:
		return false
	}
}

// HandleFileUploaded starts a new job: initializes state if unseen, then
// publishes cmd.preprocess unless that step has already completed.
func (h *Handlers) HandleFileUploaded(ctx context.Context, evt events.FileUploadedEvent) (err error) {
	jobID := evt.JobID

	ctx, span := telemetry.GetJobEvents().TraceJobSubmitted(ctx, jobID, evt.UserID)
	defer func() {
		telemetry.RecordStageError(span, err)
		span.End()
	}()

	_, err = h.Store.GetJob(ctx, jobID)
	switch {
	case errors.Is(err, store.ErrJobNotFound):
		h.Logger.Info("started flow for job", zap.String("job_id", jobID))
		if err := h.Store.InitJob(ctx, jobID, evt.UserID); err != nil {
			return fmt.Errorf("init job: %w", err)
		}
		metrics.GetApplication().JobsSubmittedTotal.WithLabelValues().Inc()
	case err != nil:
		return fmt.Errorf("get job: %w", err)
	default:
		h.Logger.Info("job already exists, resuming", zap.String("job_id", jobID))
	}

	done, err := h.Store.IsStepDone(ctx, jobID, pipeline.StepPreprocessDone)
	if err != nil {
		return fmt.Errorf("check preprocess step: %w", err)
	}
	if done {
		return nil
	}

	if err := h.Store.UpdateProgress(ctx, jobID, pipeline.StatusPreprocessing, 5, "Cleaning audio..."); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	cmd := commands.PreprocessCommand{JobID: jobID, InputPath: evt.StoragePath}
	return h.Producer.Publish(ctx, exchangeCommands, "cmd.preprocess", cmd)
}

// HandlePreprocessDone marks preprocess complete and fans out segment and
// diarize commands exactly once.
func (h *Handlers) HandlePreprocessDone(ctx context.Context, evt events.PreprocessCompletedEvent) error {
	jobID := evt.JobID
	if h.isCancelled(ctx, jobID) {
		return nil
	}
	if err := h.Store.MarkStepDone(ctx, jobID, pipeline.StepPreprocessDone); err != nil {
		return fmt.Errorf("mark preprocess done: %w", err)
	}

	done, err := h.Store.IsStepDone(ctx, jobID, pipeline.StepSegmentingTrigger)
	if err != nil {
		return fmt.Errorf("check segmenting trigger: %w", err)
	}
	if done {
		return nil
	}

	if err := h.Store.UpdateProgress(ctx, jobID, pipeline.StatusSegmenting, 15, "Analyzing structure..."); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if err := h.Producer.Publish(ctx, exchangeCommands, "cmd.segment", commands.SegmentCommand{JobID: jobID, InputPath: evt.CleanAudioPath}); err != nil {
		return fmt.Errorf("publish cmd.segment: %w", err)
	}
	if err := h.Producer.Publish(ctx, exchangeCommands, "cmd.diarize", commands.DiarizeCommand{JobID: jobID, InputPath: evt.CleanAudioPath}); err != nil {
		return fmt.Errorf("publish cmd.diarize: %w", err)
	}
	return h.Store.MarkStepDone(ctx, jobID, pipeline.StepSegmentingTrigger)
}

// HandleSegmentDone records the fan-out width, triggers transcode once, and
// issues one cmd.enhance per segment.
func (h *Handlers) HandleSegmentDone(ctx context.Context, evt events.SegmentCompletedEvent) error {
	jobID := evt.JobID
	if h.isCancelled(ctx, jobID) {
		return nil
	}

	total := len(evt.Segments)
	if total == 0 {
		h.Logger.Error("segment.done carries no segments, failing job", zap.String("job_id", jobID))
		return h.terminateJob(ctx, jobID, pipeline.StatusFailed, "segmentation produced no input segments")
	}

	if err := h.Store.SetSegmentTotal(ctx, jobID, total); err != nil {
		return fmt.Errorf("set segment total: %w", err)
	}

	done, err := h.Store.IsStepDone(ctx, jobID, pipeline.StepTranscodeTrigger)
	if err != nil {
		return fmt.Errorf("check transcode trigger: %w", err)
	}
	if !done {
		if err := h.Producer.Publish(ctx, exchangeCommands, "cmd.transcode", commands.TranscodeCommand{JobID: jobID, InputPath: evt.AudioPath}); err != nil {
			return fmt.Errorf("publish cmd.transcode: %w", err)
		}
		if err := h.Store.MarkStepDone(ctx, jobID, pipeline.StepTranscodeTrigger); err != nil {
			return fmt.Errorf("mark transcode trigger: %w", err)
		}
	}

	for _, seg := range evt.Segments {
		cmd := commands.EnhanceCommand{
			JobID:   jobID,
			Index:   seg.Index,
			S3Path:  seg.Path,
			StartMS: seg.StartMS,
			EndMS:   seg.EndMS,
		}
		if err := h.Producer.Publish(ctx, exchangeCommands, "cmd.enhance", cmd); err != nil {
			return fmt.Errorf("publish cmd.enhance[%d]: %w", seg.Index, err)
		}
	}

	return h.Store.UpdateProgress(ctx, jobID, pipeline.StatusProcessing, 30, fmt.Sprintf("Processing %d chunks...", total))
}

// HandleDiarizationDone persists the speaker turns and invokes the fan-in
// finish check.
func (h *Handlers) HandleDiarizationDone(ctx context.Context, evt events.DiarizationCompletedEvent) error {
	jobID := evt.JobID
	if h.isCancelled(ctx, jobID) {
		return nil
	}

	key := fmt.Sprintf("analysis/%s/diarization.json", jobID)
	if err := objectstore.PutJSON(ctx, h.Objects, key, evt.SpeakerSegments); err != nil {
		return fmt.Errorf("write diarization.json: %w", err)
	}

	if err := h.Store.MarkStepDone(ctx, jobID, pipeline.StepDiarizationDone); err != nil {
		return fmt.Errorf("mark diarization done: %w", err)
	}
	return h.checkFinishAndTriggerPostprocess(ctx, jobID)
}

// HandleTranscodeDone marks transcode complete and invokes the finish check.
func (h *Handlers) HandleTranscodeDone(ctx context.Context, evt events.TranscodeCompletedEvent) error {
	jobID := evt.JobID
	if h.isCancelled(ctx, jobID) {
		return nil
	}
	if err := h.Store.MarkStepDone(ctx, jobID, pipeline.StepTranscodeDone); err != nil {
		return fmt.Errorf("mark transcode done: %w", err)
	}
	return h.checkFinishAndTriggerPostprocess(ctx, jobID)
}

// HandleEnhancementDone forwards a segment to language detection, preserving
// its chunk identity.
func (h *Handlers) HandleEnhancementDone(ctx context.Context, evt events.EnhancementCompletedEvent) error {
	if h.isCancelled(ctx, evt.JobID) {
		return nil
	}
	cmd := commands.LanguageDetectCommand{
		JobID:     evt.JobID,
		Index:     evt.Index,
		InputPath: evt.S3Path,
		StartMS:   evt.StartMS,
		EndMS:     evt.EndMS,
	}
	return h.Producer.Publish(ctx, exchangeCommands, "cmd.lang_detect", cmd)
}

// HandleLangDetectDone forwards a segment to recognition with the detected
// language attached.
func (h *Handlers) HandleLangDetectDone(ctx context.Context, evt events.LanguageDetectionCompletedEvent) error {
	if h.isCancelled(ctx, evt.JobID) {
		return nil
	}
	language := evt.Language
	cmd := commands.RecognizeCommand{
		JobID:     evt.JobID,
		InputPath: evt.InputPath,
		Index:     &evt.Index,
		Language:  &language,
		StartMS:   evt.StartMS,
		EndMS:     evt.EndMS,
	}
	return h.Producer.Publish(ctx, exchangeCommands, "cmd.recognize", cmd)
}

// HandleRecognitionDone appends the segment's record, advances the done
// counter, reports progress, and marks recognition_all once every segment
// has reported -- then invokes the finish check.
func (h *Handlers) HandleRecognitionDone(ctx context.Context, evt events.RecognitionCompletedEvent) error {
	jobID := evt.JobID
	if h.isCancelled(ctx, jobID) {
		return nil
	}

	var transcriptPath string
	if evt.TranscriptS3Path != nil {
		transcriptPath = *evt.TranscriptS3Path
	}
	rec := pipeline.SegmentRecord{
		Index:            evt.Index,
		StartMS:          evt.StartMS,
		EndMS:            evt.EndMS,
		TranscriptS3Path: transcriptPath,
	}
	// Append before incrementing: a reader observing done==total is then
	// guaranteed to see the full record list (§5 "Fan-in" ordering).
	if err := h.Store.AppendSegmentRecord(ctx, jobID, rec); err != nil {
		return fmt.Errorf("append segment record: %w", err)
	}

	done, err := h.Store.IncrementSegmentDone(ctx, jobID)
	if err != nil {
		return fmt.Errorf("increment segment done: %w", err)
	}
	counters, err := h.Store.SegmentCounters(ctx, jobID)
	if err != nil {
		return fmt.Errorf("read segment counters: %w", err)
	}

	if counters.Total > 0 {
		progress := 30 + (done*40)/counters.Total
		if err := h.Store.UpdateProgress(ctx, jobID, pipeline.StatusProcessing, progress, ""); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
	}

	if done >= counters.Total && counters.Total > 0 {
		if err := h.Store.MarkStepDone(ctx, jobID, pipeline.StepRecognitionAll); err != nil {
			return fmt.Errorf("mark recognition_all: %w", err)
		}
		return h.checkFinishAndTriggerPostprocess(ctx, jobID)
	}
	return nil
}

// checkFinishAndTriggerPostprocess is the fan-in guard: it publishes
// cmd.postprocess iff recognition_all, diarization, and transcode have all
// completed and postprocess_triggered has not already been claimed.
func (h *Handlers) checkFinishAndTriggerPostprocess(ctx context.Context, jobID string) (err error) {
	if h.isCancelled(ctx, jobID) {
		return nil
	}

	recognitionDone, err := h.Store.IsStepDone(ctx, jobID, pipeline.StepRecognitionAll)
	if err != nil {
		return err
	}
	diarizationDone, err := h.Store.IsStepDone(ctx, jobID, pipeline.StepDiarizationDone)
	if err != nil {
		return err
	}
	transcodeDone, err := h.Store.IsStepDone(ctx, jobID, pipeline.StepTranscodeDone)
	if err != nil {
		return err
	}
	if !(recognitionDone && diarizationDone && transcodeDone) {
		return nil
	}

	claimed, err := h.Store.CompareAndSetStep(ctx, jobID, pipeline.StepPostprocessTriggered)
	if err != nil {
		return fmt.Errorf("claim postprocess_triggered: %w", err)
	}
	if !claimed {
		return nil
	}

	h.Logger.Info("all inputs ready, preparing manifest for postprocess", zap.String("job_id", jobID))

	ctx, span := telemetry.GetJobEvents().TracePostprocessTriggered(ctx, jobID, 0)
	defer func() {
		telemetry.RecordStageError(span, err)
		span.End()
	}()

	records, err := h.Store.ListSegmentRecords(ctx, jobID)
	if err != nil {
		return fmt.Errorf("list segment records: %w", err)
	}
	span.SetAttributes(attribute.Int("job.segment_count", len(records)))
	sort.Slice(records, func(i, j int) bool { return records[i].StartMS < records[j].StartMS })

	manifestKey := fmt.Sprintf("analysis/%s/segments_manifest.json", jobID)
	if err := objectstore.PutJSON(ctx, h.Objects, manifestKey, records); err != nil {
		return fmt.Errorf("write segments_manifest.json: %w", err)
	}

	if err := h.Producer.Publish(ctx, exchangeCommands, "cmd.postprocess", commands.PostProcessCommand{JobID: jobID}); err != nil {
		return fmt.Errorf("publish cmd.postprocess: %w", err)
	}
	return h.Store.UpdateProgress(ctx, jobID, pipeline.StatusPostProcessing, 80, "Finalizing...")
}

// HandleJobFinalized marks the job completed and sweeps the intermediate
// object-store prefixes, retaining results/ and hls/.
func (h *Handlers) HandleJobFinalized(ctx context.Context, evt events.JobCompletedEvent) (err error) {
	jobID := evt.JobID
	ctx, span := telemetry.GetJobEvents().TraceJobFinalized(ctx, jobID, string(pipeline.StatusCompleted))
	defer func() {
		telemetry.RecordStageError(span, err)
		span.End()
	}()

	h.Logger.Info("job fully completed, starting cleanup", zap.String("job_id", jobID))
	if err := h.Store.UpdateProgress(ctx, jobID, pipeline.StatusCompleted, 100, "Audio has been recognized successfully"); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return sweepPrefixes(ctx, h.Objects, jobID, completedCleanupPrefixes)
}

// HandleCancel terminates a job on an external cancel request. It first
// records CANCELLING so any handler already in flight for this job observes
// the hint via isCancelled and stops before terminateJob sweeps object
// storage and settles the job at CANCELLED.
func (h *Handlers) HandleCancel(ctx context.Context, cmd commands.CancelCommand) error {
	if err := h.Store.UpdateProgress(ctx, cmd.JobID, pipeline.StatusCancelling, 0, "Cancelling..."); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return h.terminateJob(ctx, cmd.JobID, pipeline.StatusCancelled, cmd.Reason)
}

// HandleDeadLetter terminates a job whose command exhausted its retries.
func (h *Handlers) HandleDeadLetter(ctx context.Context, body []byte) error {
	var msg struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(body, &msg); err != nil || msg.JobID == "" {
		h.Logger.Error("dlq message carries no job_id, dropping", zap.Error(err))
		return nil
	}
	return h.terminateJob(ctx, msg.JobID, pipeline.StatusFailed, "System Error: Processing failed and rolled back.")
}
