// Package pipeline holds the data types shared across every orchestrator
// and worker service: job records, step identifiers, and segment artifacts.
package pipeline

import "time"

// Status is the lifecycle state of a job, persisted in the job state store.
type Status string

const (
	StatusQueued        Status = "QUEUED"
	StatusPreprocessing Status = "PREPROCESSING"
	StatusSegmenting    Status = "SEGMENTING"
	StatusDiarizing     Status = "DIARIZING"
	StatusProcessing    Status = "PROCESSING" // segments fanned out across enhance/lang-detect/recognize/transcode
	StatusPostProcessing Status = "POST_PROCESSING"
	StatusCompleted     Status = "COMPLETED"
	StatusFailed        Status = "FAILED"
	StatusCancelling    Status = "CANCELLING"
	StatusCancelled     Status = "CANCELLED"
)

// Terminal reports whether a status ends the job's lifecycle.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// StepKey names an idempotence-guarded completion step recorded per job.
// The set is closed: the orchestrator never checks or sets a key outside it.
type StepKey string

const (
	StepPreprocessDone       StepKey = "preprocess_done"
	StepSegmentDone          StepKey = "segment_done"
	StepSegmentingTrigger    StepKey = "segmenting_trigger"
	StepDiarizationDone      StepKey = "diarization_done"
	StepTranscodeTrigger     StepKey = "transcode_trigger"
	StepTranscodeDone        StepKey = "transcode_done"
	StepRecognitionAll       StepKey = "recognition_all"
	StepPostprocessTriggered StepKey = "postprocess_triggered"
)

// Job is the persisted record for one upload-to-transcript run.
type Job struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// SegmentRecord is one completed segment's recognized-and-aligned artifact location,
// appended to the job's segment list as recognition/transcode fan-out completes.
type SegmentRecord struct {
	Index            int    `json:"index"`
	StartMS          int64  `json:"start_ms"`
	EndMS            int64  `json:"end_ms"`
	TranscriptS3Path string `json:"transcript_s3_path"`
}

// TurnSegment is one diarization turn: a speaker label over a time range.
type TurnSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// SegmentCounters reports fan-in progress for a job's segment set.
type SegmentCounters struct {
	Total int
	Done  int
}

// ProgressFrame is the wire shape published to job_progress:<id> and streamed over SSE.
type ProgressFrame struct {
	JobID    string `json:"job_id"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Message  string `json:"message"`
}
