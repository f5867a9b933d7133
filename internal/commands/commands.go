// Package commands defines the wire shapes published to worker command
// routing keys, mirrored field-for-field from the original schema.
package commands

// PreprocessCommand asks the preprocessor to loudness-normalize raw input audio and resample it to 16kHz mono.
type PreprocessCommand struct {
	JobID     string `json:"job_id"`
	InputPath string `json:"input_path"`
}

// SegmentCommand asks the segmenter to split preprocessed audio into non-silent chunks of at most 60 seconds.
type SegmentCommand struct {
	JobID     string `json:"job_id"`
	InputPath string `json:"input_path"`
}

// DiarizeCommand asks the diarizer to produce speaker turns over the whole clip.
type DiarizeCommand struct {
	JobID     string `json:"job_id"`
	InputPath string `json:"input_path"`
}

// EnhanceCommand asks the enhancer to denoise one segment.
type EnhanceCommand struct {
	JobID   string `json:"job_id"`
	Index   int    `json:"index"`
	S3Path  string `json:"s3_path"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// LanguageDetectCommand asks the language detector to classify one segment.
type LanguageDetectCommand struct {
	JobID     string `json:"job_id"`
	Index     int    `json:"index"`
	InputPath string `json:"input_path"`
	StartMS   int64  `json:"start_ms"`
	EndMS     int64  `json:"end_ms"`
}

// SegmentRef mirrors the original schema's unused per-command segment list.
// Never populated by this system; kept only so RecognizeCommand's wire shape
// matches the upstream field set.
type SegmentRef struct {
	Index   int   `json:"index"`
	StartMS int64 `json:"start_ms"`
	EndMS   int64 `json:"end_ms"`
}

// RecognizeCommand asks the recognizer to transcribe one segment.
type RecognizeCommand struct {
	JobID     string       `json:"job_id"`
	InputPath string       `json:"input_path"`
	Index     *int         `json:"index,omitempty"`
	Language  *string      `json:"language,omitempty"`
	Segments  []SegmentRef `json:"segments,omitempty"`
	StartMS   int64        `json:"start_ms"`
	EndMS     int64        `json:"end_ms"`
}

// TranscodeCommand asks the transcoder to produce an HLS rendition of a job's cleaned audio.
type TranscodeCommand struct {
	JobID     string `json:"job_id"`
	InputPath string `json:"input_path"`
}

// PostProcessCommand asks the post-processor to align and finalize a job's transcript.
type PostProcessCommand struct {
	JobID string `json:"job_id"`
}

// CancelCommand asks the orchestrator to terminate a job. Worker tasks already
// in flight are not aborted; the orchestrator ignores their completion events.
type CancelCommand struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}
