// Package events defines the wire shapes published to the orchestrator's
// worker_events exchange as each pipeline stage completes.
package events

// SpeakerTurn is one diarization turn: a speaker label over a time range.
type SpeakerTurn struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// FileUploadedEvent starts a job: the raw upload has landed in object storage.
type FileUploadedEvent struct {
	JobID       string `json:"job_id"`
	UserID      string `json:"user_id"`
	StoragePath string `json:"storage_path"`
}

// PreprocessCompletedEvent reports loudness-normalized 16kHz mono audio ready for fan-out.
type PreprocessCompletedEvent struct {
	JobID          string `json:"job_id"`
	CleanAudioPath string `json:"clean_audio_path"`
}

// SegmentCompletedEvent reports the segment boundaries computed for a job.
type SegmentCompletedEvent struct {
	JobID    string          `json:"job_id"`
	AudioPath string         `json:"audio_path"`
	Segments []SegmentBounds `json:"segments"`
}

// SegmentBounds is one segment's time range and object-store path.
type SegmentBounds struct {
	Index   int    `json:"index"`
	Path    string `json:"path"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// DiarizationCompletedEvent reports speaker turns over the whole clip.
type DiarizationCompletedEvent struct {
	JobID           string        `json:"job_id"`
	SpeakerSegments []SpeakerTurn `json:"speaker_segments"`
}

// EnhancementCompletedEvent reports one segment's denoising result.
type EnhancementCompletedEvent struct {
	JobID      string  `json:"job_id"`
	Index      int     `json:"index"`
	S3Path     string  `json:"s3_path"`
	SNR        float64 `json:"snr"`
	IsDenoised bool    `json:"is_denoised"`
	StartMS    int64   `json:"start_ms"`
	EndMS      int64   `json:"end_ms"`
}

// LanguageDetectionCompletedEvent reports one segment's detected language.
type LanguageDetectionCompletedEvent struct {
	JobID       string  `json:"job_id"`
	Index       int     `json:"index"`
	InputPath   string  `json:"input_path"`
	Language    string  `json:"language"`
	Probability float64 `json:"probability"`
	StartMS     int64   `json:"start_ms"`
	EndMS       int64   `json:"end_ms"`
}

// RecognitionCompletedEvent reports one segment's transcribed text.
type RecognitionCompletedEvent struct {
	JobID             string  `json:"job_id"`
	Index             int     `json:"index"`
	Text              string  `json:"text"`
	Confidence        float64 `json:"confidence"`
	StartMS           int64   `json:"start_ms"`
	EndMS             int64   `json:"end_ms"`
	TranscriptS3Path  *string `json:"transcript_s3_path,omitempty"`
}

// TranscodeCompletedEvent reports the HLS playlist path of a job's cleaned
// audio; the transcoder always sets Index to 0.
type TranscodeCompletedEvent struct {
	JobID   string `json:"job_id"`
	Index   int    `json:"index"`
	HLSPath string `json:"hls_path"`
}

// JobCompletedEvent is the terminal success event published by the post-processor.
type JobCompletedEvent struct {
	JobID        string  `json:"job_id"`
	MetadataPath string  `json:"metadata_path"`
	Status       string  `json:"status"`
	Error        *string `json:"error,omitempty"`
}

// JobFailedEvent is published when a job terminates due to an unrecoverable error.
type JobFailedEvent struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}

// JobCancelledEvent is published when a job terminates due to an operator/user cancel request.
type JobCancelledEvent struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason"`
}
