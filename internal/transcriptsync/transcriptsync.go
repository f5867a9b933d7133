// Package transcriptsync pushes an externally edited transcript back into
// object storage, keeping the same three-artifact shape the post-processor
// produces so every downstream reader sees one consistent document set.
package transcriptsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tuan6100/audio-pipeline/internal/objectstore"
)

// Segment is one edited transcript line submitted by the caller. Edits
// don't carry a speaker label back from the editor, so every synced
// segment is recorded as UNKNOWN -- matching the upstream edit-sync
// behavior this mirrors.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result reports what Sync wrote.
type Result struct {
	JobID         string   `json:"job_id"`
	SegmentsCount int      `json:"segments_count"`
	ProcessedAt   string   `json:"processed_at"`
	WrittenKeys   []string `json:"written_keys"`
}

// Service syncs edited transcripts into object storage.
type Service struct {
	Objects objectstore.Store
}

// New builds a Service backed by objects.
func New(objects objectstore.Store) *Service {
	return &Service{Objects: objects}
}

type transcriptLine struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// metadataDoc is read loosely (map-shaped) so an edit never has to round-trip
// every field postprocess.Metadata defines -- only results.transcript_aligned
// and processed_at are ever touched here.
type metadataDoc map[string]interface{}

// Sync merges segments into jobID's results/<job_id>/metadata.json, then
// rewrites transcript.txt and analysis/<job_id>/transcript_final.json to
// match. Writes happen in that fixed order; a failure partway through
// leaves whichever artifacts already landed unchanged on the server, but
// each individual write is atomic (object store temp-file-then-upload).
func (s *Service) Sync(ctx context.Context, jobID string, segments []Segment) (Result, error) {
	if jobID == "" {
		return Result{}, fmt.Errorf("transcriptsync: job_id is required")
	}

	metadataKey := fmt.Sprintf("results/%s/metadata.json", jobID)
	textKey := fmt.Sprintf("results/%s/transcript.txt", jobID)
	finalKey := fmt.Sprintf("analysis/%s/transcript_final.json", jobID)

	meta, err := s.readOrInitMetadata(ctx, jobID, metadataKey)
	if err != nil {
		return Result{}, err
	}

	lines := make([]transcriptLine, len(segments))
	for i, seg := range segments {
		lines[i] = transcriptLine{Start: seg.Start, End: seg.End, Text: seg.Text, Speaker: "UNKNOWN"}
	}

	processedAt := time.Now().UTC().Format(time.RFC3339)
	results, _ := meta["results"].(map[string]interface{})
	if results == nil {
		results = map[string]interface{}{}
	}
	results["transcript_aligned"] = lines
	meta["results"] = results
	meta["processed_at"] = processedAt

	if err := objectstore.PutJSON(ctx, s.Objects, metadataKey, meta); err != nil {
		return Result{}, fmt.Errorf("transcriptsync: write metadata.json: %w", err)
	}
	if err := s.Objects.PutBytes(ctx, textKey, []byte(renderText(jobID, lines)), "text/plain; charset=utf-8"); err != nil {
		return Result{}, fmt.Errorf("transcriptsync: write transcript.txt: %w", err)
	}
	if err := objectstore.PutJSON(ctx, s.Objects, finalKey, lines); err != nil {
		return Result{}, fmt.Errorf("transcriptsync: write transcript_final.json: %w", err)
	}

	return Result{
		JobID:         jobID,
		SegmentsCount: len(segments),
		ProcessedAt:   processedAt,
		WrittenKeys:   []string{metadataKey, textKey, finalKey},
	}, nil
}

func (s *Service) readOrInitMetadata(ctx context.Context, jobID, metadataKey string) (metadataDoc, error) {
	var meta metadataDoc
	err := s.Objects.ReadJSON(ctx, metadataKey, &meta)
	switch {
	case err == nil:
		return meta, nil
	case errors.Is(err, objectstore.ErrObjectNotFound):
		return metadataDoc{"job_id": jobID, "assets": map[string]interface{}{}, "results": map[string]interface{}{}}, nil
	default:
		return nil, fmt.Errorf("transcriptsync: read metadata.json: %w", err)
	}
}

func renderText(jobID string, lines []transcriptLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TRANSCRIPT FOR JOB: %s (edited)\n", jobID)
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "[%s] %s\n", formatTimestamp(l.Start), l.Text)
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
