// Package postprocess builds a job's final aligned transcript from the
// per-segment artifacts the recognition and diarization stages leave in
// object storage, and writes the result the rest of the system reads back.
package postprocess

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tuan6100/audio-pipeline/internal/align"
	"github.com/tuan6100/audio-pipeline/internal/events"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"github.com/tuan6100/audio-pipeline/internal/pipeline"
	"github.com/tuan6100/audio-pipeline/internal/recognizeengine"
)

// alignGapMerge and alignTieBreak match the defaults internal/align itself
// uses; named here so the choice is visible at the post-processing call site.
const (
	alignGapMerge = 2 * time.Second
	alignTieBreak = 2 * time.Second
)

// Processor is a local stand-in for a separate alignment/finalization
// service: one process per job, with no state carried between runs.
type Processor struct {
	Objects objectstore.Store
}

// New builds a Processor backed by objects.
func New(objects objectstore.Store) *Processor {
	return &Processor{Objects: objects}
}

// TranscriptLine is one flattened, aligned line of a job's transcript.
type TranscriptLine struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker"`
}

// Assets points to a completed job's deliverables.
type Assets struct {
	Original string `json:"original"`
	HLS      string `json:"hls"`
	TextFile string `json:"text_file"`
}

// Results wraps the aligned transcript inside Metadata.
type Results struct {
	TranscriptAligned []TranscriptLine `json:"transcript_aligned"`
}

// Metadata is the canonical results/<job_id>/metadata.json shape: the
// document the transcript-sync API reads and merges edits into.
type Metadata struct {
	JobID       string  `json:"job_id"`
	Status      string  `json:"status"`
	ProcessedAt string  `json:"processed_at"`
	Assets      Assets  `json:"assets"`
	Results     Results `json:"results"`
}

// Run reads jobID's segment manifest, diarization turns, and per-chunk
// recognized words; aligns them into one global, speaker-attributed
// transcript; and writes results/<job_id>/metadata.json,
// results/<job_id>/transcript.txt, and analysis/<job_id>/transcript_final.json.
// It is safe to re-run: every write lands at a fixed key and overwrites
// whatever was there.
func (p *Processor) Run(ctx context.Context, jobID string) (events.JobCompletedEvent, error) {
	records, err := p.readManifest(ctx, jobID)
	if err != nil {
		return events.JobCompletedEvent{}, err
	}

	turns, err := p.readDiarization(ctx, jobID)
	if err != nil {
		return events.JobCompletedEvent{}, err
	}

	words, err := p.collectWords(ctx, records)
	if err != nil {
		return events.JobCompletedEvent{}, err
	}

	alignStart := time.Now()
	segments, fallbacks := align.Align(words, turns, align.Options{
		GapMergeThreshold: alignGapMerge,
		TieBreakWindow:    alignTieBreak,
	})
	app := metrics.GetApplication()
	app.AlignmentDuration.WithLabelValues().Observe(time.Since(alignStart).Seconds())
	if fallbacks > 0 {
		app.AlignmentFallbacks.WithLabelValues("nearest_boundary").Add(float64(fallbacks))
	}

	lines := make([]TranscriptLine, len(segments))
	for i, s := range segments {
		lines[i] = TranscriptLine{Start: s.Start, End: s.End, Text: s.Text, Speaker: s.Speaker}
	}

	metadataKey := fmt.Sprintf("results/%s/metadata.json", jobID)
	textKey := fmt.Sprintf("results/%s/transcript.txt", jobID)
	finalKey := fmt.Sprintf("analysis/%s/transcript_final.json", jobID)

	metadata := Metadata{
		JobID:       jobID,
		Status:      "COMPLETED",
		ProcessedAt: time.Now().UTC().Format(time.RFC3339),
		Assets: Assets{
			Original: fmt.Sprintf("raw/%s/", jobID),
			HLS:      fmt.Sprintf("hls/%s/playlist.m3u8", jobID),
			TextFile: textKey,
		},
		Results: Results{TranscriptAligned: lines},
	}

	if err := objectstore.PutJSON(ctx, p.Objects, metadataKey, metadata); err != nil {
		return events.JobCompletedEvent{}, fmt.Errorf("postprocess: write metadata.json: %w", err)
	}
	if err := p.Objects.PutBytes(ctx, textKey, []byte(renderTranscriptText(jobID, lines)), "text/plain; charset=utf-8"); err != nil {
		return events.JobCompletedEvent{}, fmt.Errorf("postprocess: write transcript.txt: %w", err)
	}
	if err := objectstore.PutJSON(ctx, p.Objects, finalKey, lines); err != nil {
		return events.JobCompletedEvent{}, fmt.Errorf("postprocess: write transcript_final.json: %w", err)
	}

	return events.JobCompletedEvent{JobID: jobID, MetadataPath: metadataKey, Status: "COMPLETED"}, nil
}

func (p *Processor) readManifest(ctx context.Context, jobID string) ([]pipeline.SegmentRecord, error) {
	key := fmt.Sprintf("analysis/%s/segments_manifest.json", jobID)
	var records []pipeline.SegmentRecord
	if err := p.Objects.ReadJSON(ctx, key, &records); err != nil {
		return nil, fmt.Errorf("postprocess: read segments_manifest.json: %w", err)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].StartMS < records[j].StartMS })
	return records, nil
}

func (p *Processor) readDiarization(ctx context.Context, jobID string) ([]align.Turn, error) {
	key := fmt.Sprintf("analysis/%s/diarization.json", jobID)
	var turns []events.SpeakerTurn
	if err := p.Objects.ReadJSON(ctx, key, &turns); err != nil {
		return nil, fmt.Errorf("postprocess: read diarization.json: %w", err)
	}
	out := make([]align.Turn, len(turns))
	for i, t := range turns {
		out[i] = align.Turn{Speaker: t.Speaker, Start: t.Start, End: t.End}
	}
	return out, nil
}

// collectWords downloads every chunk's recognized words and offsets them by
// the chunk's manifest start time, producing one global, time-ordered word
// list. The manifest is already sorted by start time, so concatenating in
// that order is enough -- no separate merge-sort of words is needed.
// Segments that produced no transcript (silence, a dropped chunk) are skipped.
func (p *Processor) collectWords(ctx context.Context, records []pipeline.SegmentRecord) ([]align.Word, error) {
	var words []align.Word
	for _, rec := range records {
		if rec.TranscriptS3Path == "" {
			continue
		}
		var chunkWords []recognizeengine.Word
		if err := p.Objects.ReadJSON(ctx, rec.TranscriptS3Path, &chunkWords); err != nil {
			return nil, fmt.Errorf("postprocess: read transcript %s: %w", rec.TranscriptS3Path, err)
		}
		offset := float64(rec.StartMS) / 1000.0
		for _, w := range chunkWords {
			words = append(words, align.Word{
				Word:  w.Word,
				Start: w.Start + offset,
				End:   w.End + offset,
			})
		}
	}
	return words, nil
}

func renderTranscriptText(jobID string, lines []TranscriptLine) string {
	var b strings.Builder
	fmt.Fprintf(&b, "TRANSCRIPT FOR JOB: %s\n", jobID)
	fmt.Fprintf(&b, "DATE: %s\n", time.Now().UTC().Format("2006-01-02 15:04:05"))
	b.WriteString(strings.Repeat("=", 50))
	b.WriteString("\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "[%s] %s: %s\n", formatTimestamp(l.Start), l.Speaker, l.Text)
	}
	return b.String()
}

// formatTimestamp renders seconds as mm:ss.
func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
