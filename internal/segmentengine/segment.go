// Package segmentengine splits cleaned audio into non-silent chunks bounded
// to 60 seconds each, the unit the rest of the pipeline fans out over.
package segmentengine

import (
	"context"
	"fmt"

	"github.com/tuan6100/audio-pipeline/internal/audio"
)

const (
	maxChunkMS     = 60_000
	silenceNoiseDB = -35.0
	silenceMinSec  = 0.5
)

// Engine detects silence gaps and slices cleaned audio into bounded chunks.
type Engine struct {
	processor *audio.Processor
}

// New builds an Engine backed by processor.
func New(processor *audio.Processor) *Engine {
	return &Engine{processor: processor}
}

// Bounds is one chunk's time range, in milliseconds from the start of the
// cleaned audio.
type Bounds struct {
	Index   int
	StartMS int64
	EndMS   int64
}

// Run detects silence in audioPath and returns the non-silent chunk
// boundaries, each clamped to at most 60s.
func (e *Engine) Run(ctx context.Context, audioPath string) ([]Bounds, error) {
	info, err := e.processor.Probe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("segment: probe: %w", err)
	}
	totalMS := int64(info.Duration * 1000)
	if totalMS <= 0 {
		return nil, fmt.Errorf("segment: audio has zero duration")
	}

	silences, err := e.processor.DetectSilences(ctx, audioPath, silenceNoiseDB, silenceMinSec)
	if err != nil {
		return nil, fmt.Errorf("segment: detect silences: %w", err)
	}

	nonSilent := invertRanges(silences, totalMS)
	return capBounds(nonSilent), nil
}

// invertRanges turns a sorted list of silent [start,end] second ranges into
// the complementary non-silent millisecond ranges spanning [0, totalMS].
func invertRanges(silences []audio.SilenceRange, totalMS int64) []Bounds {
	var out []Bounds
	cursor := int64(0)
	for _, s := range silences {
		startMS := int64(s.Start * 1000)
		endMS := int64(s.End * 1000)
		if startMS > cursor {
			out = append(out, Bounds{StartMS: cursor, EndMS: startMS})
		}
		if endMS > cursor {
			cursor = endMS
		}
	}
	if cursor < totalMS {
		out = append(out, Bounds{StartMS: cursor, EndMS: totalMS})
	}
	if len(out) == 0 {
		out = append(out, Bounds{StartMS: 0, EndMS: totalMS})
	}
	return out
}

// capBounds splits any range longer than maxChunkMS into consecutive
// sub-chunks and assigns sequential indices.
func capBounds(ranges []Bounds) []Bounds {
	out := make([]Bounds, 0, len(ranges))
	index := 0
	for _, r := range ranges {
		start := r.StartMS
		for start < r.EndMS {
			end := start + maxChunkMS
			if end > r.EndMS {
				end = r.EndMS
			}
			out = append(out, Bounds{Index: index, StartMS: start, EndMS: end})
			index++
			start = end
		}
	}
	return out
}
