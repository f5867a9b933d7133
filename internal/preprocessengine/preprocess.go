// Package preprocessengine normalizes a raw upload into the clean,
// consistently-formatted audio the rest of the pipeline operates on.
package preprocessengine

import (
	"context"
	"fmt"

	"github.com/tuan6100/audio-pipeline/internal/audio"
)

// Engine normalizes loudness and resamples to the pipeline's working format.
type Engine struct {
	processor *audio.Processor
}

// New builds an Engine backed by processor.
func New(processor *audio.Processor) *Engine {
	return &Engine{processor: processor}
}

// Result is the outcome of preprocessing one upload.
type Result struct {
	CleanPath  string
	DurationMS int64
}

// Run normalizes inputPath and reports the resulting duration. It is
// idempotent over its input: calling it twice on the same file produces
// equivalent output (new temp path each time, same content).
func (e *Engine) Run(ctx context.Context, inputPath string) (*Result, error) {
	cleanPath, err := e.processor.Normalize(ctx, inputPath)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	info, err := e.processor.Probe(ctx, cleanPath)
	if err != nil {
		return nil, fmt.Errorf("preprocess: probe clean audio: %w", err)
	}

	return &Result{
		CleanPath:  cleanPath,
		DurationMS: int64(info.Duration * 1000),
	}, nil
}
