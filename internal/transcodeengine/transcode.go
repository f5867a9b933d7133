// Package transcodeengine produces the streamable HLS rendition of the
// cleaned audio.
package transcodeengine

import (
	"context"
	"fmt"

	"github.com/tuan6100/audio-pipeline/internal/audio"
)

// Engine transcodes cleaned audio into an HLS playlist + segment set.
type Engine struct {
	processor *audio.Processor
}

// New builds an Engine backed by processor.
func New(processor *audio.Processor) *Engine {
	return &Engine{processor: processor}
}

// Run transcodes audioPath into outputDir, returning the playlist path.
func (e *Engine) Run(ctx context.Context, audioPath, outputDir string) (string, error) {
	playlistPath, err := e.processor.TranscodeHLS(ctx, audioPath, outputDir)
	if err != nil {
		return "", fmt.Errorf("transcode: %w", err)
	}
	return playlistPath, nil
}
