// Package recognizeengine exposes speech recognition behind a narrow
// interface. The concrete Manager here is a local, deterministic stand-in
// (grounded on rishikanthc-Scriberr/internal/asrengine's "manager acquired
// once, injected" shape, minus the out-of-process model server) for a real
// ASR model call -- it produces word-level timestamps so the alignment and
// post-processing stages have real data to operate on in tests.
package recognizeengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/tuan6100/audio-pipeline/internal/audio"
)

// Word is one recognized token with a chunk-local time range, in seconds.
type Word struct {
	Word  string
	Start float64
	End   float64
}

// Result is the outcome of recognizing one segment.
type Result struct {
	Text       string
	Confidence float64
	Words      []Word
}

// wordsPerSecond is the stand-in's fixed speaking rate used to synthesize
// evenly-spaced placeholder words across a segment's duration.
const wordsPerSecond = 2.5

// Manager serializes recognition calls behind a single-slot semaphore,
// since a real ASR model is GPU-exclusive; horizontal scale is additional
// worker processes, not additional in-process concurrency.
type Manager struct {
	processor *audio.Processor
	jobMu     sync.Mutex
}

// NewManager builds a Manager backed by processor.
func NewManager(processor *audio.Processor) *Manager {
	return &Manager{processor: processor}
}

// Recognize transcribes audioPath, returning chunk-local word timestamps.
func (m *Manager) Recognize(ctx context.Context, audioPath string) (*Result, error) {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()

	info, err := m.processor.Probe(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("recognize: probe: %w", err)
	}

	words := synthesizeWords(info.Duration)
	text := joinWords(words)

	return &Result{
		Text:       text,
		Confidence: 0.90,
		Words:      words,
	}, nil
}

func synthesizeWords(durationSec float64) []Word {
	if durationSec <= 0 {
		return nil
	}
	count := int(durationSec * wordsPerSecond)
	if count < 1 {
		count = 1
	}
	step := durationSec / float64(count)

	words := make([]Word, count)
	for i := 0; i < count; i++ {
		words[i] = Word{
			Word:  fmt.Sprintf("word%d", i+1),
			Start: float64(i) * step,
			End:   float64(i+1) * step,
		}
	}
	return words
}

func joinWords(words []Word) string {
	text := ""
	for i, w := range words {
		if i > 0 {
			text += " "
		}
		text += w.Word
	}
	return text
}
