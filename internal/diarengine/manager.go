// Package diarengine exposes speaker diarization behind a narrow interface.
// The concrete Manager here is a local, deterministic stand-in for a real
// model call (grounded on rishikanthc-Scriberr/internal/diarengine's
// "manager acquired once, injected" shape, minus the out-of-process model
// server) -- it exercises the worker harness's idempotence/ack/DLQ behavior
// end-to-end without a live diarization dependency.
package diarengine

import (
	"context"
	"sync"

	"github.com/tuan6100/audio-pipeline/internal/audio"
)

// Turn is one diarization turn: a speaker label over a global time range.
type Turn struct {
	Speaker string
	Start   float64
	End     float64
}

// Manager serializes diarization calls behind a single-slot semaphore, since
// a real diarization model is GPU-exclusive; horizontal scale is additional
// worker processes, not additional in-process concurrency.
type Manager struct {
	processor *audio.Processor
	jobMu     sync.Mutex
}

// NewManager builds a Manager backed by processor.
func NewManager(processor *audio.Processor) *Manager {
	return &Manager{processor: processor}
}

// Diarize returns the speaker turns spanning audioPath. The stand-in
// implementation emits a single turn covering the whole clip under a fixed
// speaker label -- a real implementation would replace this body only.
func (m *Manager) Diarize(ctx context.Context, audioPath string) ([]Turn, error) {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()

	info, err := m.processor.Probe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	return []Turn{
		{Speaker: "SPEAKER_00", Start: 0, End: info.Duration},
	}, nil
}
