// Package langdetectengine exposes spoken-language identification behind a
// narrow interface. The concrete Engine here is a local, deterministic
// stand-in (grounded on original_source's VoxLinguaEngine.get_instance()
// singleton shape) for a real model call.
package langdetectengine

import (
	"context"
	"sync"
)

// Result is one segment's detected language.
type Result struct {
	Language    string
	Probability float64
}

// Engine detects the spoken language of a local audio file. A process holds
// one Engine, acquired once via Default and injected into the worker
// harness, matching the "manager acquired once, injected" pattern used by
// the other stage engines.
type Engine struct {
	defaultLanguage string
}

var (
	once    sync.Once
	shared  *Engine
)

// Default returns the process-wide Engine, constructing it on first use.
func Default() *Engine {
	once.Do(func() {
		shared = New("en")
	})
	return shared
}

// New builds an Engine that reports defaultLanguage for every input -- the
// stand-in behavior a real model call would replace.
func New(defaultLanguage string) *Engine {
	return &Engine{defaultLanguage: defaultLanguage}
}

// Detect returns the spoken language of audioPath.
func (e *Engine) Detect(ctx context.Context, audioPath string) (*Result, error) {
	return &Result{Language: e.defaultLanguage, Probability: 0.99}, nil
}
