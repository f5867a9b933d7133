// Package main is the root of the audio pipeline module. The module has no
// binary of its own at the root; each process is its own cmd/ entrypoint:
//
//   - cmd/server: the external HTTP surface (job progress stream, transcript
//     edit sync)
//   - cmd/orchestrator: the job state machine driving fan-out/fan-in across
//     every worker stage
//   - cmd/preprocessor, cmd/segmenter, cmd/diarizer, cmd/enhancer,
//     cmd/langdetector, cmd/recognizer, cmd/transcoder: one stage worker
//     each, wiring internal/worker.Harness to its stage engine
//   - cmd/postprocessor: aligns per-chunk transcripts against speaker turns
//     and writes the job's final transcript
//
// Shared logic lives under internal/: event and command wire shapes
// (internal/events, internal/commands), the broker and object store
// adapters (internal/broker, internal/objectstore), job state
// (internal/store), the stage engines, and the alignment algorithm
// (internal/align).
//
// See the individual package documentation for detailed reference.
package main
