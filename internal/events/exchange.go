package events

// ExchangeWorkerEvents is the topic exchange every stage-completion event is
// published and consumed on.
const ExchangeWorkerEvents = "worker_events"

// ExchangeTerminal is the topic exchange job_cancelled/job_failed terminal
// events are published on.
const ExchangeTerminal = "audio_events"
