package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tuan6100/audio-pipeline/internal/broker"
)

// Subscriber is the subset of *broker.Consumer the orchestrator needs.
type Subscriber interface {
	Subscribe(ctx context.Context, exchange, routingKey string, handler broker.HandlerFunc, opts ...broker.SubscribeOptions) error
}

// route binds one handler's decode-and-dispatch closure to an exchange/routing key.
type route struct {
	exchange   string
	routingKey string
	decode     func(ctx context.Context, body []byte) error
}

// Wire subscribes every Handlers method to its exchange and routing key.
// Blocks on the subscriber's own setup only; message delivery runs on the
// subscriber's background goroutines.
func (h *Handlers) Wire(ctx context.Context, sub Subscriber) error {
	routes := []route{
		{exchangeEvents, "file.uploaded", decodeEvent(h.HandleFileUploaded)},
		{exchangeEvents, "preprocess.done", decodeEvent(h.HandlePreprocessDone)},
		{exchangeEvents, "segment.done", decodeEvent(h.HandleSegmentDone)},
		{exchangeEvents, "diarization.done", decodeEvent(h.HandleDiarizationDone)},
		{exchangeEvents, "transcode.done", decodeEvent(h.HandleTranscodeDone)},
		{exchangeEvents, "enhancement.done", decodeEvent(h.HandleEnhancementDone)},
		{exchangeEvents, "lang_detect.done", decodeEvent(h.HandleLangDetectDone)},
		{exchangeEvents, "recognition.done", decodeEvent(h.HandleRecognitionDone)},
		{exchangeEvents, "job.finalized", decodeEvent(h.HandleJobFinalized)},
		{exchangeCommands, "cmd.cancel", decodeCommand(h.HandleCancel)},
		{exchangeCommands + ".dlq", "#", h.HandleDeadLetter},
	}

	for _, r := range routes {
		if err := sub.Subscribe(ctx, r.exchange, r.routingKey, r.decode); err != nil {
			return fmt.Errorf("subscribe %s/%s: %w", r.exchange, r.routingKey, err)
		}
	}
	return nil
}

func decodeEvent[T any](handle func(ctx context.Context, evt T) error) broker.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var evt T
		if err := json.Unmarshal(body, &evt); err != nil {
			return fmt.Errorf("decode event: %w", err)
		}
		return handle(ctx, evt)
	}
}

func decodeCommand[T any](handle func(ctx context.Context, cmd T) error) broker.HandlerFunc {
	return func(ctx context.Context, body []byte) error {
		var cmd T
		if err := json.Unmarshal(body, &cmd); err != nil {
			return fmt.Errorf("decode command: %w", err)
		}
		return handle(ctx, cmd)
	}
}
