// Package worker provides the generic run loop every stage binary
// (preprocessor, segmenter, diarizer, enhancer, langdetector, recognizer,
// transcoder) wires its own Compute closure into.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tuan6100/audio-pipeline/internal/broker"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"go.uber.org/zap"
)

// Compute runs one stage's computation over a raw command payload and
// returns the event to publish on success. Implementations are expected to
// be idempotent over (job_id, index): re-delivery of the same command must
// produce an equivalent event.
type Compute func(ctx context.Context, cmd json.RawMessage) (event any, err error)

// Subscriber is the subset of *broker.Consumer the harness needs, narrowed
// to an interface so tests can drive Run without a live AMQP broker.
type Subscriber interface {
	Subscribe(ctx context.Context, exchange, routingKey string, handler broker.HandlerFunc, opts ...broker.SubscribeOptions) error
}

// Publisher is the subset of *broker.Producer the harness needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body interface{}) error
}

// StageConfig names the exchange/routing keys a stage consumes and
// publishes on, and the computation that bridges them.
type StageConfig struct {
	ConsumeExchange   string
	ConsumeRoutingKey string
	PublishExchange   string
	PublishRoutingKey string
	MaxRetries        int
	Compute           Compute
}

// Harness wires a broker subscription to a Compute closure: consume,
// compute, publish the result event, ack/retry/DLQ per the broker's policy.
type Harness struct {
	Broker   Subscriber
	Producer Publisher
	Objects  objectstore.Store
	Logger   *zap.Logger
}

// Run subscribes to cfg.ConsumeExchange/ConsumeRoutingKey and blocks until
// ctx is cancelled, invoking cfg.Compute for every delivered command.
func (h *Harness) Run(ctx context.Context, cfg StageConfig) error {
	opts := broker.SubscribeOptions{MaxRetries: cfg.MaxRetries}

	handler := func(ctx context.Context, body []byte) error {
		start := time.Now()

		event, err := cfg.Compute(ctx, json.RawMessage(body))
		duration := time.Since(start)

		stage := cfg.ConsumeRoutingKey
		m := metrics.Get()
		m.StageDuration.WithLabelValues(stage).Observe(duration.Seconds())

		if err != nil {
			m.StageFailures.WithLabelValues(stage, "compute_error").Inc()
			h.Logger.Error("stage compute failed",
				zap.String("stage", stage),
				zap.Error(err),
			)
			return fmt.Errorf("%s: %w", stage, err)
		}

		if pubErr := h.Producer.Publish(ctx, cfg.PublishExchange, cfg.PublishRoutingKey, event); pubErr != nil {
			return fmt.Errorf("%s: publish result: %w", stage, pubErr)
		}
		return nil
	}

	return h.Broker.Subscribe(ctx, cfg.ConsumeExchange, cfg.ConsumeRoutingKey, handler, opts)
}
