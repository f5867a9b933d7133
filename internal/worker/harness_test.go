package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tuan6100/audio-pipeline/internal/broker"
	"go.uber.org/zap"
)

type fakeSubscriber struct {
	exchange   string
	routingKey string
	handler    broker.HandlerFunc
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, exchange, routingKey string, handler broker.HandlerFunc, opts ...broker.SubscribeOptions) error {
	f.exchange = exchange
	f.routingKey = routingKey
	f.handler = handler
	return nil
}

type fakePublisher struct {
	exchange   string
	routingKey string
	body       interface{}
	err        error
}

func (f *fakePublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	f.exchange = exchange
	f.routingKey = routingKey
	f.body = body
	return f.err
}

func TestHarness_Run_SubscribesWithConfiguredRoute(t *testing.T) {
	sub := &fakeSubscriber{}
	pub := &fakePublisher{}
	h := &Harness{Broker: sub, Producer: pub, Logger: zap.NewNop()}

	err := h.Run(context.Background(), StageConfig{
		ConsumeExchange:   "audio_ops",
		ConsumeRoutingKey: "cmd.preprocess",
		PublishExchange:   "worker_events",
		PublishRoutingKey: "preprocess.done",
		Compute: func(ctx context.Context, cmd json.RawMessage) (any, error) {
			return map[string]string{"ok": "true"}, nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "audio_ops", sub.exchange)
	assert.Equal(t, "cmd.preprocess", sub.routingKey)
	require.NotNil(t, sub.handler)
}

func TestHarness_Handler_PublishesComputeResultOnSuccess(t *testing.T) {
	sub := &fakeSubscriber{}
	pub := &fakePublisher{}
	h := &Harness{Broker: sub, Producer: pub, Logger: zap.NewNop()}

	type event struct {
		JobID string `json:"job_id"`
	}

	err := h.Run(context.Background(), StageConfig{
		ConsumeExchange:   "audio_ops",
		ConsumeRoutingKey: "cmd.preprocess",
		PublishExchange:   "worker_events",
		PublishRoutingKey: "preprocess.done",
		Compute: func(ctx context.Context, cmd json.RawMessage) (any, error) {
			return event{JobID: "job-1"}, nil
		},
	})
	require.NoError(t, err)

	handlerErr := sub.handler(context.Background(), []byte(`{}`))

	assert.NoError(t, handlerErr)
	assert.Equal(t, "worker_events", pub.exchange)
	assert.Equal(t, "preprocess.done", pub.routingKey)
	assert.Equal(t, event{JobID: "job-1"}, pub.body)
}

func TestHarness_Handler_ReturnsErrorOnComputeFailure(t *testing.T) {
	sub := &fakeSubscriber{}
	pub := &fakePublisher{}
	h := &Harness{Broker: sub, Producer: pub, Logger: zap.NewNop()}

	computeErr := errors.New("boom")
	err := h.Run(context.Background(), StageConfig{
		ConsumeExchange:   "audio_ops",
		ConsumeRoutingKey: "cmd.preprocess",
		PublishExchange:   "worker_events",
		PublishRoutingKey: "preprocess.done",
		Compute: func(ctx context.Context, cmd json.RawMessage) (any, error) {
			return nil, computeErr
		},
	})
	require.NoError(t, err)

	handlerErr := sub.handler(context.Background(), []byte(`{}`))

	require.Error(t, handlerErr)
	assert.ErrorIs(t, handlerErr, computeErr)
	assert.Nil(t, pub.body)
}

func TestHarness_Handler_ReturnsErrorWhenPublishFails(t *testing.T) {
	sub := &fakeSubscriber{}
	pubErr := errors.New("publish failed")
	pub := &fakePublisher{err: pubErr}
	h := &Harness{Broker: sub, Producer: pub, Logger: zap.NewNop()}

	err := h.Run(context.Background(), StageConfig{
		ConsumeExchange:   "audio_ops",
		ConsumeRoutingKey: "cmd.preprocess",
		PublishExchange:   "worker_events",
		PublishRoutingKey: "preprocess.done",
		Compute: func(ctx context.Context, cmd json.RawMessage) (any, error) {
			return map[string]string{}, nil
		},
	})
	require.NoError(t, err)

	handlerErr := sub.handler(context.Background(), []byte(`{}`))

	require.Error(t, handlerErr)
	assert.ErrorIs(t, handlerErr, pubErr)
}
