package broker

import (
	"context"
	"fmt"

	"github.com/streadway/amqp"
	"github.com/tuan6100/audio-pipeline/internal/logger"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
	"go.uber.org/zap"
)

// HandlerFunc processes one message body. Returning an error triggers the
// retry-then-dead-letter policy; returning nil acks the message.
type HandlerFunc func(ctx context.Context, body []byte) error

// SubscribeOptions configures retry behavior for one subscription.
type SubscribeOptions struct {
	MaxRetries int
}

const defaultMaxRetries = 3

// Consumer binds a service's queues to broker exchanges and dispatches
// incoming messages to handlers with prefetch=1 and at-least-once delivery.
type Consumer struct {
	conn        *Connection
	serviceName string
}

// NewConsumer creates a Consumer identified by serviceName, used to namespace
// its durable queues.
func NewConsumer(conn *Connection, serviceName string) *Consumer {
	return &Consumer{conn: conn, serviceName: serviceName}
}

// Subscribe declares exchange and exchange.dlq, binds a per-service durable
// queue (and parallel DLQ queue) to routingKey, and consumes messages on a
// background goroutine until ctx is cancelled.
func (c *Consumer) Subscribe(ctx context.Context, exchange, routingKey string, handler HandlerFunc, opts ...SubscribeOptions) error {
	maxRetries := defaultMaxRetries
	if len(opts) > 0 && opts[0].MaxRetries > 0 {
		maxRetries = opts[0].MaxRetries
	}

	// A dedicated channel per subscription: consumeLoop republishes on ch for
	// retry and dead-letter, and streadway/amqp channels aren't safe for
	// concurrent use, so this can't share the Producer's channel (or another
	// subscription's).
	ch, err := c.conn.NewChannel()
	if err != nil {
		return err
	}

	dlqExchange := exchange + ".dlq"
	if err := declareTopicExchange(ch, exchange); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if err := declareTopicExchange(ch, dlqExchange); err != nil {
		return fmt.Errorf("failed to declare dlq exchange %s: %w", dlqExchange, err)
	}

	safeKey := sanitizeRoutingKey(routingKey)
	queueName := fmt.Sprintf("%s.%s.%s.queue", c.serviceName, exchange, safeKey)
	dlqQueueName := fmt.Sprintf("%s.%s.%s.queue", c.serviceName, dlqExchange, safeKey)

	queue, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}
	if err := ch.QueueBind(queue.Name, routingKey, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", queueName, err)
	}

	dlqQueue, err := ch.QueueDeclare(dlqQueueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to declare dlq queue %s: %w", dlqQueueName, err)
	}
	if err := ch.QueueBind(dlqQueue.Name, routingKey, dlqExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind dlq queue %s: %w", dlqQueueName, err)
	}

	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to start consuming %s: %w", queue.Name, err)
	}

	logger.Log.Info("subscribed",
		zap.String("queue", queue.Name),
		zap.String("exchange", exchange),
		zap.String("routing_key", routingKey),
	)

	go c.consumeLoop(ctx, ch, exchange, dlqExchange, routingKey, maxRetries, deliveries, handler)
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, ch *amqp.Channel, exchange, dlqExchange, routingKey string, maxRetries int, deliveries <-chan amqp.Delivery, handler HandlerFunc) {
	m := metrics.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}

			err := handler(ctx, d.Body)
			if err == nil {
				d.Ack(false)
				m.BrokerConsumedTotal.WithLabelValues(exchange, routingKey, "success").Inc()
				continue
			}

			logger.Log.Error("handler failed",
				zap.String("queue", exchange),
				zap.String("routing_key", routingKey),
				zap.Error(err),
			)

			retries := retryCount(d.Headers)
			if retries < maxRetries {
				headers := withRetryHeader(d.Headers, retries+1)
				pubErr := ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
					ContentType:  d.ContentType,
					DeliveryMode: amqp.Persistent,
					Headers:      headers,
					Body:         d.Body,
				})
				if pubErr != nil {
					logger.Log.Error("failed to republish for retry", zap.Error(pubErr))
					d.Reject(true)
					continue
				}
				m.BrokerRetriedTotal.WithLabelValues(exchange, routingKey).Inc()
			} else {
				headers := withRetryHeader(d.Headers, retries)
				pubErr := ch.Publish(dlqExchange, routingKey, false, false, amqp.Publishing{
					ContentType:  d.ContentType,
					DeliveryMode: amqp.Persistent,
					Headers:      headers,
					Body:         d.Body,
				})
				if pubErr != nil {
					logger.Log.Error("failed to publish to dead letter exchange", zap.Error(pubErr))
					d.Reject(true)
					continue
				}
				m.BrokerDeadLetterTotal.WithLabelValues(exchange, routingKey).Inc()
			}
			m.BrokerConsumedTotal.WithLabelValues(exchange, routingKey, "failed").Inc()
			d.Ack(false)
		}
	}
}
