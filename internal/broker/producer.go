package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"github.com/tuan6100/audio-pipeline/internal/metrics"
)

// Producer publishes commands and events onto declared topic exchanges.
type Producer struct {
	conn *Connection

	mu        sync.Mutex
	declared  map[string]bool
}

// NewProducer wraps a Connection for publishing.
func NewProducer(conn *Connection) *Producer {
	return &Producer{conn: conn, declared: make(map[string]bool)}
}

// Publish JSON-encodes body and publishes it as a persistent message to
// exchange/routingKey, declaring the exchange on first use.
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal message for %s/%s: %w", exchange, routingKey, err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}

	if err := p.ensureExchange(ch, exchange); err != nil {
		return err
	}

	err = ch.Publish(exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	})

	m := metrics.Get()
	if err != nil {
		m.ErrorsTotal.WithLabelValues("publish_failed", "broker").Inc()
		return fmt.Errorf("failed to publish to %s/%s: %w", exchange, routingKey, err)
	}
	m.BrokerPublishedTotal.WithLabelValues(exchange, routingKey).Inc()
	return nil
}

func (p *Producer) ensureExchange(ch *amqp.Channel, exchange string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.declared[exchange] {
		return nil
	}
	if err := declareTopicExchange(ch, exchange); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	p.declared[exchange] = true
	return nil
}
