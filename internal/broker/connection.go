// Package broker adapts the pipeline's command/event traffic onto a topic-exchange
// AMQP broker: durable per-subscriber queues, prefetch=1, and a retry-then-dead-letter
// policy keyed on an x-retry header.
package broker

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"github.com/tuan6100/audio-pipeline/internal/logger"
)

// Connection wraps a robust AMQP connection and channel. Channel and
// NewChannel redial automatically when the underlying connection has closed;
// Producer and Consumer hold a *Connection and re-resolve the channel per call.
type Connection struct {
	url     string
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Dial connects to the broker and opens a channel with prefetch=1 QoS.
func Dial(url string) (*Connection, error) {
	c := &Connection{url: url}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) connect() error {
	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to dial amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open amqp channel: %w", err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set qos: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = ch
	c.mu.Unlock()

	logger.Log.Info("amqp connection established")
	return nil
}

// Channel returns the connection's shared channel, reconnecting first if the
// connection has dropped. Reserved for the Producer: a streadway/amqp
// channel is not safe for concurrent use, so anything that consumes
// (and may therefore republish for retry or dead-letter from its own
// goroutine) must call NewChannel instead rather than share this one.
func (c *Connection) Channel() (*amqp.Channel, error) {
	c.mu.Lock()
	closed := c.conn == nil || c.conn.IsClosed()
	c.mu.Unlock()

	if closed {
		logger.Log.Warn("amqp connection closed, reconnecting")
		if err := c.connect(); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel, nil
}

// NewChannel opens a fresh, independently-owned channel on the underlying
// connection, reconnecting first if needed. Each Consumer subscription gets
// its own channel from this so that one subscription's retry/dead-letter
// republish can never race another subscription's (or the Producer's)
// publish on a shared channel.
func (c *Connection) NewChannel() (*amqp.Channel, error) {
	c.mu.Lock()
	closed := c.conn == nil || c.conn.IsClosed()
	c.mu.Unlock()

	if closed {
		logger.Log.Warn("amqp connection closed, reconnecting")
		if err := c.connect(); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open amqp channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("failed to set qos: %w", err)
	}
	return ch, nil
}

// Close shuts down the channel and connection.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func declareTopicExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, amqp.ExchangeTopic, true, false, false, false, nil)
}

func sanitizeRoutingKey(routingKey string) string {
	out := make([]rune, 0, len(routingKey))
	for _, r := range routingKey {
		switch r {
		case '.':
			out = append(out, '_')
		case '*':
			out = append(out, []rune("all")...)
		case '#':
			out = append(out, []rune("any")...)
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func withRetryHeader(headers amqp.Table, retry int) amqp.Table {
	h := amqp.Table{}
	for k, v := range headers {
		h[k] = v
	}
	h["x-retry"] = retry
	return h
}

func retryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers["x-retry"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}

