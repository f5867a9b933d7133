// Package container provides dependency injection management for the audio
// pipeline's binaries. It consolidates every process's dependencies behind a
// single fluent-setter type and provides type-safe access to them.
package container

import (
	"context"
	"sync"

	"github.com/tuan6100/audio-pipeline/internal/audio"
	"github.com/tuan6100/audio-pipeline/internal/broker"
	"github.com/tuan6100/audio-pipeline/internal/config"
	"github.com/tuan6100/audio-pipeline/internal/logger"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"github.com/tuan6100/audio-pipeline/internal/store"
	"go.uber.org/zap"
)

// Container holds every dependency a pipeline binary (orchestrator, a stage
// worker, or the HTTP server) might need and provides type-safe access. Each
// cmd/ entrypoint populates only the fields its own role uses; Validate is
// told which ones are required.
type Container struct {
	cfg    *config.Config
	lg     *zap.Logger
	redis  *store.RedisClient
	jobs   *store.Store
	objs   objectstore.Store
	conn   *broker.Connection
	prod   *broker.Producer
	cons   *broker.Consumer
	audio  *audio.Processor

	cleanupFuncs []func(context.Context) error
	mu           sync.RWMutex
}

// New creates a new empty container. Services are registered with Set*/With*
// methods.
func New() *Container {
	return &Container{
		cleanupFuncs: make([]func(context.Context) error, 0),
	}
}

// SetConfig registers the loaded configuration.
func (c *Container) SetConfig(cfg *config.Config) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	return c
}

// Config returns the loaded configuration.
func (c *Container) Config() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// SetLogger registers the logger.
func (c *Container) SetLogger(l *zap.Logger) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lg = l
	return c
}

// Logger returns the logger instance, falling back to the package-global
// logger if none has been registered.
func (c *Container) Logger() *zap.Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lg == nil {
		return logger.Log
	}
	return c.lg
}

// SetRedis registers the low-level Redis client.
func (c *Container) SetRedis(r *store.RedisClient) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.redis = r
	return c
}

// Redis returns the low-level Redis client.
func (c *Container) Redis() *store.RedisClient {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.redis
}

// SetJobStore registers the job state store.
func (c *Container) SetJobStore(s *store.Store) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobs = s
	return c
}

// JobStore returns the job state store.
func (c *Container) JobStore() *store.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.jobs
}

// SetObjectStore registers the object store.
func (c *Container) SetObjectStore(s objectstore.Store) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objs = s
	return c
}

// ObjectStore returns the object store.
func (c *Container) ObjectStore() objectstore.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.objs
}

// SetBrokerConnection registers the AMQP connection.
func (c *Container) SetBrokerConnection(conn *broker.Connection) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	return c
}

// BrokerConnection returns the AMQP connection.
func (c *Container) BrokerConnection() *broker.Connection {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}

// SetProducer registers the broker producer.
func (c *Container) SetProducer(p *broker.Producer) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prod = p
	return c
}

// Producer returns the broker producer.
func (c *Container) Producer() *broker.Producer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prod
}

// SetConsumer registers the broker consumer.
func (c *Container) SetConsumer(cons *broker.Consumer) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cons = cons
	return c
}

// Consumer returns the broker consumer.
func (c *Container) Consumer() *broker.Consumer {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cons
}

// SetAudioProcessor registers the ffmpeg/ffprobe processor.
func (c *Container) SetAudioProcessor(p *audio.Processor) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.audio = p
	return c
}

// AudioProcessor returns the ffmpeg/ffprobe processor.
func (c *Container) AudioProcessor() *audio.Processor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.audio
}

// OnCleanup registers a cleanup function to be called during shutdown.
// Cleanup functions run in LIFO order (last registered, first cleaned up),
// so dependents are torn down before what they depend on.
func (c *Container) OnCleanup(fn func(context.Context) error) *Container {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleanupFuncs = append(c.cleanupFuncs, fn)
	return c
}

// Cleanup runs every registered cleanup function in reverse registration
// order, logging but not stopping on individual failures. It always
// returns nil.
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	fns := make([]func(context.Context) error, len(c.cleanupFuncs))
	copy(fns, c.cleanupFuncs)
	lg := c.logger()
	c.mu.Unlock()

	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](ctx); err != nil {
			lg.Error("cleanup function failed", zap.Int("index", i), zap.Error(err))
		}
	}
	return nil
}

func (c *Container) logger() *zap.Logger {
	if c.lg == nil {
		return logger.Log
	}
	return c.lg
}

// Role names the set of dependencies a binary needs present for Validate.
type Role string

const (
	// RoleOrchestrator requires the job store, broker, object store, and producer.
	RoleOrchestrator Role = "orchestrator"
	// RoleWorker requires the broker, object store, and audio processor.
	RoleWorker Role = "worker"
	// RoleHTTPServer requires the config, job store, and object store only.
	RoleHTTPServer Role = "http_server"
)

// Validate checks that the dependencies required for role are registered.
func (c *Container) Validate(role Role) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var missing []string
	require := func(ok bool, name string) {
		if !ok {
			missing = append(missing, name)
		}
	}

	require(c.cfg != nil, "config")
	require(c.objs != nil, "object store")

	switch role {
	case RoleOrchestrator:
		require(c.jobs != nil, "job store")
		require(c.prod != nil, "broker producer")
		require(c.cons != nil, "broker consumer")
	case RoleWorker:
		require(c.prod != nil, "broker producer")
		require(c.cons != nil, "broker consumer")
		require(c.audio != nil, "audio processor")
	case RoleHTTPServer:
		require(c.jobs != nil, "job store")
	}

	if len(missing) > 0 {
		return NewInitializationError("missing required dependencies for "+string(role), missing)
	}
	return nil
}

// WithConfig is a fluent setter for Config.
func (c *Container) WithConfig(cfg *config.Config) *Container { return c.SetConfig(cfg) }

// WithLogger is a fluent setter for Logger.
func (c *Container) WithLogger(l *zap.Logger) *Container { return c.SetLogger(l) }

// WithRedis is a fluent setter for Redis.
func (c *Container) WithRedis(r *store.RedisClient) *Container { return c.SetRedis(r) }

// WithJobStore is a fluent setter for JobStore.
func (c *Container) WithJobStore(s *store.Store) *Container { return c.SetJobStore(s) }

// WithObjectStore is a fluent setter for ObjectStore.
func (c *Container) WithObjectStore(s objectstore.Store) *Container { return c.SetObjectStore(s) }

// WithBrokerConnection is a fluent setter for BrokerConnection.
func (c *Container) WithBrokerConnection(conn *broker.Connection) *Container {
	return c.SetBrokerConnection(conn)
}

// WithProducer is a fluent setter for Producer.
func (c *Container) WithProducer(p *broker.Producer) *Container { return c.SetProducer(p) }

// WithConsumer is a fluent setter for Consumer.
func (c *Container) WithConsumer(cons *broker.Consumer) *Container { return c.SetConsumer(cons) }

// WithAudioProcessor is a fluent setter for AudioProcessor.
func (c *Container) WithAudioProcessor(p *audio.Processor) *Container {
	return c.SetAudioProcessor(p)
}
