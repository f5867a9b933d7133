package container

import (
	"context"

	"github.com/tuan6100/audio-pipeline/internal/audio"
	"github.com/tuan6100/audio-pipeline/internal/broker"
	"github.com/tuan6100/audio-pipeline/internal/config"
	"github.com/tuan6100/audio-pipeline/internal/logger"
	"github.com/tuan6100/audio-pipeline/internal/objectstore"
	"github.com/tuan6100/audio-pipeline/internal/store"
	"go.uber.org/zap"
)

// MockContainer is a container designed for testing. It allows easy
// overriding of dependencies with test doubles (fakes/stubs).
type MockContainer struct {
	*Container
	overrides map[string]interface{}
}

// NewMock creates a new mock container with no dependencies registered.
func NewMock() *MockContainer {
	return &MockContainer{
		Container: New(),
		overrides: make(map[string]interface{}),
	}
}

// WithMockConfig sets the config for testing.
func (m *MockContainer) WithMockConfig(cfg *config.Config) *MockContainer {
	m.SetConfig(cfg)
	return m
}

// WithMockLogger sets a test logger.
func (m *MockContainer) WithMockLogger(l *zap.Logger) *MockContainer {
	m.SetLogger(l)
	return m
}

// WithMockJobStore sets a test job store.
func (m *MockContainer) WithMockJobStore(s *store.Store) *MockContainer {
	m.SetJobStore(s)
	return m
}

// WithMockObjectStore sets a fake object store.
func (m *MockContainer) WithMockObjectStore(s objectstore.Store) *MockContainer {
	m.SetObjectStore(s)
	return m
}

// WithMockBrokerConnection sets a test broker connection.
func (m *MockContainer) WithMockBrokerConnection(conn *broker.Connection) *MockContainer {
	m.SetBrokerConnection(conn)
	return m
}

// WithMockProducer sets a fake producer.
func (m *MockContainer) WithMockProducer(p *broker.Producer) *MockContainer {
	m.SetProducer(p)
	return m
}

// WithMockConsumer sets a fake consumer.
func (m *MockContainer) WithMockConsumer(c *broker.Consumer) *MockContainer {
	m.SetConsumer(c)
	return m
}

// WithMockAudioProcessor sets a test audio processor.
func (m *MockContainer) WithMockAudioProcessor(p *audio.Processor) *MockContainer {
	m.SetAudioProcessor(p)
	return m
}

// Override sets a custom override for a dependency not modeled by Container's
// own fields (e.g. a narrowed interface a specific test needs).
func (m *MockContainer) Override(key string, value interface{}) *MockContainer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[key] = value
	return m
}

// GetOverride retrieves an override if set.
func (m *MockContainer) GetOverride(key string) (interface{}, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.overrides[key]
	return val, ok
}

// MinimalMock creates a mock container with only a logger registered, useful
// for isolated unit tests that don't touch Validate.
func MinimalMock() *MockContainer {
	mock := NewMock()
	mock.SetLogger(logger.Log)
	return mock
}

// Clean tears down a test container after tests complete.
func (m *MockContainer) Clean(ctx context.Context) error {
	return m.Cleanup(ctx)
}
