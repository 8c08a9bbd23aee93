package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/wms-platform/outbound-service/internal/domain"
	"github.com/wms-platform/outbound-service/pkg/logging"
	"github.com/wms-platform/outbound-service/pkg/metrics"
)

// Topics per event type
const (
	TopicTaskDispatched  = "wms.outbound.tasks"
	TopicPackageVerified = "wms.outbound.verifications"
)

// Config holds the Kafka producer configuration
type Config struct {
	Brokers      []string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Source       string
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Brokers:      []string{"localhost:9092"},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: 1,
		Source:       "outbound-service",
	}
}

// EventPublisher pushes business events to Kafka. Implements
// domain.EventPublisher. Publishing is best effort; callers log and carry on
// when it fails.
type EventPublisher struct {
	config  *Config
	metrics *metrics.Metrics
	logger  *logging.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewEventPublisher creates a new EventPublisher
func NewEventPublisher(config *Config, m *metrics.Metrics, logger *logging.Logger) *EventPublisher {
	return &EventPublisher{
		config:  config,
		metrics: m,
		logger:  logger.WithComponent("kafka-publisher"),
		writers: make(map[string]*kafka.Writer),
	}
}

// Publish encodes the event as JSON and writes it to the event type's topic
func (p *EventPublisher) Publish(ctx context.Context, event domain.BusinessEvent) error {
	topic, err := topicFor(event.EventType())
	if err != nil {
		return err
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	now := time.Now()
	msg := kafka.Message{
		Key:   []byte(event.Subject()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(event.EventType())},
			{Key: "source", Value: []byte(p.config.Source)},
			{Key: "id", Value: []byte(uuid.NewString())},
			{Key: "time", Value: []byte(now.Format(time.RFC3339))},
			{Key: "content-type", Value: []byte("application/json")},
		},
		Time: now,
	}

	err = p.getWriter(topic).WriteMessages(ctx, msg)
	if p.metrics != nil {
		p.metrics.RecordEventPublished(topic, err == nil)
	}
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Close shuts down all topic writers
func (p *EventPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close writer for %s: %w", topic, err)
		}
		delete(p.writers, topic)
	}
	return firstErr
}

func (p *EventPublisher) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, exists := p.writers[topic]; exists {
		return writer
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(p.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    p.config.BatchSize,
		BatchTimeout: p.config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(p.config.RequiredAcks),
		Async:        false,
	}
	p.writers[topic] = writer
	return writer
}

func topicFor(eventType string) (string, error) {
	switch eventType {
	case domain.EventTypeTaskDispatched:
		return TopicTaskDispatched, nil
	case domain.EventTypePackageVerified:
		return TopicPackageVerified, nil
	default:
		return "", fmt.Errorf("no topic mapped for event type %q", eventType)
	}
}

var _ domain.EventPublisher = (*EventPublisher)(nil)
