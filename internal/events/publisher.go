// Package events publishes debate lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"ai-debate-graph-service/internal/observability/metrics"
)

// Publisher publishes debate events to separate Kafka topics.
type Publisher struct {
	writerCreated *kafka.Writer
	writerFailed  *kafka.Writer
	principal     string
	topicCreated  string
	topicFailed   string
	enabled       bool
	metrics       *metrics.Metrics
}

// Config holds Kafka publisher configuration.
type Config struct {
	Brokers      []string
	TopicCreated string
	TopicFailed  string
	Principal    string
	Enabled      bool
}

// New creates a Kafka event publisher. Without brokers, or when disabled,
// events are only logged. A nil m uses metrics.DefaultMetrics.
func New(cfg *Config, m *metrics.Metrics) *Publisher {
	if m == nil {
		m = metrics.DefaultMetrics
	}

	// Handle nil config case
	if cfg == nil {
		log.Info().Msg("Kafka disabled (nil config), using log-only mode")
		return &Publisher{
			enabled: false,
			metrics: m,
		}
	}

	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("Kafka disabled, using log-only mode")
		return &Publisher{
			principal:    cfg.Principal,
			topicCreated: cfg.TopicCreated,
			topicFailed:  cfg.TopicFailed,
			enabled:      false,
			metrics:      m,
		}
	}

	// Longer dial timeout for DNS resolution in Kubernetes
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafka.Transport{
		Dial: dialer.DialFunc,
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireOne,
			Transport:    transport,
		}
	}

	log.Info().
		Strs("brokers", cfg.Brokers).
		Str("topicCreated", cfg.TopicCreated).
		Str("topicFailed", cfg.TopicFailed).
		Str("principal", cfg.Principal).
		Msg("Kafka publisher initialized")

	return &Publisher{
		writerCreated: newWriter(cfg.TopicCreated),
		writerFailed:  newWriter(cfg.TopicFailed),
		principal:     cfg.Principal,
		topicCreated:  cfg.TopicCreated,
		topicFailed:   cfg.TopicFailed,
		enabled:       true,
		metrics:       m,
	}
}

// PublishCreated publishes a debate.created event keyed by run id.
func (p *Publisher) PublishCreated(ctx context.Context, event DebateCreated) error {
	event.EventType = TypeDebateCreated
	return p.publish(ctx, p.writerCreated, p.topicCreated, TypeDebateCreated, event.RunID, event)
}

// PublishFailed publishes a debate.failed event keyed by run id.
func (p *Publisher) PublishFailed(ctx context.Context, event DebateFailed) error {
	event.EventType = TypeDebateFailed
	return p.publish(ctx, p.writerFailed, p.topicFailed, TypeDebateFailed, event.RunID, event)
}

// publish is the internal method that writes to a specific Kafka writer.
func (p *Publisher) publish(ctx context.Context, writer *kafka.Writer, topic, eventType, key string, event any) error {
	start := time.Now()

	payload, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to marshal event")
		return err
	}

	log.Debug().
		Str("principal", p.principal).
		Str("topic", topic).
		Str("key", key).
		RawJSON("payload", payload).
		Msg("Publishing event")

	// If Kafka is disabled, just log
	if !p.enabled || writer == nil {
		p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventType)},
			{Key: "principal", Value: []byte(p.principal)},
		},
	}

	if err := writer.WriteMessages(ctx, msg); err != nil {
		log.Error().
			Err(err).
			Str("topic", topic).
			Str("key", key).
			Msg("Failed to write to Kafka")
		p.metrics.RecordKafkaPublish(topic, eventType, err, time.Since(start).Seconds())
		return err
	}

	p.metrics.RecordKafkaPublish(topic, eventType, nil, time.Since(start).Seconds())
	return nil
}

// Close closes both Kafka writers.
func (p *Publisher) Close() error {
	var err error
	if p.writerCreated != nil {
		if e := p.writerCreated.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing created writer")
			err = e
		}
	}
	if p.writerFailed != nil {
		if e := p.writerFailed.Close(); e != nil {
			log.Error().Err(e).Msg("Error closing failed writer")
			err = e
		}
	}
	return err
}
