package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"diabetes-risk/internal/metrics"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

const batchTimeout = 50 * time.Millisecond

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Brokers []string
	// Async writes return immediately; delivery errors surface through
	// metrics and the log only
	Async bool
	Log   *logger.Logger
}

// Producer publishes JSON prediction events, one writer per topic.
// Messages are hashed by key so every event for a prediction lands on the
// same partition.
type Producer struct {
	cfg ProducerConfig
	log *logger.Logger

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	closed  bool
}

func NewProducer(cfg ProducerConfig) *Producer {
	log := cfg.Log
	if log == nil {
		log = logger.Get()
	}
	return &Producer{
		cfg:     cfg,
		log:     log.With("component", "kafka_producer"),
		writers: make(map[string]*kafka.Writer),
	}
}

func (p *Producer) writer(topic string) (*kafka.Writer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, errors.Wrap(errors.ErrUnavailable, "kafka producer closed")
	}
	if w, ok := p.writers[topic]; ok {
		return w, nil
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(p.cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        p.cfg.Async,
		BatchTimeout: batchTimeout,
		Completion: func(messages []kafka.Message, err error) {
			for range messages {
				metrics.RecordKafkaMessage(topic, err)
			}
			if err != nil {
				p.log.Warnw("Kafka delivery failed", "topic", topic, "messages", len(messages), "error", err)
			}
		},
	}
	p.writers[topic] = w
	return w, nil
}

// Publish encodes event as JSON and writes it under key
func (p *Producer) Publish(ctx context.Context, topic, key string, event interface{}) error {
	value, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "encode %s event", topic)
	}

	w, err := p.writer(topic)
	if err != nil {
		return err
	}
	if err := w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return errors.Wrapf(err, "publish to %s", topic)
	}

	p.log.Debugw("Published event", "topic", topic, "key", key, "bytes", len(value))
	return nil
}

// Close flushes pending async messages and rejects further publishes
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	var errs []error
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "close %s writer", topic))
		}
	}
	p.writers = map[string]*kafka.Writer{}
	return errors.Join(errs...)
}
