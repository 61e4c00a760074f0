package events

import (
	"context"

	"diabetes-risk/internal/adapters/kafka"
	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

// Producer is the subset of the Kafka producer used for publishing
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

// Publisher publishes prediction events to Kafka
type Publisher struct {
	producer    Producer
	scoredTopic string
	failedTopic string
	log         *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		producer:    producer,
		scoredTopic: kafka.TopicPredictionScored,
		failedTopic: kafka.TopicPredictionFailed,
		log:         log,
	}
}

// WithTopics overrides the destination topics. Empty names keep the defaults.
func (p *Publisher) WithTopics(scored, failed string) *Publisher {
	if scored != "" {
		p.scoredTopic = scored
	}
	if failed != "" {
		p.failedTopic = failed
	}
	return p
}

// PublishPredictionScored publishes a prediction scored event
func (p *Publisher) PublishPredictionScored(ctx context.Context, event *PredictionScoredEvent) error {
	return p.publish(ctx, p.scoredTopic, event.ID, event)
}

// PublishPredictionFailed publishes a prediction failure event
func (p *Publisher) PublishPredictionFailed(ctx context.Context, event *PredictionFailedEvent) error {
	return p.publish(ctx, p.failedTopic, event.ID, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Errorw("Failed to publish event",
			"topic", topic,
			"error", err,
		)
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("Event published", "topic", topic, "key", key)
	return nil
}
