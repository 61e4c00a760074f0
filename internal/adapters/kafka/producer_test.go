package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diabetes-risk/pkg/errors"
	"diabetes-risk/pkg/logger"
)

func newTestProducer() *Producer {
	return NewProducer(ProducerConfig{Brokers: []string{"localhost:9092"}, Async: true, Log: logger.NewNop()})
}

func TestProducer_PublishRejectsUnencodableEvent(t *testing.T) {
	p := newTestProducer()

	err := p.Publish(context.Background(), TopicPredictionScored, "pred-1", map[string]interface{}{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode predictions.scored event")
	assert.Empty(t, p.writers)
}

func TestProducer_WriterIsReusedPerTopic(t *testing.T) {
	p := newTestProducer()

	first, err := p.writer(TopicPredictionScored)
	require.NoError(t, err)
	again, err := p.writer(TopicPredictionScored)
	require.NoError(t, err)
	failed, err := p.writer(TopicPredictionFailed)
	require.NoError(t, err)

	assert.Same(t, first, again)
	assert.NotSame(t, first, failed)
	assert.Equal(t, TopicPredictionFailed, failed.Topic)
}

func TestProducer_PublishAfterClose(t *testing.T) {
	p := newTestProducer()
	require.NoError(t, p.Close())

	err := p.Publish(context.Background(), TopicPredictionScored, "pred-1", struct{}{})
	assert.ErrorIs(t, err, errors.ErrUnavailable)
}
