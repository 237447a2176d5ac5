package kafka_middleware

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"sweeps/pkg/kafka"
	"sweeps/pkg/logger"
)

func TestMetrics_Consumer(t *testing.T) {
	m := NewMetrics()
	mw := m.ConsumerMiddleware()

	ok := func(context.Context, kafka.Message) error { return nil }
	fail := func(context.Context, kafka.Message) error { return errors.New("x") }

	assert.NoError(t, mw(context.Background(), kafka.Message{}, ok))
	assert.NoError(t, mw(context.Background(), kafka.Message{}, ok))
	assert.Error(t, mw(context.Background(), kafka.Message{}, fail))

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Consumed)
	assert.Equal(t, int64(1), s.ConsumeFailed)
	assert.Zero(t, s.Published)

	m.Reset()
	assert.Equal(t, Snapshot{}, m.Snapshot())
}

func TestMetrics_Producer(t *testing.T) {
	m := NewMetrics()
	mw := m.ProducerMiddleware()

	err := mw(context.Background(), kafka.Message{}, func(context.Context, kafka.Message) error { return nil })
	assert.NoError(t, err)

	s := m.Snapshot()
	assert.Equal(t, int64(1), s.Published)
	assert.Zero(t, s.PublishFailed)
}

func TestLoggingConsumerMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Config{Output: &buf, Level: logger.DEBUG})
	mw := LoggingConsumerMiddleware(log)

	msg := kafka.Message{Topic: "listings.raw", Key: "run-1", Offset: 4}
	err := mw(context.Background(), msg, func(context.Context, kafka.Message) error { return errors.New("boom") })

	assert.Error(t, err)
	assert.Contains(t, buf.String(), `"msg":"Failed to process message"`)
	assert.Contains(t, buf.String(), `"offset":4`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
