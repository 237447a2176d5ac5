package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafka_config "sweeps/pkg/kafka/config"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T, key string) Message {
	t.Helper()
	msg, err := NewMessage().WithKey(key).WithValue(map[string]string{"k": key}).WithRunID(key).Build()
	require.NoError(t, err)
	return msg
}

func TestNewProducer_Validation(t *testing.T) {
	cfg := &kafka_config.Config{Brokers: []string{"localhost:9092"}, ProducerMaxAttempts: 1}

	_, err := NewProducer(nil, "t", "", nil)
	assert.Error(t, err)
	_, err = NewProducer(&kafka_config.Config{}, "t", "", nil)
	assert.Error(t, err)
	_, err = NewProducer(cfg, "", "", nil)
	assert.Error(t, err)

	p, err := NewProducer(cfg, "listings.cleaned", "listings.dlq", nil)
	require.NoError(t, err)
	assert.Equal(t, "listings.cleaned", p.Topic())
	assert.NotNil(t, p.dlqWriter)
	require.NoError(t, p.Close())
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "listings.cleaned", "", nil)

	require.NoError(t, p.Publish(context.Background(), buildMessage(t, "run-1")))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "run-1", string(w.messages[0].Key))
	assert.Equal(t, "run-1", header(w.messages[0], HeaderRunID))
}

func TestProducer_RejectsInvalid(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", "", nil)

	assert.ErrorIs(t, p.Publish(context.Background(), Message{Value: []byte("x")}), ErrEmptyKey)
	assert.ErrorIs(t, p.Publish(context.Background(), Message{Key: "k"}), ErrEmptyValue)
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	p := newProducer(&fakeWriter{}, nil, "t", "", nil)

	var order []string
	mw := func(name string) ProducerMiddleware {
		return func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			assert.Equal(t, "t", msg.Topic)
			return next(ctx, msg)
		}
	}
	p.Use(mw("first"))
	p.Use(mw("second"))

	require.NoError(t, p.Publish(context.Background(), buildMessage(t, "k")))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestProducer_FailureGoesToDLQ(t *testing.T) {
	writeErr := errors.New("broker down")
	w := &fakeWriter{err: writeErr}
	dlq := &fakeWriter{}
	p := newProducer(w, dlq, "listings.cleaned", "listings.dlq", nil)

	msg := buildMessage(t, "run-2")
	err := p.Publish(context.Background(), msg)
	assert.ErrorIs(t, err, writeErr)

	require.Len(t, dlq.messages, 1)
	assert.Equal(t, "listings.cleaned", header(dlq.messages[0], HeaderOriginalTopic))
	assert.Equal(t, "broker down", header(dlq.messages[0], HeaderDLQError))
	_, mutated := msg.Headers[HeaderDLQError]
	assert.False(t, mutated)
}

func TestProducer_PublishBatchSkipsInvalid(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "t", "", nil)

	err := p.PublishBatch(context.Background(), []Message{
		buildMessage(t, "a"),
		{Key: "", Value: []byte("x")},
		buildMessage(t, "b"),
	})
	require.NoError(t, err)
	assert.Len(t, w.messages, 2)

	assert.ErrorIs(t, p.PublishBatch(context.Background(), []Message{{}}), ErrInvalidMessage)
}

func TestProducer_Closed(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, nil, "t", "", nil)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, p.Publish(context.Background(), buildMessage(t, "k")), ErrProducerClosed)
	assert.ErrorIs(t, p.PublishBatch(context.Background(), nil), ErrProducerClosed)
}
