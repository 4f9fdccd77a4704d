package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
)

func TestKafkaPublisherSendsKeyedMessage(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	var captured *sarama.ProducerMessage
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		captured = msg
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "orders", logger.Discard())
	event := NewEvent(TypeOrderPlaced, 42, map[string]any{"order_number": "ORD-1"})

	require.NoError(t, pub.Publish(context.Background(), event))
	require.NotNil(t, captured)
	assert.Equal(t, "orders", captured.Topic)

	key, err := captured.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "42", string(key))

	body, err := captured.Value.Encode()
	require.NoError(t, err)
	var decoded Event
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, TypeOrderPlaced, decoded.Type)

	require.NoError(t, pub.Close())
}

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(ctx context.Context, event Event) error {
	f.calls++
	return errors.New("broker down")
}

func (f *failingPublisher) Close() error { return nil }

func TestEmitterSwallowsPublishErrors(t *testing.T) {
	pub := &failingPublisher{}
	emitter := NewEmitter(pub, metrics.New(prometheus.NewRegistry()), logger.Discard())

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), NewEvent(TypeOrderCancelled, 1, nil))
	})
	assert.Equal(t, 1, pub.calls)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *Emitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), NewEvent(TypeOrderPaid, 1, nil))
	})
}
