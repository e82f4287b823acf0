package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"feira/internal/models"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAcker struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *recordingAcker) Ack(tag uint64, multiple bool) error {
	a.acked++
	return nil
}

func (a *recordingAcker) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *recordingAcker) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func delivery(t *testing.T, acker amqp.Acknowledger, body any, redelivered bool) amqp.Delivery {
	t.Helper()
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	return amqp.Delivery{Acknowledger: acker, Body: raw, DeliveryTag: 1, Redelivered: redelivered}
}

func TestHandleDelivery(t *testing.T) {
	c := &Client{logger: zap.NewNop()}
	event := models.OrderEvent{
		EventID:    "e1",
		Type:       models.EventOrderCreated,
		OrderID:    "o1",
		Status:     models.StatusPending,
		OccurredAt: time.Now(),
	}

	t.Run("ack on success", func(t *testing.T) {
		acker := &recordingAcker{}
		var got models.OrderEvent
		c.handleDelivery(context.Background(), delivery(t, acker, event, false), func(ctx context.Context, e models.OrderEvent) error {
			got = e
			return nil
		})
		assert.Equal(t, 1, acker.acked)
		assert.Equal(t, "o1", got.OrderID)
		assert.Equal(t, models.EventOrderCreated, got.Type)
	})

	t.Run("requeue once on handler failure", func(t *testing.T) {
		acker := &recordingAcker{}
		fail := func(ctx context.Context, e models.OrderEvent) error { return errors.New("boom") }

		c.handleDelivery(context.Background(), delivery(t, acker, event, false), fail)
		assert.Equal(t, 1, acker.nacked)
		assert.True(t, acker.requeue)

		c.handleDelivery(context.Background(), delivery(t, acker, event, true), fail)
		assert.Equal(t, 2, acker.nacked)
		assert.False(t, acker.requeue)
	})

	t.Run("drop malformed", func(t *testing.T) {
		acker := &recordingAcker{}
		called := false
		c.handleDelivery(context.Background(), delivery(t, acker, []byte("{not json"), false), func(ctx context.Context, e models.OrderEvent) error {
			called = true
			return nil
		})
		assert.False(t, called)
		assert.Equal(t, 1, acker.nacked)
		assert.False(t, acker.requeue)
	})
}

func TestPublishOrderEvent_Closed(t *testing.T) {
	c := &Client{logger: zap.NewNop(), closed: true}
	err := c.PublishOrderEvent(context.Background(), models.OrderEvent{Type: models.EventOrderCreated})
	assert.ErrorIs(t, err, ErrClosed)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.PublishOrderEvent(ctx, models.OrderEvent{})
	assert.ErrorIs(t, err, context.Canceled)
}
