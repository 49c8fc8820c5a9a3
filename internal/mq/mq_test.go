package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (f *fakeAcknowledger) Ack(uint64, bool) error { f.acks++; return nil }

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacks++
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(uint64, bool) error { return nil }

func delivery(t *testing.T, ack amqp.Acknowledger, msg *Message) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, Body: body}
}

func TestNewMessage_RoundTrip(t *testing.T) {
	videoID := uuid.New()
	msg, err := NewMessage(MessageTypeVideoSubmitted, VideoSubmittedPayload{VideoID: videoID})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.JSONEq(t, `{"video_id":"`+videoID.String()+`"}`, string(msg.Payload))

	payload, err := ParsePayload[VideoSubmittedPayload](msg)
	require.NoError(t, err)
	assert.Equal(t, videoID, payload.VideoID)
}

func TestParsePayload_Empty(t *testing.T) {
	_, err := ParsePayload[VideoSubmittedPayload](&Message{ID: "m1"})
	assert.Error(t, err)
}

func TestHandleDelivery_AckOnSuccess(t *testing.T) {
	videoID := uuid.New()
	var got uuid.UUID
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue: QueueVideosSubmitted,
		Handler: func(_ context.Context, d *Delivery) error {
			p, err := ParsePayload[VideoSubmittedPayload](&d.Message)
			got = p.VideoID
			return err
		},
	})

	msg, err := NewMessage(MessageTypeVideoSubmitted, VideoSubmittedPayload{VideoID: videoID})
	require.NoError(t, err)
	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), delivery(t, ack, msg))

	assert.Equal(t, videoID, got)
	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
}

func TestHandleDelivery_FailureIsNotRequeued(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{
		Queue:   QueueVideosSubmitted,
		Handler: func(context.Context, *Delivery) error { return errors.New("pipeline failed") },
	})

	msg, err := NewMessage(MessageTypeVideoSubmitted, VideoSubmittedPayload{VideoID: uuid.New()})
	require.NoError(t, err)
	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), delivery(t, ack, msg))

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeue)
}

func TestHandleDelivery_MalformedBody(t *testing.T) {
	called := false
	c := NewConsumer(nil, nil, ConsumerConfig{
		Handler: func(context.Context, *Delivery) error { called = true; return nil },
	})

	ack := &fakeAcknowledger{}
	c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("not json")})

	assert.False(t, called)
	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeue)
}

func TestNewConsumer_DefaultPrefetch(t *testing.T) {
	c := NewConsumer(nil, nil, ConsumerConfig{Queue: "q"})
	assert.Equal(t, 1, c.prefetch)
}

func TestTopology_DeadLetters(t *testing.T) {
	queues := Topology{Queue: "custom.videos"}.queues()
	require.Len(t, queues, 2)
	assert.Equal(t, "custom.videos", queues[0].name)
	assert.Equal(t, string(ExchangeDLQ), queues[0].args["x-dead-letter-exchange"])
	assert.Equal(t, QueueDLQVideos, queues[1].name)

	assert.Equal(t, QueueVideosSubmitted, DefaultTopology().queues()[0].name)
}
