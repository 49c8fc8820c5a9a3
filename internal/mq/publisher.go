package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType identifies the payload of a Message
type MessageType string

// Message types
const (
	MessageTypeVideoSubmitted MessageType = "video.submitted"
)

// Message is the envelope of every published message
type Message struct {
	ID        string          `json:"id"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// VideoSubmittedPayload asks a worker to run the pipeline for one video
type VideoSubmittedPayload struct {
	VideoID uuid.UUID `json:"video_id"`
}

// NewMessage wraps payload in an envelope with a fresh id
func NewMessage(msgType MessageType, payload any) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   body,
		Timestamp: time.Now().UTC(),
	}, nil
}

// ParsePayload decodes the message payload into T
func ParsePayload[T any](msg *Message) (T, error) {
	var result T
	if len(msg.Payload) == 0 {
		return result, fmt.Errorf("message %s has no payload", msg.ID)
	}
	if err := json.Unmarshal(msg.Payload, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}

// Publisher publishes messages to RabbitMQ
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher creates a publisher
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish sends msg as a persistent JSON message
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),
			string(routingKey),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishVideoSubmitted queues a video for processing
func (p *Publisher) PublishVideoSubmitted(ctx context.Context, videoID uuid.UUID) error {
	msg, err := NewMessage(MessageTypeVideoSubmitted, VideoSubmittedPayload{VideoID: videoID})
	if err != nil {
		return err
	}
	return p.Publish(ctx, ExchangeVideos, RoutingKeySubmitted, msg)
}
