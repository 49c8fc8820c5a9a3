package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange names an AMQP exchange
type Exchange string

// RoutingKey names an AMQP routing key
type RoutingKey string

// Exchanges
const (
	ExchangeVideos Exchange = "narrator.videos"
	ExchangeDLQ    Exchange = "narrator.dlq"
)

// Queues
const (
	QueueVideosSubmitted = "videos.submitted"
	QueueDLQVideos       = "dlq.videos"
)

// Routing keys
const (
	RoutingKeySubmitted RoutingKey = "submitted"
	RoutingKeyDLQVideos RoutingKey = "videos"
)

// Topology names the queue submitted videos are delivered to
type Topology struct {
	Queue string
}

// DefaultTopology uses the videos.submitted queue
func DefaultTopology() Topology {
	return Topology{Queue: QueueVideosSubmitted}
}

type queueDecl struct {
	name       string
	routingKey RoutingKey
	exchange   Exchange
	args       amqp.Table
}

func (t Topology) queues() []queueDecl {
	queue := t.Queue
	if queue == "" {
		queue = QueueVideosSubmitted
	}
	return []queueDecl{
		{
			name:       queue,
			routingKey: RoutingKeySubmitted,
			exchange:   ExchangeVideos,
			args: amqp.Table{
				"x-dead-letter-exchange":    string(ExchangeDLQ),
				"x-dead-letter-routing-key": string(RoutingKeyDLQVideos),
			},
		},
		{name: QueueDLQVideos, routingKey: RoutingKeyDLQVideos, exchange: ExchangeDLQ},
	}
}

// Setup declares the exchanges and queues and binds them. It is idempotent.
func (t Topology) Setup(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, ex := range []Exchange{ExchangeVideos, ExchangeDLQ} {
			err := ch.ExchangeDeclare(
				string(ex), // name
				"direct",   // type
				true,       // durable
				false,      // auto-deleted
				false,      // internal
				false,      // no-wait
				nil,        // arguments
			)
			if err != nil {
				return fmt.Errorf("declare exchange %s: %w", ex, err)
			}
		}

		for _, q := range t.queues() {
			if _, err := ch.QueueDeclare(q.name, true, false, false, false, q.args); err != nil {
				return fmt.Errorf("declare queue %s: %w", q.name, err)
			}
			if err := ch.QueueBind(q.name, string(q.routingKey), string(q.exchange), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", q.name, q.exchange, err)
			}
		}
		return nil
	})
}
