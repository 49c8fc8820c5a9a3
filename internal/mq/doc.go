// Package mq carries job submissions over RabbitMQ.
//
// Layout:
//   - connection.go: AMQP connection with reconnect and graceful shutdown
//   - topology.go: exchange, queue and dead-letter declarations
//   - publisher.go: publishing submitted videos
//   - consumer.go: consuming submitted videos
//
// A submitted video is published to the narrator.videos exchange and routed to the
// videos.submitted queue. A message whose job fails is rejected without requeue and
// lands in dlq.videos; jobs are never retried automatically.
package mq
