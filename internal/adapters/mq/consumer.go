package mq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// ErrPoison marks a message that can never be handled; it is dropped
// instead of requeued.
var ErrPoison = errors.New("mq: unprocessable message")

type Consumer struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	queue    string
	keys     []string
}

// NewConsumer binds a queue to keys on exchange. An empty queue name gives
// each instance its own exclusive, auto-deleted queue, so every instance
// sees every event.
func NewConsumer(url, exchange, queue string, keys []string) (*Consumer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	durable, exclusive := queue != "", queue == ""
	q, err := ch.QueueDeclare(queue, durable, exclusive, exclusive, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for _, rk := range keys {
		if err := ch.QueueBind(q.Name, rk, exchange, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("bind %s: %w", rk, err)
		}
	}
	return &Consumer{conn: conn, ch: ch, exchange: exchange, queue: q.Name, keys: keys}, nil
}

func (c *Consumer) Deliveries(ctx context.Context) (<-chan amqp.Delivery, error) {
	return c.ch.ConsumeWithContext(ctx, c.queue, "", false, false, false, false, nil)
}

// Run hands each delivery body to handle until ctx ends. Successful
// messages are acked, ErrPoison drops the message, other errors requeue it.
func (c *Consumer) Run(ctx context.Context, handle func(ctx context.Context, body []byte) error) error {
	msgs, err := c.Deliveries(ctx)
	if err != nil {
		return err
	}
	for d := range msgs {
		err := handle(ctx, d.Body)
		switch {
		case err == nil:
			_ = d.Ack(false)
		case errors.Is(err, ErrPoison):
			log.Warn().Err(err).Str("routing_key", d.RoutingKey).Msg("dropping message")
			_ = d.Nack(false, false)
		default:
			log.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("handler failed, requeueing")
			_ = d.Nack(false, true)
		}
	}
	return ctx.Err()
}

func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
