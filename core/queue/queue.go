package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/siherrmann/dealgraph/helper"
	"github.com/siherrmann/dealgraph/model"
)

// DefaultQueue receives an event for every indexed article.
const DefaultQueue = "dealgraph.article.ingested"

// EventPublisher publishes article events
type EventPublisher interface {
	Publish(ctx context.Context, event model.ArticleEvent) error
}

// EventHandler processes one article event
type EventHandler func(ctx context.Context, event model.ArticleEvent) error

type connection struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func dial(url string, queue string) (*connection, error) {
	if url == "" {
		return nil, helper.NewError("dial rabbitmq", fmt.Errorf("rabbitmq url is empty"))
	}
	if queue == "" {
		queue = DefaultQueue
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, helper.NewError("dial rabbitmq", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, helper.NewError("open channel", err)
	}

	_, err = ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, helper.NewError("declare queue", err)
	}

	return &connection{conn: conn, ch: ch, queue: queue}, nil
}

// Close closes the channel and the connection
func (c *connection) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Publisher sends article events to a durable queue
type Publisher struct {
	*connection
	log *slog.Logger
}

// NewPublisher connects to RabbitMQ and declares the queue
func NewPublisher(url string, queue string, logger *slog.Logger) (*Publisher, error) {
	c, err := dial(url, queue)
	if err != nil {
		return nil, err
	}

	logger.Info("RabbitMQ publisher initialized", slog.String("queue", c.queue))

	return &Publisher{connection: c, log: logger}, nil
}

// Publish sends one persistent JSON message
func (p *Publisher) Publish(ctx context.Context, event model.ArticleEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return helper.NewError("marshal event", err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return helper.NewError("publish event", err)
	}

	p.log.Debug("Published article event", slog.String("url", event.URL))
	return nil
}

// Consumer processes article events one at a time
type Consumer struct {
	*connection
	log *slog.Logger
}

// NewConsumer connects to RabbitMQ and declares the queue
func NewConsumer(url string, queue string, logger *slog.Logger) (*Consumer, error) {
	c, err := dial(url, queue)
	if err != nil {
		return nil, err
	}

	err = c.ch.Qos(1, 0, false)
	if err != nil {
		_ = c.Close()
		return nil, helper.NewError("set qos", err)
	}

	logger.Info("RabbitMQ consumer initialized", slog.String("queue", c.queue))

	return &Consumer{connection: c, log: logger}, nil
}

// Run consumes events until the context is cancelled or the channel closes
func (c *Consumer) Run(ctx context.Context, handler EventHandler) error {
	deliveries, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return helper.NewError("consume", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return helper.NewError("consume", fmt.Errorf("delivery channel closed"))
			}
			c.handle(ctx, d, handler)
		}
	}
}

// handle acks a delivery once the handler succeeded. Failed or undecodable
// deliveries are dropped without requeue so a poison message cannot loop.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery, handler EventHandler) {
	var event model.ArticleEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.log.Error("Dropping undecodable event", slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, event); err != nil {
		c.log.Error("Article event failed", slog.String("url", event.URL), slog.String("error", err.Error()))
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}
