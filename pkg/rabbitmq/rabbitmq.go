package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"feira/internal/models"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

const (
	// OrderExchange is the topic exchange order events are published to,
	// with the event type ("order.created", ...) as routing key.
	OrderExchange = "feira.orders"
	// OrderEventsQueue receives every order event for auditing.
	OrderEventsQueue = "feira.order_events"

	orderBindingKey = "order.#"
)

// ErrClosed is returned when publishing on a closed client.
var ErrClosed = errors.New("rabbitmq: client is closed")

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *zap.Logger

	// amqp channels are not safe for concurrent publishing.
	mu     sync.Mutex
	closed bool
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ and declares the order exchange, the audit
// queue and their binding.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	logger.Info("rabbitmq connected",
		zap.String("exchange", OrderExchange),
		zap.String("queue", OrderEventsQueue))

	return &Client{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(
		OrderExchange, // name
		"topic",       // kind
		true,          // durable
		false,         // auto-deleted
		false,         // internal
		false,         // no-wait
		nil,           // arguments
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", OrderExchange, err)
	}
	if _, err := ch.QueueDeclare(
		OrderEventsQueue, // name
		true,             // durable
		false,            // delete when unused
		false,            // exclusive
		false,            // no-wait
		nil,              // arguments
	); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", OrderEventsQueue, err)
	}
	if err := ch.QueueBind(OrderEventsQueue, orderBindingKey, OrderExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s: %w", OrderEventsQueue, err)
	}
	return nil
}

// Close closes the RabbitMQ connection and channel.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// PublishOrderEvent publishes a persistent JSON message routed by the event
// type.
func (c *Client) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.channel == nil {
		return ErrClosed
	}

	err = c.channel.Publish(
		OrderExchange,      // exchange
		string(event.Type), // routing key
		false,              // mandatory
		false,              // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    event.EventID,
			Type:         string(event.Type),
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.OccurredAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s for order %s: %w", event.Type, event.OrderID, err)
	}

	c.logger.Debug("order event published",
		zap.String("event_id", event.EventID),
		zap.String("type", string(event.Type)),
		zap.String("order_id", event.OrderID))
	return nil
}

// EventHandler processes one decoded order event.
type EventHandler func(ctx context.Context, event models.OrderEvent) error

// ConsumeOrderEvents delivers messages from the audit queue to handler until
// ctx is cancelled or the channel closes. It returns once the consumer is
// registered; processing happens on its own goroutine.
func (c *Client) ConsumeOrderEvents(ctx context.Context, handler EventHandler) error {
	c.mu.Lock()
	if c.closed || c.channel == nil {
		c.mu.Unlock()
		return ErrClosed
	}
	msgs, err := c.channel.Consume(
		OrderEventsQueue, // queue
		"",               // consumer tag
		false,            // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,              // args
	)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					c.logger.Warn("order event consumer stopped: channel closed")
					return
				}
				c.handleDelivery(ctx, msg, handler)
			}
		}
	}()
	return nil
}

// handleDelivery acks processed messages, requeues those whose handler
// failed, and drops malformed ones.
func (c *Client) handleDelivery(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		c.logger.Error("dropping malformed order event",
			zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		if err := msg.Nack(false, false); err != nil {
			c.logger.Error("nack failed", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		}
		return
	}

	if err := handler(ctx, event); err != nil {
		c.logger.Warn("order event handler failed, requeueing",
			zap.String("event_id", event.EventID), zap.Error(err))
		if err := msg.Nack(false, !msg.Redelivered); err != nil {
			c.logger.Error("nack failed", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
		}
		return
	}
	if err := msg.Ack(false); err != nil {
		c.logger.Error("ack failed", zap.Uint64("delivery_tag", msg.DeliveryTag), zap.Error(err))
	}
}

// AuditHandler logs every order event it receives.
func AuditHandler(logger *zap.Logger) EventHandler {
	return func(ctx context.Context, event models.OrderEvent) error {
		logger.Info("order event",
			zap.String("event_id", event.EventID),
			zap.String("type", string(event.Type)),
			zap.String("order_id", event.OrderID),
			zap.String("status", string(event.Status)),
			zap.String("previous_status", string(event.PreviousStatus)),
			zap.Duration("lag", time.Since(event.OccurredAt)))
		return nil
	}
}
