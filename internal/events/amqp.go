// Package events publishes order lifecycle events to RabbitMQ. The broker is
// optional; when no URL is configured the service runs without a publisher.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/grainly/storefront/internal/domain/order"
)

const ordersExchange = "orders.events"

// Event routing keys.
const (
	routeOrderCreated       = "order.created"
	routeOrderStatusChanged = "order.status_changed"
	routeOrderCancelled     = "order.cancelled"
)

var _ order.EventPublisher = (*AMQPPublisher)(nil)

// AMQPPublisher emits order events to a topic exchange.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// NewAMQPPublisher connects to the broker and declares the orders exchange.
func NewAMQPPublisher(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial")
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}

	if err := ch.ExchangeDeclare(
		ordersExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errors.Wrap(err, "declare exchange")
	}

	return &AMQPPublisher{conn: conn, channel: ch}, nil
}

// orderEvent is the wire envelope of a published event.
type orderEvent struct {
	OrderNumber   string              `json:"orderNumber"`
	SessionID     string              `json:"sessionId"`
	OrderStatus   order.Status        `json:"orderStatus"`
	PaymentStatus order.PaymentStatus `json:"paymentStatus"`
	Total         float64             `json:"total"`
	Currency      string              `json:"currency"`
	OccurredAt    time.Time           `json:"occurredAt"`
}

func (p *AMQPPublisher) publish(ctx context.Context, routingKey string, o *order.Order) error {
	body, err := json.Marshal(orderEvent{
		OrderNumber:   o.OrderNumber,
		SessionID:     o.SessionID,
		OrderStatus:   o.OrderStatus,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		Currency:      o.Currency,
		OccurredAt:    time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Body:         body,
	}
	if err := p.channel.PublishWithContext(ctx, ordersExchange, routingKey, false, false, msg); err != nil {
		return errors.Wrapf(err, "publish %s", routingKey)
	}
	return nil
}

func (p *AMQPPublisher) OrderCreated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, routeOrderCreated, o)
}

func (p *AMQPPublisher) OrderStatusChanged(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, routeOrderStatusChanged, o)
}

func (p *AMQPPublisher) OrderCancelled(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, routeOrderCancelled, o)
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
