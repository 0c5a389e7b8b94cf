package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPPublisher publishes events to a topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *zap.Logger
	mu       sync.Mutex
}

func NewAMQPPublisher(url, exchange string, logger *zap.Logger) (*AMQPPublisher, error) {
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
	return &AMQPPublisher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) {
	body, err := json.Marshal(e)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("type", e.Type), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	p.mu.Lock()
	err = p.ch.PublishWithContext(ctx, p.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.BookingID + ":" + e.Type,
		Timestamp:    e.OccurredAt,
		Body:         body,
	})
	p.mu.Unlock()
	if err != nil {
		p.logger.Warn("failed to publish event",
			zap.String("type", e.Type),
			zap.String("bookingId", e.BookingID),
			zap.Error(err))
	}
}

// Ping reports whether the broker connection is still open.
func (p *AMQPPublisher) Ping(ctx context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
