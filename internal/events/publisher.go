package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"fretus-backend/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const DefaultExchange = "fretus.events"

// Channel is the subset of *amqp.Channel the publisher needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher writes domain events to a durable topic exchange.
// The routing key is the event type, e.g. "trip.status_changed".
type Publisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	ch       Channel
	exchange string
	logger   *zap.Logger
}

// Dial connects to the broker, retrying with exponential backoff.
func Dial(url, exchange string, attempts int, logger *zap.Logger) (*Publisher, error) {
	var (
		conn *amqp.Connection
		err  error
	)
	for i := 1; i <= attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("⚠️ RabbitMQ connect attempt failed", zap.Int("attempt", i), zap.Error(err))
		if i < attempts {
			time.Sleep(time.Second << (i - 1))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	p, err := NewPublisher(ch, exchange, logger)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	logger.Info("✅ Connected to RabbitMQ", zap.String("exchange", p.exchange))
	return p, nil
}

// NewPublisher declares the exchange on an already open channel.
func NewPublisher(ch Channel, exchange string, logger *zap.Logger) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return &Publisher{ch: ch, exchange: exchange, logger: logger}, nil
}

// Publish sends one event. Channels are not safe for concurrent use, so
// publishes are serialized.
func (p *Publisher) Publish(ctx context.Context, event models.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Unix(event.OccurredAt, 0),
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}
	return nil
}

// Notify implements services.Notifier. Broker failures are logged, never returned.
func (p *Publisher) Notify(ctx context.Context, event models.Event) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := p.Publish(ctx, event); err != nil {
		p.logger.Error("❌ event publish failed",
			zap.String("type", string(event.Type)),
			zap.String("trip_id", event.TripID),
			zap.Error(err))
		return
	}
	p.logger.Debug("📤 event published", zap.String("type", string(event.Type)), zap.String("trip_id", event.TripID))
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}
