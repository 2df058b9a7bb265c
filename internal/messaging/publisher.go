// Package messaging публикует события о завершенных запросах для внешних потребителей.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"starlit-server/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const (
	appID          = "starlit-server"
	publishTimeout = 5 * time.Second
	publishRetries = 3
)

var ErrPublisherClosed = errors.New("event publisher is closed")

// EventPublisher - доставка StoryEvent. Публикация best-effort: ошибки только логируются вызывающим.
type EventPublisher interface {
	PublishStoryEvent(ctx context.Context, event models.StoryEvent) error
	// Ping проверяет готовность брокера для /health.
	Ping(ctx context.Context) error
	Close() error
}

// RabbitMQPublisher пишет события в durable-очередь через default exchange.
type RabbitMQPublisher struct {
	mu        sync.Mutex
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ EventPublisher = (*RabbitMQPublisher)(nil)

// NewRabbitMQPublisher открывает канал и объявляет очередь.
// Соединением владеет вызывающий.
func NewRabbitMQPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*RabbitMQPublisher, error) {
	if conn == nil {
		return nil, errors.New("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to declare queue '%s': %w", queueName, err)
	}

	log := logger.Named("EventPublisher")
	log.Info("Story events queue declared", zap.String("queue", queueName))
	return &RabbitMQPublisher{conn: conn, channel: ch, queueName: queueName, logger: log}, nil
}

// PublishStoryEvent отправляет событие как persistent JSON с небольшим числом повторов.
func (p *RabbitMQPublisher) PublishStoryEvent(ctx context.Context, event models.StoryEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal story event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil || p.channel.IsClosed() {
		return ErrPublisherClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	for attempt := 1; attempt <= publishRetries; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    event.EventID,
				Body:         body,
				Timestamp:    time.Now(),
				Type:         string(event.Kind),
				AppId:        appID,
			},
		)
		if err == nil {
			p.logger.Debug("Story event published",
				zap.String("event_id", event.EventID),
				zap.String("kind", string(event.Kind)),
				zap.Int("attempt", attempt),
			)
			return nil
		}
		p.logger.Warn("Story event publish failed",
			zap.String("event_id", event.EventID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return fmt.Errorf("failed to publish story event: %w", ctx.Err())
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("failed to publish story event to %s after retries: %w", p.queueName, err)
}

func (p *RabbitMQPublisher) Ping(_ context.Context) error {
	if p.conn == nil || p.conn.IsClosed() {
		return errors.New("rabbitmq connection is closed")
	}
	return nil
}

// Close закрывает канал. Соединение закрывает владелец.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel == nil {
		return nil
	}
	err := p.channel.Close()
	p.channel = nil
	return err
}

// NoopPublisher используется, когда брокер не настроен.
type NoopPublisher struct{}

var _ EventPublisher = NoopPublisher{}

func (NoopPublisher) PublishStoryEvent(context.Context, models.StoryEvent) error { return nil }

func (NoopPublisher) Ping(context.Context) error { return nil }

func (NoopPublisher) Close() error { return nil }
