// Package events publishes domain events to a RabbitMQ topic exchange.
// Publishing is best effort: a failed publish is logged and never fails the
// operation that produced the event.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Arman3747/BloodConnect-Server/logger"
)

// Routing keys.
const (
	UserRegistered       = "user.registered"
	UserRoleChanged      = "user.role_changed"
	UserStatusChanged    = "user.status_changed"
	RequestCreated       = "donation_request.created"
	RequestStatusChanged = "donation_request.status_changed"
	RequestDeleted       = "donation_request.deleted"
	BlogPublished        = "blog.published"
	ContributionRecorded = "fund.contribution_recorded"
)

type Publisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// AMQP publishes JSON messages on a durable topic exchange.
type AMQP struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

func NewAMQP(url, exchange string) (*AMQP, error) {
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
	return &AMQP{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *AMQP) PublishJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(ctx, p.exchange, key, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Body:         b,
	})
}

func (p *AMQP) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishJSON(context.Context, string, any) error { return nil }

// Emit publishes v under key and logs a failure instead of returning it.
// A nil publisher is treated as Nop.
func Emit(ctx context.Context, p Publisher, log *slog.Logger, key string, v any) {
	if p == nil {
		return
	}
	if err := p.PublishJSON(ctx, key, v); err != nil {
		logger.FromContext(ctx, log).Warn("event_publish_failed",
			slog.String("routing_key", key),
			slog.String("error", err.Error()),
		)
	}
}
