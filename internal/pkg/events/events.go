// internal/pkg/events/events.go
package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
)

// Event types
const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderPaid          = "order.paid"
	TypeOrderStatusChanged = "order.status_changed"
	TypeOrderCancelled     = "order.cancelled"
)

// Event is a domain event published after a transaction commits
type Event struct {
	ID          string    `json:"event_id"`
	Type        string    `json:"event_type"`
	AggregateID uint      `json:"aggregate_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Payload     any       `json:"payload"`
}

// NewEvent stamps a fresh event id and time
func NewEvent(eventType string, aggregateID uint, payload any) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		OccurredAt:  time.Now().UTC(),
		Payload:     payload,
	}
}

// Publisher delivers events to a broker
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// New builds the publisher selected by EVENTS_BROKER
func New(cfg *config.Config, log logrus.FieldLogger) (Publisher, error) {
	switch cfg.Events.Broker {
	case config.EventBrokerKafka:
		return NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, log)
	case config.EventBrokerRabbitMQ:
		return NewRabbitMQPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange, log)
	case config.EventBrokerNone, "":
		return NewLogPublisher(log), nil
	default:
		return nil, fmt.Errorf("unsupported event broker: %s", cfg.Events.Broker)
	}
}

// LogPublisher only logs events; used when no broker is configured
type LogPublisher struct {
	log logrus.FieldLogger
}

// NewLogPublisher creates a LogPublisher
func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish implements Publisher
func (p *LogPublisher) Publish(ctx context.Context, event Event) error {
	p.log.WithFields(logrus.Fields{
		"event_id":     event.ID,
		"event_type":   event.Type,
		"aggregate_id": event.AggregateID,
	}).Debug("Domain event")
	return nil
}

// Close implements Publisher
func (p *LogPublisher) Close() error { return nil }

// Emitter publishes events best-effort: failures are logged and counted,
// never returned to the business operation that raised them.
type Emitter struct {
	publisher Publisher
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

// NewEmitter creates an Emitter
func NewEmitter(publisher Publisher, m *metrics.Metrics, log logrus.FieldLogger) *Emitter {
	return &Emitter{publisher: publisher, metrics: m, log: log}
}

// Emit publishes event and swallows the error
func (e *Emitter) Emit(ctx context.Context, event Event) {
	if e == nil || e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, event); err != nil {
		e.metrics.EventPublished(event.Type, "failed")
		e.log.WithError(err).WithFields(logrus.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Warn("Failed to publish domain event")
		return
	}
	e.metrics.EventPublished(event.Type, "published")
}
