// internal/pkg/events/rabbitmq.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const publishConfirmTimeout = 5 * time.Second

// RabbitMQPublisher publishes events to a durable topic exchange with
// publisher confirms. The routing key is the event type.
type RabbitMQPublisher struct {
	mu            sync.Mutex
	connection    *amqp.Connection
	channel       *amqp.Channel
	notifyConfirm chan amqp.Confirmation
	exchange      string
	log           logrus.FieldLogger
}

// NewRabbitMQPublisher dials url and declares exchange
func NewRabbitMQPublisher(url, exchange string, log logrus.FieldLogger) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open producer channel: %w", err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to put channel in confirm mode: %w", err)
	}
	notifyConfirm := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	log.WithField("exchange", exchange).Info("RabbitMQ publisher initialized")

	return &RabbitMQPublisher{
		connection:    conn,
		channel:       ch,
		notifyConfirm: notifyConfirm,
		exchange:      exchange,
		log:           log,
	}, nil
}

// Publish implements Publisher. Confirms arrive in publish order, so the
// mutex keeps one message in flight per channel.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.channel.Publish(
		p.exchange, // exchange
		event.Type, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    event.ID,
			Type:         event.Type,
			Timestamp:    event.OccurredAt,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	select {
	case confirm := <-p.notifyConfirm:
		if !confirm.Ack {
			return errors.New("message published but not confirmed by broker")
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(publishConfirmTimeout):
		return errors.New("publish confirmation timeout")
	}
}

// Close implements Publisher
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.WithError(err).Warn("Failed to close RabbitMQ channel")
		}
	}
	if p.connection != nil {
		return p.connection.Close()
	}
	return nil
}
