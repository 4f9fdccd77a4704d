// internal/infrastructure/database/redis/publisher.go
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/your-org/storefront-backend/internal/domain/notification"
)

// UserChannel is the pub/sub channel a user's realtime connection listens on
func UserChannel(userID uint) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

// RoleChannel is the pub/sub channel shared by every user with role
func RoleChannel(role string) string {
	return "notifications:role:" + role
}

// Message is the envelope published on notification channels
type Message struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationPublisher pushes notifications to realtime subscribers over
// Redis pub/sub
type NotificationPublisher struct {
	rdb redis.UniversalClient
}

// NewNotificationPublisher creates a publisher
func NewNotificationPublisher(rdb redis.UniversalClient) *NotificationPublisher {
	return &NotificationPublisher{rdb: rdb}
}

var _ notification.Publisher = (*NotificationPublisher)(nil)

// Publish implements notification.Publisher
func (p *NotificationPublisher) Publish(ctx context.Context, userID uint, event string, payload any) error {
	return p.publish(ctx, UserChannel(userID), event, payload)
}

// PublishToRole implements notification.Publisher
func (p *NotificationPublisher) PublishToRole(ctx context.Context, role, event string, payload any) error {
	return p.publish(ctx, RoleChannel(role), event, payload)
}

func (p *NotificationPublisher) publish(ctx context.Context, channel, event string, payload any) error {
	body, err := json.Marshal(Message{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", event, err)
	}
	if err := p.rdb.Publish(ctx, channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}
