// internal/domain/notification/service.go
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/money"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
)

// Repository persists notifications
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	CreateBatch(ctx context.Context, ns []Notification) error
	List(ctx context.Context, filter ListFilter) ([]Notification, int64, error)
	CountUnread(ctx context.Context, userID uint, now time.Time) (int64, error)
	MarkAsRead(ctx context.Context, userID, id uint, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, userID, id uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AdminDirectory resolves the users holding the admin role
type AdminDirectory interface {
	ListAdminIDs(ctx context.Context) ([]uint, error)
}

// Publisher pushes realtime events to connected clients. A user without a
// live connection is not an error.
type Publisher interface {
	Publish(ctx context.Context, userID uint, event string, payload any) error
	PublishToRole(ctx context.Context, role, event string, payload any) error
}

// Dispatcher persists notifications and pushes them best-effort
type Dispatcher struct {
	repo      Repository
	admins    AdminDirectory
	publisher Publisher
	ttl       time.Duration
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

// NewDispatcher creates a notification dispatcher
func NewDispatcher(repo Repository, admins AdminDirectory, publisher Publisher, ttl time.Duration, m *metrics.Metrics, log logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		admins:    admins,
		publisher: publisher,
		ttl:       ttl,
		metrics:   m,
		log:       log,
	}
}

// ListResponse represents a page of notifications
type ListResponse struct {
	Notifications []Notification        `json:"notifications"`
	Pagination    pagination.Pagination `json:"pagination"`
}

// Notify persists a notification for userID and pushes it. Admin-relevant
// types are also fanned out to every admin.
func (d *Dispatcher) Notify(ctx context.Context, userID uint, msg Message) (*Notification, error) {
	if userID == 0 {
		return nil, apperror.Invalid("notification recipient is required")
	}

	n, err := d.build(userID, msg)
	if err != nil {
		return nil, err
	}
	if err := d.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	d.push(ctx, n)

	if n.Type.IsAdminRelevant() {
		if err := d.fanOut(ctx, msg, userID); err != nil {
			d.log.WithError(err).WithField("type", n.Type).Warn("Failed to fan out notification to admins")
		}
	}

	return n, nil
}

// NotifyAdmins persists one notification per admin and pushes it once to
// the admin role
func (d *Dispatcher) NotifyAdmins(ctx context.Context, msg Message) error {
	return d.fanOut(ctx, msg, 0)
}

// NotifyLowStock tells admins a variant reached its alert threshold
func (d *Dispatcher) NotifyLowStock(ctx context.Context, variantID uint, productName, variantLabel string, stock, threshold int) {
	name := productName
	if variantLabel != "" {
		name = fmt.Sprintf("%s (%s)", productName, variantLabel)
	}
	priority := PriorityHigh
	if stock == 0 {
		priority = PriorityUrgent
	}

	id := variantID
	err := d.NotifyAdmins(ctx, Message{
		Type:            TypeLowStock,
		Title:           "Low stock",
		Body:            fmt.Sprintf("%s is down to %d units (threshold %d)", name, stock, threshold),
		Priority:        priority,
		RelatedEntity:   "product_variant",
		RelatedEntityID: &id,
	})
	if err != nil {
		d.log.WithError(err).WithField("variant_id", variantID).Warn("Failed to send low stock notification")
	}
}

// NotifyNewOrder tells admins about a placed order
func (d *Dispatcher) NotifyNewOrder(ctx context.Context, orderID uint, orderNumber string, total int64, currency string) {
	id := orderID
	err := d.NotifyAdmins(ctx, Message{
		Type:            TypeNewOrder,
		Title:           "New order",
		Body:            fmt.Sprintf("Order %s was placed for %s", orderNumber, money.Format(total, currency)),
		Priority:        PriorityNormal,
		RelatedEntity:   "order",
		RelatedEntityID: &id,
	})
	if err != nil {
		d.log.WithError(err).WithField("order_id", orderID).Warn("Failed to send new order notification")
	}
}

// List returns a page of the user's unexpired notifications
func (d *Dispatcher) List(ctx context.Context, userID uint, unreadOnly bool, page, limit int) (*ListResponse, error) {
	page, limit = pagination.Normalize(page, limit)

	items, total, err := d.repo.List(ctx, ListFilter{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Page:       page,
		Limit:      limit,
		Now:        time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return &ListResponse{
		Notifications: items,
		Pagination:    pagination.New(page, limit, total),
	}, nil
}

// UnreadCount counts the user's unread, unexpired notifications
func (d *Dispatcher) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return d.repo.CountUnread(ctx, userID, time.Now())
}

// MarkAsRead marks one notification read. An already-read notification
// keeps its original read time.
func (d *Dispatcher) MarkAsRead(ctx context.Context, userID, id uint) error {
	return d.repo.MarkAsRead(ctx, userID, id, time.Now())
}

// MarkAllAsRead marks every unread notification of the user read
func (d *Dispatcher) MarkAllAsRead(ctx context.Context, userID uint) (int64, error) {
	return d.repo.MarkAllAsRead(ctx, userID, time.Now())
}

// Delete removes one of the user's notifications
func (d *Dispatcher) Delete(ctx context.Context, userID, id uint) error {
	return d.repo.Delete(ctx, userID, id)
}

// PurgeExpired removes notifications that expired before now
func (d *Dispatcher) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := d.repo.DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	if n > 0 {
		d.log.WithField("count", n).Info("Purged expired notifications")
	}
	return n, nil
}

func (d *Dispatcher) build(userID uint, msg Message) (*Notification, error) {
	if msg.Type == "" || msg.Title == "" {
		return nil, apperror.Invalid("notification type and title are required")
	}
	priority := msg.Priority
	if priority == "" {
		priority = PriorityNormal
	}
	expiresAt := msg.ExpiresAt
	if expiresAt == nil && d.ttl > 0 {
		t := time.Now().Add(d.ttl)
		expiresAt = &t
	}
	return &Notification{
		UserID:          userID,
		Type:            msg.Type,
		Title:           msg.Title,
		Message:         msg.Body,
		Priority:        priority,
		RelatedEntity:   msg.RelatedEntity,
		RelatedEntityID: msg.RelatedEntityID,
		ExpiresAt:       expiresAt,
	}, nil
}

func (d *Dispatcher) fanOut(ctx context.Context, msg Message, skipUserID uint) error {
	adminIDs, err := d.admins.ListAdminIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	rows := make([]Notification, 0, len(adminIDs))
	for _, id := range adminIDs {
		if id == skipUserID {
			continue
		}
		n, err := d.build(id, msg)
		if err != nil {
			return err
		}
		rows = append(rows, *n)
	}
	if len(rows) == 0 {
		return nil
	}

	if err := d.repo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("failed to create admin notifications: %w", err)
	}

	if d.publisher == nil {
		d.metrics.Notification(string(msg.Type), "stored")
		return nil
	}
	if err := d.publisher.PublishToRole(ctx, RoleAdmin, EventCreated, newRoleBroadcast(rows)); err != nil {
		d.metrics.Notification(string(msg.Type), "stored")
		d.log.WithError(err).WithField("type", msg.Type).Warn("Failed to push admin notification")
		return nil
	}
	d.metrics.Notification(string(msg.Type), "pushed")
	return nil
}

func (d *Dispatcher) push(ctx context.Context, n *Notification) {
	if d.publisher == nil {
		d.metrics.Notification(string(n.Type), "stored")
		return
	}
	if err := d.publisher.Publish(ctx, n.UserID, EventCreated, n); err != nil {
		d.metrics.Notification(string(n.Type), "stored")
		d.log.WithError(err).WithFields(logrus.Fields{
			"user_id":         n.UserID,
			"notification_id": n.ID,
		}).Warn("Failed to push notification")
		return
	}
	d.metrics.Notification(string(n.Type), "pushed")
}
