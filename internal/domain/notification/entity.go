// internal/domain/notification/entity.go
package notification

import (
	"time"
)

// Type represents the kind of notification
type Type string

const (
	TypeOrderPlaced     Type = "order_placed"
	TypeOrderStatus     Type = "order_status"
	TypeOrderCancelled  Type = "order_cancelled"
	TypePaymentReceived Type = "payment_received"
	TypeNewOrder        Type = "new_order"
	TypeLowStock        Type = "low_stock"
	TypeNewUser         Type = "new_user"
	TypePasswordChanged Type = "password_changed"
)

// Priority represents notification urgency
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// RoleAdmin is the role every admin-relevant notification fans out to
const RoleAdmin = "admin"

// EventCreated is the realtime event name pushed for a new notification
const EventCreated = "notification.created"

// IsAdminRelevant reports whether notifications of this type also go to admins
func (t Type) IsAdminRelevant() bool {
	switch t {
	case TypeNewOrder, TypeLowStock, TypeNewUser:
		return true
	}
	return false
}

// Notification is a persisted message for one user
type Notification struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"not null;index:idx_notifications_user_read" json:"user_id"`
	Type            Type       `gorm:"not null;size:50" json:"type"`
	Title           string     `gorm:"not null;size:255" json:"title"`
	Message         string     `gorm:"type:text" json:"message"`
	Priority        Priority   `gorm:"not null;size:20;default:'normal'" json:"priority"`
	IsRead          bool       `gorm:"default:false;index:idx_notifications_user_read" json:"is_read"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
	RelatedEntity   string     `gorm:"size:50" json:"related_entity,omitempty"`
	RelatedEntityID *uint      `json:"related_entity_id,omitempty"`
	ExpiresAt       *time.Time `gorm:"index" json:"expires_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName override
func (Notification) TableName() string { return "notifications" }

// IsExpired reports whether the notification has expired at now
func (n *Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && n.ExpiresAt.Before(now)
}

// Message describes a notification to be created
type Message struct {
	Type            Type
	Title           string
	Body            string
	Priority        Priority
	RelatedEntity   string
	RelatedEntityID *uint
	ExpiresAt       *time.Time
}

// ListFilter selects a page of a user's notifications
type ListFilter struct {
	UserID     uint
	UnreadOnly bool
	Page       int
	Limit      int
	Now        time.Time
}

// RoleBroadcast is the payload pushed to a role channel. Each recipient owns a
// separate persisted row, so it carries no row id; clients refetch their own
// notifications to get one.
type RoleBroadcast struct {
	Type            Type      `json:"type"`
	Title           string    `json:"title"`
	Message         string    `json:"message"`
	Priority        Priority  `json:"priority"`
	RelatedEntity   string    `json:"related_entity,omitempty"`
	RelatedEntityID *uint     `json:"related_entity_id,omitempty"`
	Recipients      int       `json:"recipients"`
	CreatedAt       time.Time `json:"created_at"`
}

func newRoleBroadcast(rows []Notification) RoleBroadcast {
	first := rows[0]
	return RoleBroadcast{
		Type:            first.Type,
		Title:           first.Title,
		Message:         first.Message,
		Priority:        first.Priority,
		RelatedEntity:   first.RelatedEntity,
		RelatedEntityID: first.RelatedEntityID,
		Recipients:      len(rows),
		CreatedAt:       first.CreatedAt,
	}
}
