// internal/domain/order/entity.go
package order

import (
	"fmt"
	"time"
)

// OrderStatus represents the order status
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// transitions lists the statuses reachable from each status
var transitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusPaid, OrderStatusCancelled},
	OrderStatusPaid:      {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:   {OrderStatusFulfilled, OrderStatusCancelled},
	OrderStatusFulfilled: {},
	OrderStatusCancelled: {},
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine allows from -> to
func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Order represents the order entity. Orders and their items are never
// deleted; cancellation is a status.
type Order struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	OrderNumber string      `gorm:"uniqueIndex;not null;size:50" json:"order_number"`
	UserID      *uint       `gorm:"index" json:"user_id"` // Nullable for guest orders
	Status      OrderStatus `gorm:"not null;size:20;default:'pending';index" json:"status"`

	// Financial Information
	SubtotalAmount int64  `gorm:"not null" json:"subtotal_amount"` // In cents
	ShippingAmount int64  `gorm:"default:0" json:"shipping_amount"`
	TotalAmount    int64  `gorm:"not null" json:"total_amount"`
	Currency       string `gorm:"size:3;default:'KES'" json:"currency"`
	PaymentMethod  string `gorm:"not null;size:50" json:"payment_method"`

	// Snapshots taken at checkout
	Customer        Customer `gorm:"embedded;embeddedPrefix:customer_" json:"customer"`
	ShippingAddress Address  `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	ShippingMethod  string   `gorm:"size:50" json:"shipping_method"`
	Notes           string   `gorm:"type:text" json:"notes"`

	// Scoped per buyer; see checkout
	IdempotencyKey *string `gorm:"uniqueIndex;size:255" json:"-"`

	// Timestamps
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	FulfilledAt *time.Time `json:"fulfilled_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationships
	Items         []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"items"`
	StatusHistory []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"status_history,omitempty"`
}

// OrderItem is an immutable line of an order with the price frozen at
// checkout
type OrderItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	OrderID      uint      `gorm:"not null;index" json:"order_id"`
	ProductID    uint      `gorm:"not null;index" json:"product_id"`
	VariantID    uint      `gorm:"not null;index" json:"variant_id"`
	SKU          string    `gorm:"not null;size:100" json:"sku"`
	Name         string    `gorm:"not null;size:255" json:"name"`
	VariantTitle string    `gorm:"size:255" json:"variant_title"`
	Quantity     int       `gorm:"not null" json:"quantity"`
	Price        int64     `gorm:"not null" json:"price"`       // Price per unit in cents
	TotalPrice   int64     `gorm:"not null" json:"total_price"` // Quantity * Price
	CreatedAt    time.Time `json:"created_at"`
}

// OrderStatusHistory tracks order status changes
type OrderStatusHistory struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	OrderID   uint        `gorm:"not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"not null;size:20" json:"status"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedBy *uint       `gorm:"index" json:"created_by,omitempty"` // Nil for system changes
	CreatedAt time.Time   `json:"created_at"`
}

// Customer is the buyer contact snapshot
type Customer struct {
	FirstName string `gorm:"size:100" json:"first_name" binding:"required"`
	LastName  string `gorm:"size:100" json:"last_name"`
	Email     string `gorm:"size:255" json:"email" binding:"required,email"`
	Phone     string `gorm:"size:20" json:"phone"`
}

// FullName joins first and last name
func (c Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Address represents shipping address (embedded in Order)
type Address struct {
	AddressLine1 string `gorm:"size:255" json:"address_line1" binding:"required"`
	AddressLine2 string `gorm:"size:255" json:"address_line2"`
	City         string `gorm:"size:100" json:"city" binding:"required"`
	State        string `gorm:"size:100" json:"state"`
	PostalCode   string `gorm:"size:20" json:"postal_code"`
	Country      string `gorm:"size:2" json:"country" binding:"required"`
}

// TableName overrides
func (Order) TableName() string              { return "orders" }
func (OrderItem) TableName() string          { return "order_items" }
func (OrderStatusHistory) TableName() string { return "order_status_history" }

// GenerateOrderNumber generates the human readable order number
func (o *Order) GenerateOrderNumber() string {
	// Format: ORD-YYYYMMDD-XXXXX
	return fmt.Sprintf("ORD-%s-%05d", o.CreatedAt.Format("20060102"), o.ID)
}

// CanBeCancelled checks if order can be cancelled
func (o *Order) CanBeCancelled() bool {
	return o.Status.CanTransitionTo(OrderStatusCancelled)
}

// ItemCount sums the quantities of all lines
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// ListFilter selects orders for listing
type ListFilter struct {
	UserID    *uint
	Status    OrderStatus
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}
