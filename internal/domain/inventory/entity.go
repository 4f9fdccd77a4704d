// internal/domain/inventory/entity.go
package inventory

import (
	"time"
)

// MovementType represents the type of stock movement
type MovementType string

const (
	MovementTypeAddition   MovementType = "addition"   // Goods received
	MovementTypeSale       MovementType = "sale"       // Checkout, signed negative
	MovementTypeReturn     MovementType = "return"     // Cancellation restock
	MovementTypeDamage     MovementType = "damage"     // Written off, signed negative
	MovementTypeAdjustment MovementType = "adjustment" // Manual signed delta
	MovementTypeCorrection MovementType = "correction" // Stock count, delta = counted - current
)

// Valid reports whether t is a known movement type
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeAddition, MovementTypeSale, MovementTypeReturn,
		MovementTypeDamage, MovementTypeAdjustment, MovementTypeCorrection:
		return true
	}
	return false
}

// StockMovement is one immutable ledger entry. NewStock always equals
// PreviousStock + Quantity.
type StockMovement struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	VariantID     uint         `gorm:"not null;index" json:"variant_id"`
	MovementType  MovementType `gorm:"not null;size:20;index" json:"movement_type"`
	Quantity      int          `gorm:"not null" json:"quantity"`
	PreviousStock int          `gorm:"not null" json:"previous_stock"`
	NewStock      int          `gorm:"not null" json:"new_stock"`
	ReferenceType string       `gorm:"size:50;index:idx_stock_movements_reference" json:"reference_type,omitempty"`
	ReferenceID   *uint        `gorm:"index:idx_stock_movements_reference" json:"reference_id,omitempty"`
	Notes         string       `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy     *uint        `gorm:"index" json:"created_by,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

// StockAlert holds the low-stock threshold of one variant
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	VariantID  uint       `gorm:"uniqueIndex;not null" json:"variant_id"`
	Threshold  int        `gorm:"not null;check:chk_stock_alerts_threshold,threshold >= 0" json:"threshold"`
	IsActive   bool       `gorm:"default:true" json:"is_active"`
	NotifiedAt *time.Time `json:"notified_at,omitempty"`
	IsResolved bool       `gorm:"default:false" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName overrides
func (StockMovement) TableName() string { return "stock_movements" }
func (StockAlert) TableName() string    { return "stock_alerts" }

// AlertState is the position of an alert in its lifecycle
type AlertState string

const (
	AlertStateNone             AlertState = "no_alert"
	AlertStateDisabled         AlertState = "disabled"
	AlertStateActiveUnnotified AlertState = "active_unnotified"
	AlertStateActiveNotified   AlertState = "active_notified"
	AlertStateResolved         AlertState = "resolved"
)

// State derives the lifecycle state from the stored fields
func (a *StockAlert) State() AlertState {
	switch {
	case a == nil:
		return AlertStateNone
	case !a.IsActive:
		return AlertStateDisabled
	case a.NotifiedAt == nil:
		return AlertStateActiveUnnotified
	case a.IsResolved:
		return AlertStateResolved
	default:
		return AlertStateActiveNotified
	}
}

// Reference points a movement at the document that caused it
type Reference struct {
	Type string
	ID   uint
}

// ReferenceOrder is the reference type for checkout and cancellation entries
const ReferenceOrder = "order"

// StockLevel is a variant's current stock with the labels used in messages
type StockLevel struct {
	VariantID    uint   `json:"variant_id"`
	ProductID    uint   `json:"product_id"`
	ProductName  string `json:"product_name"`
	SKU          string `json:"sku"`
	VariantName  string `json:"variant_name"`
	VariantValue string `json:"variant_value"`
	Stock        int    `json:"stock"`
}

// VariantLabel renders "Size: XL"
func (l *StockLevel) VariantLabel() string {
	if l.VariantName == "" {
		return l.VariantValue
	}
	return l.VariantName + ": " + l.VariantValue
}

// LowStockItem is one row of the low-stock report
type LowStockItem struct {
	StockLevel
	Threshold  int        `json:"threshold"`
	HasAlert   bool       `json:"has_alert"`
	AlertState AlertState `json:"alert_state"`
}

// MovementFilter selects ledger entries
type MovementFilter struct {
	VariantID    *uint
	MovementType MovementType
	Page         int
	Limit        int
}

// Reconciliation compares a variant's stock with the sum of its ledger
type Reconciliation struct {
	VariantID     uint  `json:"variant_id"`
	Stock         int   `json:"stock"`
	LedgerSum     int   `json:"ledger_sum"`
	MovementCount int64 `json:"movement_count"`
	Balanced      bool  `json:"balanced"`
}
