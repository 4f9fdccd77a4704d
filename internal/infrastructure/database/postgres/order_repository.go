// internal/infrastructure/database/postgres/order_repository.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sortableColumns whitelists ORDER BY input
var sortableColumns = map[string]string{
	"created_at":   "created_at",
	"total_amount": "total_amount",
	"order_number": "order_number",
	"status":       "status",
}

// statusTimestamps names the column stamped when an order enters a status
var statusTimestamps = map[order.OrderStatus]string{
	order.OrderStatusPaid:      "paid_at",
	order.OrderStatusShipped:   "shipped_at",
	order.OrderStatusFulfilled: "fulfilled_at",
	order.OrderStatusCancelled: "cancelled_at",
}

// OrderRepository implements order.Repository
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

var _ order.Repository = (*OrderRepository)(nil)

// Create inserts the order with its items and history
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return translate(conn(ctx, r.db).Create(o).Error)
}

func (r *OrderRepository) SetOrderNumber(ctx context.Context, id uint, number string) error {
	result := conn(ctx, r.db).Model(&order.Order{}).Where("id = ?", id).Update("order_number", number)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("order", id)
	}
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	var o order.Order
	if err := withDetails(conn(ctx, r.db)).First(&o, id).Error; err != nil {
		return nil, notFound(err, "order", id)
	}
	return &o, nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	var o order.Order
	if err := withDetails(conn(ctx, r.db)).Where("order_number = ?", number).First(&o).Error; err != nil {
		return nil, notFound(err, "order", number)
	}
	return &o, nil
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	var o order.Order
	if err := withDetails(conn(ctx, r.db)).Where("idempotency_key = ?", key).First(&o).Error; err != nil {
		return nil, notFound(err, "order", key)
	}
	return &o, nil
}

// LockByID takes the row lock first, then loads the order with its lines
func (r *OrderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	var locked order.Order
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&locked, id).Error
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return r.GetByID(ctx, id)
}

// UpdateStatus is a compare-and-set on the current status
func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, from, to order.OrderStatus, at time.Time) error {
	updates := map[string]interface{}{"status": to, "updated_at": at}
	if column, ok := statusTimestamps[to]; ok {
		updates[column] = at
	}

	db := conn(ctx, r.db)
	result := db.Model(&order.Order{}).Where("id = ? AND status = ?", id, from).Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var o order.Order
		if err := db.Select("id").First(&o, id).Error; err != nil {
			return notFound(err, "order", id)
		}
		return apperror.ErrConflict
	}
	return nil
}

func (r *OrderRepository) AddHistory(ctx context.Context, h *order.OrderStatusHistory) error {
	return translate(conn(ctx, r.db).Create(h).Error)
}

func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	query := conn(ctx, r.db).Model(&order.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	column, ok := sortableColumns[filter.SortBy]
	if !ok {
		column = "created_at"
	}
	direction := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		direction = "ASC"
	}

	var orders []order.Order
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order(fmt.Sprintf("%s %s, id %s", column, direction, direction)).
		Offset(pagination.Offset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return orders, total, nil
}

func withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}
