// internal/infrastructure/database/memory/order.go
package memory

import (
	"context"
	"sort"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// OrderRepository implements order.Repository
type OrderRepository struct {
	store *Store
}

// NewOrderRepository creates an order repository
func NewOrderRepository(store *Store) *OrderRepository {
	return &OrderRepository{store: store}
}

var _ order.Repository = (*OrderRepository)(nil)

func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for _, existing := range r.store.data.orders {
		if existing.OrderNumber == o.OrderNumber {
			return apperror.ErrDuplicate
		}
		if o.IdempotencyKey != nil && existing.IdempotencyKey != nil && *existing.IdempotencyKey == *o.IdempotencyKey {
			return apperror.ErrDuplicate
		}
	}

	ts := now()
	o.ID = r.store.data.nextID("orders")
	o.CreatedAt, o.UpdatedAt = ts, ts
	for i := range o.Items {
		item := &o.Items[i]
		item.ID = r.store.data.nextID("order_items")
		item.OrderID = o.ID
		item.CreatedAt = ts
		r.store.data.orderItems[item.ID] = *item
	}
	for i := range o.StatusHistory {
		h := &o.StatusHistory[i]
		h.ID = r.store.data.nextID("order_status_history")
		h.OrderID = o.ID
		h.CreatedAt = ts
		r.store.data.history[h.ID] = *h
	}

	row := *o
	row.Items, row.StatusHistory = nil, nil
	r.store.data.orders[o.ID] = row
	return nil
}

func (r *OrderRepository) SetOrderNumber(ctx context.Context, id uint, number string) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	o, ok := r.store.data.orders[id]
	if !ok {
		return apperror.NotFound("order", id)
	}
	for otherID, existing := range r.store.data.orders {
		if otherID != id && existing.OrderNumber == number {
			return apperror.ErrDuplicate
		}
	}
	o.OrderNumber = number
	r.store.data.orders[id] = o
	return nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*order.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	o, ok := r.store.data.orders[id]
	if !ok {
		return nil, apperror.NotFound("order", id)
	}
	return r.assemble(o), nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, number string) (*order.Order, error) {
	return r.findOne(ctx, number, func(o order.Order) bool { return o.OrderNumber == number })
}

func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	return r.findOne(ctx, key, func(o order.Order) bool {
		return o.IdempotencyKey != nil && *o.IdempotencyKey == key
	})
}

// LockByID reads the order inside the caller's transaction
func (r *OrderRepository) LockByID(ctx context.Context, id uint) (*order.Order, error) {
	return r.GetByID(ctx, id)
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id uint, from, to order.OrderStatus, at time.Time) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	o, ok := r.store.data.orders[id]
	if !ok {
		return apperror.NotFound("order", id)
	}
	if o.Status != from {
		return apperror.ErrConflict
	}

	o.Status = to
	switch to {
	case order.OrderStatusPaid:
		o.PaidAt = &at
	case order.OrderStatusShipped:
		o.ShippedAt = &at
	case order.OrderStatusFulfilled:
		o.FulfilledAt = &at
	case order.OrderStatusCancelled:
		o.CancelledAt = &at
	}
	o.UpdatedAt = at
	r.store.data.orders[id] = o
	return nil
}

func (r *OrderRepository) AddHistory(ctx context.Context, h *order.OrderStatusHistory) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if _, ok := r.store.data.orders[h.OrderID]; !ok {
		return apperror.NotFound("order", h.OrderID)
	}
	h.ID = r.store.data.nextID("order_status_history")
	if h.CreatedAt.IsZero() {
		h.CreatedAt = now()
	}
	r.store.data.history[h.ID] = *h
	return nil
}

func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]order.Order, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	rows := make([]order.Order, 0)
	for _, o := range r.store.data.orders {
		if filter.UserID != nil && (o.UserID == nil || *o.UserID != *filter.UserID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		rows = append(rows, o)
	}

	less := orderLess(filter.SortBy)
	desc := filter.SortOrder != "asc"
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if desc {
			a, b = b, a
		}
		if less(a, b) != less(b, a) {
			return less(a, b)
		}
		return a.ID < b.ID
	})

	paged := page(rows, filter.Page, filter.Limit)
	out := make([]order.Order, 0, len(paged))
	for _, o := range paged {
		out = append(out, *r.assemble(o))
	}
	return out, int64(len(rows)), nil
}

func orderLess(sortBy string) func(a, b order.Order) bool {
	switch sortBy {
	case "total_amount":
		return func(a, b order.Order) bool { return a.TotalAmount < b.TotalAmount }
	case "order_number":
		return func(a, b order.Order) bool { return a.OrderNumber < b.OrderNumber }
	case "status":
		return func(a, b order.Order) bool { return a.Status < b.Status }
	default:
		return func(a, b order.Order) bool { return a.CreatedAt.Before(b.CreatedAt) }
	}
}

func (r *OrderRepository) findOne(ctx context.Context, key string, match func(o order.Order) bool) (*order.Order, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	for _, o := range r.store.data.orders {
		if match(o) {
			return r.assemble(o), nil
		}
	}
	return nil, apperror.NotFound("order", key)
}

func (r *OrderRepository) assemble(o order.Order) *order.Order {
	o.Items = make([]order.OrderItem, 0)
	for _, item := range r.store.data.orderItems {
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID < o.Items[j].ID })

	o.StatusHistory = make([]order.OrderStatusHistory, 0)
	for _, h := range r.store.data.history {
		if h.OrderID == o.ID {
			o.StatusHistory = append(o.StatusHistory, h)
		}
	}
	sort.Slice(o.StatusHistory, func(i, j int) bool { return o.StatusHistory[i].ID < o.StatusHistory[j].ID })
	return &o
}
