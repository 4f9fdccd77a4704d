// internal/infrastructure/database/memory/inventory.go
package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// InventoryRepository implements inventory.Repository
type InventoryRepository struct {
	store *Store
}

// NewInventoryRepository creates an inventory repository
func NewInventoryRepository(store *Store) *InventoryRepository {
	return &InventoryRepository{store: store}
}

var _ inventory.Repository = (*InventoryRepository)(nil)

// LockVariant reads the stock level. Row locking is implied by the store
// lock a transaction holds.
func (r *InventoryRepository) LockVariant(ctx context.Context, variantID uint) (*inventory.StockLevel, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	v, ok := r.store.data.variants[variantID]
	if !ok {
		return nil, apperror.NotFound("variant", variantID)
	}
	level := r.levelOf(v)
	return &level, nil
}

func (r *InventoryRepository) UpdateVariantStock(ctx context.Context, variantID uint, expected, newStock int) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	v, ok := r.store.data.variants[variantID]
	if !ok {
		return apperror.NotFound("variant", variantID)
	}
	if v.Stock != expected {
		return apperror.ErrConflict
	}
	if newStock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", apperror.ErrInvalidInput)
	}

	v.Stock = newStock
	v.UpdatedAt = now()
	r.store.data.variants[variantID] = v
	return nil
}

func (r *InventoryRepository) CreateMovement(ctx context.Context, m *inventory.StockMovement) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if _, ok := r.store.data.variants[m.VariantID]; !ok {
		return apperror.NotFound("variant", m.VariantID)
	}
	m.ID = r.store.data.nextID("stock_movements")
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now()
	}
	r.store.data.movements[m.ID] = *m
	return nil
}

func (r *InventoryRepository) ListMovements(ctx context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	rows := make([]inventory.StockMovement, 0)
	for _, m := range r.store.data.movements {
		if filter.VariantID != nil && m.VariantID != *filter.VariantID {
			continue
		}
		if filter.MovementType != "" && m.MovementType != filter.MovementType {
			continue
		}
		rows = append(rows, m)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID > rows[j].ID })

	return page(rows, filter.Page, filter.Limit), int64(len(rows)), nil
}

func (r *InventoryRepository) SumMovements(ctx context.Context, variantID uint) (int, int64, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	var sum int
	var count int64
	for _, m := range r.store.data.movements {
		if m.VariantID == variantID {
			sum += m.Quantity
			count++
		}
	}
	return sum, count, nil
}

func (r *InventoryRepository) GetAlert(ctx context.Context, variantID uint) (*inventory.StockAlert, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	alert, ok := r.store.data.alerts[variantID]
	if !ok {
		return nil, apperror.NotFound("stock alert for variant", variantID)
	}
	return &alert, nil
}

func (r *InventoryRepository) SaveAlert(ctx context.Context, alert *inventory.StockAlert) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if alert.Threshold < 0 {
		return fmt.Errorf("%w: threshold cannot be negative", apperror.ErrInvalidInput)
	}
	existing, exists := r.store.data.alerts[alert.VariantID]

	ts := now()
	if alert.ID == 0 {
		if exists {
			return apperror.ErrDuplicate
		}
		if _, ok := r.store.data.variants[alert.VariantID]; !ok {
			return apperror.NotFound("variant", alert.VariantID)
		}
		alert.ID = r.store.data.nextID("stock_alerts")
		alert.CreatedAt = ts
	} else {
		if !exists || existing.ID != alert.ID {
			return apperror.NotFound("stock alert", alert.ID)
		}
		alert.CreatedAt = existing.CreatedAt
	}
	alert.UpdatedAt = ts
	r.store.data.alerts[alert.VariantID] = *alert
	return nil
}

func (r *InventoryRepository) ListActiveAlerts(ctx context.Context) ([]inventory.StockAlert, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	alerts := make([]inventory.StockAlert, 0)
	for _, a := range r.store.data.alerts {
		if a.State() == inventory.AlertStateActiveNotified {
			alerts = append(alerts, a)
		}
	}
	sort.Slice(alerts, func(i, j int) bool { return alerts[i].VariantID < alerts[j].VariantID })
	return alerts, nil
}

func (r *InventoryRepository) ListLowStock(ctx context.Context, defaultThreshold int) ([]inventory.LowStockItem, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	items := make([]inventory.LowStockItem, 0)
	for _, v := range r.store.data.variants {
		if !v.IsActive {
			continue
		}
		item := inventory.LowStockItem{
			StockLevel: r.levelOf(v),
			Threshold:  defaultThreshold,
			AlertState: inventory.AlertStateNone,
		}
		if alert, ok := r.store.data.alerts[v.ID]; ok {
			if !alert.IsActive {
				continue
			}
			item.Threshold = alert.Threshold
			item.HasAlert = true
			item.AlertState = alert.State()
		}
		if item.Stock <= item.Threshold {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Stock != items[j].Stock {
			return items[i].Stock < items[j].Stock
		}
		return items[i].VariantID < items[j].VariantID
	})
	return items, nil
}

func (r *InventoryRepository) levelOf(v product.ProductVariant) inventory.StockLevel {
	p := r.store.data.products[v.ProductID]
	return inventory.StockLevel{
		VariantID:    v.ID,
		ProductID:    v.ProductID,
		ProductName:  p.Name,
		SKU:          v.SKU,
		VariantName:  v.Name,
		VariantValue: v.Value,
		Stock:        v.Stock,
	}
}
