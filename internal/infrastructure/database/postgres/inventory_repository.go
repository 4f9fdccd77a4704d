// internal/infrastructure/database/postgres/inventory_repository.go
package postgres

import (
	"context"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const stockLevelColumns = "v.id AS variant_id, v.product_id, p.name AS product_name, v.sku, " +
	"v.name AS variant_name, v.value AS variant_value, v.stock"

// InventoryRepository implements inventory.Repository
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates an inventory repository
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

var _ inventory.Repository = (*InventoryRepository)(nil)

// LockVariant selects the variant row FOR UPDATE. The lock is held until
// the surrounding transaction ends.
func (r *InventoryRepository) LockVariant(ctx context.Context, variantID uint) (*inventory.StockLevel, error) {
	var level inventory.StockLevel
	err := conn(ctx, r.db).
		Table("product_variants AS v").
		Select(stockLevelColumns).
		Joins("JOIN products p ON p.id = v.product_id").
		Where("v.id = ?", variantID).
		Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "v"}}).
		Take(&level).Error
	if err != nil {
		return nil, notFound(err, "variant", variantID)
	}
	return &level, nil
}

func (r *InventoryRepository) UpdateVariantStock(ctx context.Context, variantID uint, expected, newStock int) error {
	db := conn(ctx, r.db)
	result := db.Model(&product.ProductVariant{}).
		Where("id = ? AND stock = ?", variantID, expected).
		Updates(map[string]interface{}{"stock": newStock, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var v product.ProductVariant
		if err := db.Select("id").First(&v, variantID).Error; err != nil {
			return notFound(err, "variant", variantID)
		}
		return apperror.ErrConflict
	}
	return nil
}

func (r *InventoryRepository) CreateMovement(ctx context.Context, m *inventory.StockMovement) error {
	return translate(conn(ctx, r.db).Create(m).Error)
}

func (r *InventoryRepository) ListMovements(ctx context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, int64, error) {
	query := conn(ctx, r.db).Model(&inventory.StockMovement{})
	if filter.VariantID != nil {
		query = query.Where("variant_id = ?", *filter.VariantID)
	}
	if filter.MovementType != "" {
		query = query.Where("movement_type = ?", filter.MovementType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	var movements []inventory.StockMovement
	err := query.Order("id DESC").
		Offset(pagination.Offset(filter.Page, filter.Limit)).
		Limit(filter.Limit).
		Find(&movements).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return movements, total, nil
}

func (r *InventoryRepository) SumMovements(ctx context.Context, variantID uint) (int, int64, error) {
	var row struct {
		Total int
		Count int64
	}
	err := conn(ctx, r.db).Model(&inventory.StockMovement{}).
		Select("COALESCE(SUM(quantity), 0) AS total, COUNT(*) AS count").
		Where("variant_id = ?", variantID).
		Scan(&row).Error
	if err != nil {
		return 0, 0, translate(err)
	}
	return row.Total, row.Count, nil
}

func (r *InventoryRepository) GetAlert(ctx context.Context, variantID uint) (*inventory.StockAlert, error) {
	var alert inventory.StockAlert
	if err := conn(ctx, r.db).Where("variant_id = ?", variantID).First(&alert).Error; err != nil {
		return nil, notFound(err, "stock alert for variant", variantID)
	}
	return &alert, nil
}

// SaveAlert inserts a new alert or writes every column of an existing one
func (r *InventoryRepository) SaveAlert(ctx context.Context, alert *inventory.StockAlert) error {
	db := conn(ctx, r.db)
	if alert.ID != 0 {
		return translate(db.Save(alert).Error)
	}

	active := alert.IsActive
	if err := db.Create(alert).Error; err != nil {
		return translate(err)
	}
	// is_active defaults to true, so a disabled alert needs a second write
	if !active {
		alert.IsActive = false
		return translate(db.Model(alert).Update("is_active", false).Error)
	}
	return nil
}

func (r *InventoryRepository) ListActiveAlerts(ctx context.Context) ([]inventory.StockAlert, error) {
	var alerts []inventory.StockAlert
	err := conn(ctx, r.db).
		Where("is_active = ? AND notified_at IS NOT NULL AND is_resolved = ?", true, false).
		Order("variant_id ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, translate(err)
	}
	return alerts, nil
}

type lowStockRow struct {
	inventory.StockLevel
	Threshold  int
	AlertID    *uint
	IsActive   *bool
	NotifiedAt *time.Time
	IsResolved *bool
}

func (r *InventoryRepository) ListLowStock(ctx context.Context, defaultThreshold int) ([]inventory.LowStockItem, error) {
	var rows []lowStockRow
	err := conn(ctx, r.db).
		Table("product_variants AS v").
		Select(stockLevelColumns+", COALESCE(a.threshold, ?) AS threshold, a.id AS alert_id, a.is_active, a.notified_at, a.is_resolved", defaultThreshold).
		Joins("JOIN products p ON p.id = v.product_id").
		Joins("LEFT JOIN stock_alerts a ON a.variant_id = v.id").
		Where("v.is_active = ?", true).
		Where("(a.id IS NULL OR a.is_active = ?)", true).
		Where("v.stock <= COALESCE(a.threshold, ?)", defaultThreshold).
		Order("v.stock ASC, v.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err)
	}

	items := make([]inventory.LowStockItem, 0, len(rows))
	for _, row := range rows {
		item := inventory.LowStockItem{
			StockLevel: row.StockLevel,
			Threshold:  row.Threshold,
			AlertState: inventory.AlertStateNone,
		}
		if row.AlertID != nil {
			alert := inventory.StockAlert{
				ID:         *row.AlertID,
				IsActive:   row.IsActive != nil && *row.IsActive,
				NotifiedAt: row.NotifiedAt,
				IsResolved: row.IsResolved != nil && *row.IsResolved,
			}
			item.HasAlert = true
			item.AlertState = alert.State()
		}
		items = append(items, item)
	}
	return items, nil
}
