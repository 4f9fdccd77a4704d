// internal/infrastructure/database/postgres/product_repository.go
package postgres

import (
	"context"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// ProductRepository implements product.Repository
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a product repository
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

var _ product.Repository = (*ProductRepository)(nil)

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*product.Product, error) {
	var p product.Product
	err := conn(ctx, r.db).
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&p, id).Error
	if err != nil {
		return nil, notFound(err, "product", id)
	}
	return &p, nil
}

func (r *ProductRepository) GetVariant(ctx context.Context, id uint) (*product.ProductVariant, error) {
	var v product.ProductVariant
	if err := conn(ctx, r.db).First(&v, id).Error; err != nil {
		return nil, notFound(err, "variant", id)
	}
	return &v, nil
}

func (r *ProductRepository) SKUExists(ctx context.Context, skus []string) (bool, error) {
	if len(skus) == 0 {
		return false, nil
	}
	db := conn(ctx, r.db)

	var count int64
	if err := db.Model(&product.Product{}).Where("sku IN ?", skus).Count(&count).Error; err != nil {
		return false, translate(err)
	}
	if count > 0 {
		return true, nil
	}
	if err := db.Model(&product.ProductVariant{}).Where("sku IN ?", skus).Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// Create inserts the product and its variants
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	return translate(conn(ctx, r.db).Create(p).Error)
}

func (r *ProductRepository) UpdateVariantPrice(ctx context.Context, variantID uint, price int64) error {
	return r.updateVariant(ctx, variantID, map[string]interface{}{"price": price})
}

func (r *ProductRepository) SetVariantActive(ctx context.Context, variantID uint, active bool) error {
	return r.updateVariant(ctx, variantID, map[string]interface{}{"is_active": active})
}

func (r *ProductRepository) SetPublished(ctx context.Context, productID uint, published bool) error {
	result := conn(ctx, r.db).Model(&product.Product{}).
		Where("id = ?", productID).
		Updates(map[string]interface{}{"is_published": published, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("product", productID)
	}
	return nil
}

func (r *ProductRepository) updateVariant(ctx context.Context, variantID uint, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC()
	result := conn(ctx, r.db).Model(&product.ProductVariant{}).Where("id = ?", variantID).Updates(updates)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("variant", variantID)
	}
	return nil
}
