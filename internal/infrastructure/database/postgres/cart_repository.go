// internal/infrastructure/database/postgres/cart_repository.go
package postgres

import (
	"context"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"gorm.io/gorm"
)

// CartRepository implements cart.Repository
type CartRepository struct {
	db *gorm.DB
}

// NewCartRepository creates a cart repository
func NewCartRepository(db *gorm.DB) *CartRepository {
	return &CartRepository{db: db}
}

var _ cart.Repository = (*CartRepository)(nil)

func (r *CartRepository) FindByIdentity(ctx context.Context, id cart.Identity) (*cart.Cart, error) {
	query := conn(ctx, r.db).Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })

	var c cart.Cart
	var key any
	if id.IsUser() {
		key = *id.UserID
		query = query.Where("user_id = ?", *id.UserID)
	} else {
		key = id.SessionID
		query = query.Where("session_id = ?", id.SessionID)
	}
	if err := query.First(&c).Error; err != nil {
		return nil, notFound(err, "cart", key)
	}
	return &c, nil
}

func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	return translate(conn(ctx, r.db).Omit("Items").Create(c).Error)
}

func (r *CartRepository) GetItem(ctx context.Context, cartID, itemID uint) (*cart.CartItem, error) {
	var item cart.CartItem
	err := conn(ctx, r.db).Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error
	if err != nil {
		return nil, notFound(err, "cart item", itemID)
	}
	return &item, nil
}

func (r *CartRepository) CreateItem(ctx context.Context, item *cart.CartItem) error {
	db := conn(ctx, r.db)
	if err := db.Create(item).Error; err != nil {
		return translate(err)
	}
	return r.touch(db, item.CartID)
}

// UpdateItemQuantity is a compare-and-set on the current quantity
func (r *CartRepository) UpdateItemQuantity(ctx context.Context, itemID uint, expected, quantity int) error {
	db := conn(ctx, r.db)
	result := db.Model(&cart.CartItem{}).
		Where("id = ? AND quantity = ?", itemID, expected).
		Updates(map[string]interface{}{"quantity": quantity, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		var item cart.CartItem
		if err := db.Select("id").First(&item, itemID).Error; err != nil {
			return notFound(err, "cart item", itemID)
		}
		return apperror.ErrConflict
	}

	var item cart.CartItem
	if err := db.Select("cart_id").First(&item, itemID).Error; err != nil {
		return translate(err)
	}
	return r.touch(db, item.CartID)
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	db := conn(ctx, r.db)
	result := db.Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&cart.CartItem{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("cart item", itemID)
	}
	return r.touch(db, cartID)
}

func (r *CartRepository) ClearItems(ctx context.Context, cartID uint) error {
	db := conn(ctx, r.db)
	if err := db.Where("cart_id = ?", cartID).Delete(&cart.CartItem{}).Error; err != nil {
		return translate(err)
	}
	return r.touch(db, cartID)
}

func (r *CartRepository) touch(db *gorm.DB, cartID uint) error {
	err := db.Model(&cart.Cart{}).Where("id = ?", cartID).Update("updated_at", time.Now().UTC()).Error
	return translate(err)
}
