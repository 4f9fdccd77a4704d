// internal/domain/product/entity.go
package product

import (
	"time"
)

// Product is the catalog read model the cart and checkout depend on
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SKU         string    `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name        string    `gorm:"not null;size:255" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null;size:255" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Price       int64     `gorm:"not null;default:0" json:"price"` // Display price in cents
	IsPublished bool      `gorm:"default:false;index" json:"is_published"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relationships
	Variants []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"variants,omitempty"`
}

// ProductVariant is a purchasable SKU with its own price and stock.
// Stock only changes through the inventory ledger.
type ProductVariant struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"not null;index" json:"product_id"`
	SKU       string    `gorm:"uniqueIndex;not null;size:100" json:"sku"`
	Name      string    `gorm:"not null;size:100" json:"name"`  // e.g. "Size"
	Value     string    `gorm:"not null;size:100" json:"value"` // e.g. "XL"
	Price     int64     `gorm:"not null" json:"price"`          // In cents
	CostPrice int64     `gorm:"default:0" json:"cost_price"`
	Stock     int       `gorm:"not null;default:0;check:chk_product_variants_stock,stock >= 0" json:"stock"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides
func (Product) TableName() string        { return "products" }
func (ProductVariant) TableName() string { return "product_variants" }

// ActiveVariants returns the variants that can currently be sold
func (p *Product) ActiveVariants() []ProductVariant {
	active := make([]ProductVariant, 0, len(p.Variants))
	for _, v := range p.Variants {
		if v.IsActive {
			active = append(active, v)
		}
	}
	return active
}

// FindVariant returns the variant with id, active or not
func (p *Product) FindVariant(id uint) *ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// Label renders "Size: XL" for snapshots and messages
func (v *ProductVariant) Label() string {
	if v.Name == "" {
		return v.Value
	}
	return v.Name + ": " + v.Value
}
