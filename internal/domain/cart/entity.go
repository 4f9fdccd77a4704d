// internal/domain/cart/entity.go
package cart

import (
	"time"

	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// Cart belongs to exactly one of a user or an anonymous session. The row
// outlives its items: checkout and Clear only delete the lines.
type Cart struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *uint     `gorm:"uniqueIndex" json:"user_id,omitempty"`
	SessionID *string   `gorm:"uniqueIndex;size:100" json:"session_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Items []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE;" json:"items,omitempty"`
}

// CartItem is one line of a cart. A product/variant pair appears at most
// once per cart; adding it again increments the quantity.
type CartItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CartID       uint      `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"cart_id"`
	ProductID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"product_id"`
	VariantID    uint      `gorm:"not null;uniqueIndex:idx_cart_items_line" json:"variant_id"`
	Quantity     int       `gorm:"not null;check:chk_cart_items_quantity,quantity >= 1" json:"quantity"`
	VariantName  string    `gorm:"size:100" json:"variant_name"`
	VariantValue string    `gorm:"size:100" json:"variant_value"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName overrides
func (Cart) TableName() string     { return "carts" }
func (CartItem) TableName() string { return "cart_items" }

// FindLine returns the line for a product/variant pair
func (c *Cart) FindLine(productID, variantID uint) *CartItem {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantID == variantID {
			return &c.Items[i]
		}
	}
	return nil
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Identity names the owner of a cart: a signed-in user or an anonymous
// session, never both
type Identity struct {
	UserID    *uint
	SessionID string
}

// ForUser returns a user identity
func ForUser(userID uint) Identity {
	return Identity{UserID: &userID}
}

// ForSession returns an anonymous session identity
func ForSession(sessionID string) Identity {
	return Identity{SessionID: sessionID}
}

// Validate checks that exactly one owner is set
func (i Identity) Validate() error {
	hasUser := i.UserID != nil && *i.UserID != 0
	hasSession := i.SessionID != ""
	if hasUser == hasSession {
		return apperror.Invalid("cart identity needs exactly one of user id or session id")
	}
	return nil
}

// IsUser reports whether the identity is a signed-in user
func (i Identity) IsUser() bool {
	return i.UserID != nil && *i.UserID != 0
}

// CartTotals represents calculated cart totals
type CartTotals struct {
	ItemCount     int   `json:"item_count"`     // Number of unique items
	TotalQuantity int   `json:"total_quantity"` // Sum of all quantities
	SubTotal      int64 `json:"sub_total"`      // At live prices
}
