// internal/infrastructure/database/memory/cart.go
package memory

import (
	"context"
	"sort"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// CartRepository implements cart.Repository
type CartRepository struct {
	store *Store
}

// NewCartRepository creates a cart repository
func NewCartRepository(store *Store) *CartRepository {
	return &CartRepository{store: store}
}

var _ cart.Repository = (*CartRepository)(nil)

func (r *CartRepository) FindByIdentity(ctx context.Context, id cart.Identity) (*cart.Cart, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	for _, c := range r.store.data.carts {
		if ownedBy(c, id) {
			c.Items = r.itemsOf(c.ID)
			return &c, nil
		}
	}
	if id.IsUser() {
		return nil, apperror.NotFound("cart for user", *id.UserID)
	}
	return nil, apperror.NotFound("cart for session", id.SessionID)
}

func (r *CartRepository) Create(ctx context.Context, c *cart.Cart) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for _, existing := range r.store.data.carts {
		if c.UserID != nil && existing.UserID != nil && *existing.UserID == *c.UserID {
			return apperror.ErrDuplicate
		}
		if c.SessionID != nil && existing.SessionID != nil && *existing.SessionID == *c.SessionID {
			return apperror.ErrDuplicate
		}
	}

	c.ID = r.store.data.nextID("carts")
	c.CreatedAt = now()
	c.UpdatedAt = c.CreatedAt
	row := *c
	row.Items = nil
	r.store.data.carts[c.ID] = row
	return nil
}

func (r *CartRepository) GetItem(ctx context.Context, cartID, itemID uint) (*cart.CartItem, error) {
	r.store.rlock(ctx)
	defer r.store.runlock(ctx)

	item, ok := r.store.data.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return nil, apperror.NotFound("cart item", itemID)
	}
	return &item, nil
}

func (r *CartRepository) CreateItem(ctx context.Context, item *cart.CartItem) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if item.Quantity < 1 {
		return apperror.InvalidQuantity(item.Quantity)
	}
	if _, ok := r.store.data.carts[item.CartID]; !ok {
		return apperror.NotFound("cart", item.CartID)
	}
	for _, existing := range r.store.data.cartItems {
		if existing.CartID == item.CartID && existing.ProductID == item.ProductID && existing.VariantID == item.VariantID {
			return apperror.ErrDuplicate
		}
	}

	item.ID = r.store.data.nextID("cart_items")
	item.CreatedAt = now()
	item.UpdatedAt = item.CreatedAt
	r.store.data.cartItems[item.ID] = *item
	r.touch(item.CartID)
	return nil
}

func (r *CartRepository) UpdateItemQuantity(ctx context.Context, itemID uint, expected, quantity int) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	if quantity < 1 {
		return apperror.InvalidQuantity(quantity)
	}
	item, ok := r.store.data.cartItems[itemID]
	if !ok {
		return apperror.NotFound("cart item", itemID)
	}
	if item.Quantity != expected {
		return apperror.ErrConflict
	}

	item.Quantity = quantity
	item.UpdatedAt = now()
	r.store.data.cartItems[itemID] = item
	r.touch(item.CartID)
	return nil
}

func (r *CartRepository) DeleteItem(ctx context.Context, cartID, itemID uint) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	item, ok := r.store.data.cartItems[itemID]
	if !ok || item.CartID != cartID {
		return apperror.NotFound("cart item", itemID)
	}
	delete(r.store.data.cartItems, itemID)
	r.touch(cartID)
	return nil
}

func (r *CartRepository) ClearItems(ctx context.Context, cartID uint) error {
	r.store.wlock(ctx)
	defer r.store.wunlock(ctx)

	for id, item := range r.store.data.cartItems {
		if item.CartID == cartID {
			delete(r.store.data.cartItems, id)
		}
	}
	r.touch(cartID)
	return nil
}

func (r *CartRepository) itemsOf(cartID uint) []cart.CartItem {
	items := make([]cart.CartItem, 0)
	for _, item := range r.store.data.cartItems {
		if item.CartID == cartID {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (r *CartRepository) touch(cartID uint) {
	if c, ok := r.store.data.carts[cartID]; ok {
		c.UpdatedAt = now()
		r.store.data.carts[cartID] = c
	}
}

func ownedBy(c cart.Cart, id cart.Identity) bool {
	if id.IsUser() {
		return c.UserID != nil && *c.UserID == *id.UserID
	}
	return c.SessionID != nil && *c.SessionID == id.SessionID
}
