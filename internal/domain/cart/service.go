// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/money"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
)

// Repository persists carts and their lines. Create and CreateItem return
// apperror.ErrDuplicate on a uniqueness violation; UpdateItemQuantity
// returns apperror.ErrConflict when the line no longer holds expected.
type Repository interface {
	FindByIdentity(ctx context.Context, id Identity) (*Cart, error)
	Create(ctx context.Context, c *Cart) error
	GetItem(ctx context.Context, cartID, itemID uint) (*CartItem, error)
	CreateItem(ctx context.Context, item *CartItem) error
	UpdateItemQuantity(ctx context.Context, itemID uint, expected, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID uint) error
	ClearItems(ctx context.Context, cartID uint) error
}

// ProductReader loads a product with all of its variants
type ProductReader interface {
	GetByID(ctx context.Context, id uint) (*product.Product, error)
}

// Service handles cart business logic
type Service struct {
	repo     Repository
	products ProductReader
	uow      unitofwork.Manager
	policy   product.VariantPolicy
	log      logrus.FieldLogger
}

// NewService creates a new cart service
func NewService(repo Repository, products ProductReader, uow unitofwork.Manager, policy product.VariantPolicy, log logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		uow:      uow,
		policy:   policy,
		log:      log,
	}
}

// CartItemResponse represents a cart line priced at the live variant price
type CartItemResponse struct {
	ID           uint   `json:"id"`
	ProductID    uint   `json:"product_id"`
	VariantID    uint   `json:"variant_id"`
	ProductName  string `json:"product_name"`
	SKU          string `json:"sku"`
	VariantName  string `json:"variant_name"`
	VariantValue string `json:"variant_value"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	LineTotal    int64  `json:"line_total"`
	Available    int    `json:"available"`
	Purchasable  bool   `json:"purchasable"`
}

// CartResponse represents a shopping cart with items and summary
type CartResponse struct {
	ID        uint               `json:"id"`
	UserID    *uint              `json:"user_id,omitempty"`
	SessionID *string            `json:"session_id,omitempty"`
	Items     []CartItemResponse `json:"items"`
	Totals    CartTotals         `json:"totals"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// AddToCartRequest represents add to cart request
type AddToCartRequest struct {
	ProductID uint  `json:"product_id" binding:"required"`
	VariantID *uint `json:"variant_id"`
	Quantity  int   `json:"quantity" binding:"required"`
}

// UpdateCartItemRequest represents update cart item request
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetOrCreate returns the identity's cart, creating it on first use. A
// concurrent creation of the same cart is recovered by re-reading it.
func (s *Service) GetOrCreate(ctx context.Context, id Identity) (*Cart, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	c, err := s.repo.FindByIdentity(ctx, id)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	c = &Cart{UserID: id.UserID}
	if !id.IsUser() {
		sessionID := id.SessionID
		c.SessionID = &sessionID
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return s.repo.FindByIdentity(ctx, id)
		}
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return c, nil
}

// GetCart returns the cart view with live prices
func (s *Service) GetCart(ctx context.Context, id Identity) (*CartResponse, error) {
	c, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, c), nil
}

// AddItem adds quantity units of a product variant, merging with an
// existing line. The merged quantity must be in stock.
func (s *Service) AddItem(ctx context.Context, id Identity, req *AddToCartRequest) (*CartResponse, error) {
	if req.Quantity < 1 {
		return nil, apperror.InvalidQuantity(req.Quantity)
	}

	c, err := s.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		p, variant, err := s.resolve(ctx, req.ProductID, req.VariantID)
		if err != nil {
			return err
		}

		current, err := s.repo.FindByIdentity(ctx, id)
		if err != nil {
			return err
		}
		existing := current.FindLine(p.ID, variant.ID)

		want := req.Quantity
		if existing != nil {
			want += existing.Quantity
		}
		if variant.Stock < want {
			return insufficient(p, variant, want)
		}

		if existing != nil {
			return s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity, want)
		}

		err = s.repo.CreateItem(ctx, &CartItem{
			CartID:       c.ID,
			ProductID:    p.ID,
			VariantID:    variant.ID,
			Quantity:     req.Quantity,
			VariantName:  variant.Name,
			VariantValue: variant.Value,
		})
		if errors.Is(err, apperror.ErrDuplicate) {
			// Lost a race with another add of the same line; retry as an increment
			return fmt.Errorf("%w: cart line created concurrently", apperror.ErrConflict)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"cart_id":    c.ID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	}).Debug("Item added to cart")

	return s.GetCart(ctx, id)
}

// UpdateQuantity sets a line's quantity. Zero or less removes the line;
// an increase is checked against stock.
func (s *Service) UpdateQuantity(ctx context.Context, id Identity, itemID uint, quantity int) (*CartResponse, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, id, itemID)
	}

	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		item, err := s.repo.GetItem(ctx, c.ID, itemID)
		if err != nil {
			return err
		}
		if quantity == item.Quantity {
			return nil
		}

		if quantity > item.Quantity {
			variantID := item.VariantID
			p, variant, err := s.resolve(ctx, item.ProductID, &variantID)
			if err != nil {
				return err
			}
			if variant.Stock < quantity {
				return insufficient(p, variant, quantity)
			}
		}

		return s.repo.UpdateItemQuantity(ctx, item.ID, item.Quantity, quantity)
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(ctx, id)
}

// RemoveItem deletes one line
func (s *Service) RemoveItem(ctx context.Context, id Identity, itemID uint) (*CartResponse, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.DeleteItem(ctx, c.ID, itemID); err != nil {
		return nil, err
	}
	return s.GetCart(ctx, id)
}

// Clear deletes every line. The cart itself is kept.
func (s *Service) Clear(ctx context.Context, id Identity) error {
	if err := id.Validate(); err != nil {
		return err
	}
	c, err := s.repo.FindByIdentity(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	if err := s.repo.ClearItems(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ComputeSubtotal sums every line at the live variant price
func (s *Service) ComputeSubtotal(ctx context.Context, c *Cart) (int64, error) {
	var subtotal int64
	for _, item := range c.Items {
		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			return 0, err
		}
		variant := p.FindVariant(item.VariantID)
		if variant == nil {
			return 0, apperror.NotFound("variant", item.VariantID)
		}
		subtotal += money.LineTotal(variant.Price, item.Quantity)
	}
	return subtotal, nil
}

// MergeGuestCart moves a session cart into the user's cart after login.
// Quantities of matching lines are summed and capped at live stock; lines
// that can no longer be bought are dropped. The session cart is emptied.
func (s *Service) MergeGuestCart(ctx context.Context, userID uint, sessionID string) (*CartResponse, error) {
	userIdentity := ForUser(userID)
	if sessionID == "" {
		return s.GetCart(ctx, userIdentity)
	}

	guest, err := s.repo.FindByIdentity(ctx, ForSession(sessionID))
	if errors.Is(err, apperror.ErrNotFound) {
		return s.GetCart(ctx, userIdentity)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load guest cart: %w", err)
	}

	userCart, err := s.GetOrCreate(ctx, userIdentity)
	if err != nil {
		return nil, err
	}

	merged := 0
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		merged = 0
		current, err := s.repo.FindByIdentity(ctx, userIdentity)
		if err != nil {
			return err
		}

		for _, line := range guest.Items {
			variantID := line.VariantID
			_, variant, err := s.resolve(ctx, line.ProductID, &variantID)
			if err != nil {
				continue
			}

			existing := current.FindLine(line.ProductID, line.VariantID)
			want := line.Quantity
			if existing != nil {
				want += existing.Quantity
			}
			if want > variant.Stock {
				want = variant.Stock
			}

			switch {
			case existing != nil && want > existing.Quantity:
				if err := s.repo.UpdateItemQuantity(ctx, existing.ID, existing.Quantity, want); err != nil {
					return err
				}
			case existing == nil && want > 0:
				err := s.repo.CreateItem(ctx, &CartItem{
					CartID:       userCart.ID,
					ProductID:    line.ProductID,
					VariantID:    line.VariantID,
					Quantity:     want,
					VariantName:  line.VariantName,
					VariantValue: line.VariantValue,
				})
				if errors.Is(err, apperror.ErrDuplicate) {
					return fmt.Errorf("%w: cart line created concurrently", apperror.ErrConflict)
				}
				if err != nil {
					return err
				}
			default:
				continue
			}
			merged++
		}

		return s.repo.ClearItems(ctx, guest.ID)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":      userID,
		"merged_lines": merged,
	}).Info("Guest cart merged")

	return s.GetCart(ctx, userIdentity)
}

func (s *Service) find(ctx context.Context, id Identity) (*Cart, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return s.repo.FindByIdentity(ctx, id)
}

// resolve loads a sellable product and picks its variant under the policy
func (s *Service) resolve(ctx context.Context, productID uint, variantID *uint) (*product.Product, *product.ProductVariant, error) {
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, nil, err
	}
	if !p.IsPublished {
		return nil, nil, apperror.Unavailable("product", productID)
	}
	variant, err := s.policy.Resolve(p, variantID)
	if err != nil {
		return nil, nil, err
	}
	return p, variant, nil
}

func (s *Service) view(ctx context.Context, c *Cart) *CartResponse {
	resp := &CartResponse{
		ID:        c.ID,
		UserID:    c.UserID,
		SessionID: c.SessionID,
		Items:     make([]CartItemResponse, 0, len(c.Items)),
		UpdatedAt: c.UpdatedAt,
	}

	for _, item := range c.Items {
		line := CartItemResponse{
			ID:           item.ID,
			ProductID:    item.ProductID,
			VariantID:    item.VariantID,
			VariantName:  item.VariantName,
			VariantValue: item.VariantValue,
			Quantity:     item.Quantity,
		}

		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			s.log.WithError(err).WithField("product_id", item.ProductID).Warn("Cart line refers to a missing product")
		} else if variant := p.FindVariant(item.VariantID); variant != nil {
			line.ProductName = p.Name
			line.SKU = variant.SKU
			line.UnitPrice = variant.Price
			line.LineTotal = money.LineTotal(variant.Price, item.Quantity)
			line.Available = variant.Stock
			line.Purchasable = p.IsPublished && variant.IsActive && variant.Stock >= item.Quantity
		}

		resp.Items = append(resp.Items, line)
		resp.Totals.ItemCount++
		resp.Totals.TotalQuantity += item.Quantity
		resp.Totals.SubTotal += line.LineTotal
	}

	return resp
}

func insufficient(p *product.Product, v *product.ProductVariant, requested int) error {
	return &apperror.InsufficientStockError{
		ProductID:   p.ID,
		ProductName: p.Name,
		VariantID:   v.ID,
		VariantName: v.Label(),
		Available:   v.Stock,
		Requested:   requested,
	}
}
