// internal/domain/product/service.go
package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
)

// Repository persists the catalog
type Repository interface {
	GetByID(ctx context.Context, id uint) (*Product, error)
	GetVariant(ctx context.Context, id uint) (*ProductVariant, error)
	SKUExists(ctx context.Context, skus []string) (bool, error)
	Create(ctx context.Context, p *Product) error
	UpdateVariantPrice(ctx context.Context, variantID uint, price int64) error
	SetVariantActive(ctx context.Context, variantID uint, active bool) error
	SetPublished(ctx context.Context, productID uint, published bool) error
}

// StockReceiver books the opening stock of a new variant into the ledger
type StockReceiver interface {
	ReceiveInitialStock(ctx context.Context, variantID uint, quantity int, actorID *uint) error
}

// Service handles catalog business logic
type Service struct {
	repo  Repository
	uow   unitofwork.Manager
	stock StockReceiver
	log   logrus.FieldLogger
}

// NewService creates a new product service
func NewService(repo Repository, uow unitofwork.Manager, stock StockReceiver, log logrus.FieldLogger) *Service {
	return &Service{
		repo:  repo,
		uow:   uow,
		stock: stock,
		log:   log,
	}
}

// VariantCreateRequest represents one variant of a new product
type VariantCreateRequest struct {
	SKU          string `json:"sku" binding:"required"`
	Name         string `json:"name"`
	Value        string `json:"value" binding:"required"`
	Price        int64  `json:"price" binding:"required,min=0"`
	CostPrice    int64  `json:"cost_price"`
	InitialStock int    `json:"initial_stock" binding:"min=0"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	SKU         string                 `json:"sku" binding:"required"`
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Price       int64                  `json:"price"`
	IsPublished bool                   `json:"is_published"`
	Variants    []VariantCreateRequest `json:"variants" binding:"required,min=1,dive"`
}

// GetProduct retrieves a product with all of its variants
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	return s.repo.GetByID(ctx, id)
}

// GetVariant retrieves a single variant
func (s *Service) GetVariant(ctx context.Context, id uint) (*ProductVariant, error) {
	return s.repo.GetVariant(ctx, id)
}

// CreateProduct creates a product and books each variant's opening stock
// through the ledger, so the ledger balances from the first unit.
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest, actorID *uint) (*Product, error) {
	if len(req.Variants) == 0 {
		return nil, apperror.Invalid("a product needs at least one variant")
	}

	skus := []string{req.SKU}
	for _, v := range req.Variants {
		if v.Price < 0 {
			return nil, apperror.Invalid("variant %s has a negative price", v.SKU)
		}
		if v.InitialStock < 0 {
			return nil, apperror.InvalidQuantity(v.InitialStock)
		}
		skus = append(skus, v.SKU)
	}

	product := &Product{
		SKU:         req.SKU,
		Name:        req.Name,
		Slug:        generateSlug(req.Name, req.SKU),
		Description: req.Description,
		Price:       req.Price,
		IsPublished: req.IsPublished,
	}
	for _, v := range req.Variants {
		product.Variants = append(product.Variants, ProductVariant{
			SKU:       v.SKU,
			Name:      v.Name,
			Value:     v.Value,
			Price:     v.Price,
			CostPrice: v.CostPrice,
			IsActive:  true,
		})
	}
	if product.Price == 0 {
		product.Price = req.Variants[0].Price
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		exists, err := s.repo.SKUExists(ctx, skus)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: SKU already in use", apperror.ErrDuplicate)
		}

		if err := s.repo.Create(ctx, product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}

		for i, v := range req.Variants {
			if v.InitialStock == 0 {
				continue
			}
			if err := s.stock.ReceiveInitialStock(ctx, product.Variants[i].ID, v.InitialStock, actorID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"product_id": product.ID,
		"sku":        product.SKU,
		"variants":   len(product.Variants),
	}).Info("Product created")

	return s.repo.GetByID(ctx, product.ID)
}

// UpdateVariantPrice changes the live price. Placed orders keep the price
// they were checked out with.
func (s *Service) UpdateVariantPrice(ctx context.Context, variantID uint, price int64) (*ProductVariant, error) {
	if price < 0 {
		return nil, apperror.Invalid("price cannot be negative")
	}
	if err := s.repo.UpdateVariantPrice(ctx, variantID, price); err != nil {
		return nil, err
	}
	return s.repo.GetVariant(ctx, variantID)
}

// SetVariantActive enables or disables a variant for sale
func (s *Service) SetVariantActive(ctx context.Context, variantID uint, active bool) error {
	return s.repo.SetVariantActive(ctx, variantID, active)
}

// SetPublished publishes or unpublishes a product
func (s *Service) SetPublished(ctx context.Context, productID uint, published bool) error {
	return s.repo.SetPublished(ctx, productID, published)
}

// generateSlug generates URL-friendly slug from name
func generateSlug(name, sku string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "_", "-")
	return slug + "-" + strings.ToLower(sku)
}
