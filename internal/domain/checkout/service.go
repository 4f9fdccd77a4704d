// internal/domain/checkout/service.go
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/events"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/money"
	"github.com/your-org/storefront-backend/internal/pkg/tracing"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
	"go.opentelemetry.io/otel/attribute"
)

// maxIdempotencyKeyLength bounds client supplied keys
const maxIdempotencyKeyLength = 200

// Carts is the cart aggregate as seen by checkout
type Carts interface {
	GetOrCreate(ctx context.Context, id cart.Identity) (*cart.Cart, error)
	Clear(ctx context.Context, id cart.Identity) error
}

// Products loads a product with all of its variants
type Products interface {
	GetByID(ctx context.Context, id uint) (*product.Product, error)
}

// Ledger records sales against stock
type Ledger interface {
	RecordSale(ctx context.Context, variantID uint, quantity int, opts inventory.ChangeOptions) (*inventory.StockMovement, error)
}

// Orders creates orders and sends their confirmation
type Orders interface {
	Create(ctx context.Context, o *order.Order) error
	FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error)
	SendConfirmation(ctx context.Context, o *order.Order)
}

// PaymentPolicy tells which payment methods settle at checkout
type PaymentPolicy interface {
	InitialStatus(method string) order.OrderStatus
}

// AdminNotifier tells admins about new orders
type AdminNotifier interface {
	NotifyNewOrder(ctx context.Context, orderID uint, orderNumber string, total int64, currency string)
}

// Service turns a cart into an order while taking the stock
type Service struct {
	carts    Carts
	products Products
	ledger   Ledger
	orders   Orders
	payments PaymentPolicy
	admins   AdminNotifier
	uow      unitofwork.Manager
	emitter  *events.Emitter
	currency string
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

// NewService creates a new checkout service. admins and emitter may be nil.
func NewService(carts Carts, products Products, ledger Ledger, orders Orders, payments PaymentPolicy, admins AdminNotifier, uow unitofwork.Manager, emitter *events.Emitter, currency string, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		carts:    carts,
		products: products,
		ledger:   ledger,
		orders:   orders,
		payments: payments,
		admins:   admins,
		uow:      uow,
		emitter:  emitter,
		currency: currency,
		metrics:  m,
		log:      log,
	}
}

// ShippingMethod represents a shipping option
type ShippingMethod struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"` // Price in cents
	EstimatedDays string `json:"estimated_days"`
}

// ShippingMethods are the flat-rate shipping options
var ShippingMethods = []ShippingMethod{
	{ID: "standard", Name: "Standard Shipping", Price: 999, EstimatedDays: "5-7"},
	{ID: "express", Name: "Express Shipping", Price: 1999, EstimatedDays: "2-3"},
	{ID: "pickup", Name: "Store Pickup", Price: 0, EstimatedDays: "0"},
}

// DefaultShippingMethod is used when the request names none
const DefaultShippingMethod = "standard"

// FindShippingMethod looks up a shipping option by id
func FindShippingMethod(id string) (*ShippingMethod, error) {
	for i := range ShippingMethods {
		if ShippingMethods[i].ID == id {
			return &ShippingMethods[i], nil
		}
	}
	return nil, apperror.Invalid("unknown shipping method %q", id)
}

// Request represents checkout data
type Request struct {
	PaymentMethod   string         `json:"payment_method" binding:"required"`
	ShippingMethod  string         `json:"shipping_method"`
	Customer        order.Customer `json:"customer" binding:"required"`
	ShippingAddress order.Address  `json:"shipping_address" binding:"required"`
	Notes           string         `json:"notes"`
}

// Result is the placed order. Replayed is set when an earlier checkout
// with the same idempotency key produced it.
type Result struct {
	Order    *order.Order `json:"order"`
	Replayed bool         `json:"replayed"`
}

// Checkout validates the cart against live stock, then creates the order
// and its sale entries in one transaction. Cart clearing, notifications,
// email and the domain event follow the commit and never fail the order.
func (s *Service) Checkout(ctx context.Context, id cart.Identity, req *Request, idempotencyKey string) (result *Result, err error) {
	ctx, span := tracing.Start(ctx, "checkout.place_order",
		attribute.Bool("authenticated", id.IsUser()),
		attribute.Bool("idempotent", idempotencyKey != ""),
	)
	defer func() {
		switch {
		case err != nil:
			s.metrics.Checkout("failed")
		case result.Replayed:
			s.metrics.Checkout("replayed")
		default:
			s.metrics.Checkout("success")
		}
		tracing.End(span, err)
	}()

	if err := id.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PaymentMethod) == "" {
		return nil, apperror.Invalid("payment method is required")
	}
	shippingID := req.ShippingMethod
	if shippingID == "" {
		shippingID = DefaultShippingMethod
	}
	shipping, err := FindShippingMethod(shippingID)
	if err != nil {
		return nil, err
	}

	scopedKey, err := scopeKey(id, idempotencyKey)
	if err != nil {
		return nil, err
	}
	if scopedKey != "" {
		if existing, err := s.orders.FindByIdempotencyKey(ctx, scopedKey); err == nil {
			return &Result{Order: existing, Replayed: true}, nil
		} else if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
		}
	}

	c, err := s.carts.GetOrCreate(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, apperror.ErrEmptyCart
	}

	items, subtotal, err := s.priceLines(ctx, c)
	if err != nil {
		return nil, err
	}

	var placed *order.Order
	err = s.uow.Do(ctx, func(ctx context.Context) error {
		o := &order.Order{
			UserID:          id.UserID,
			Status:          s.payments.InitialStatus(req.PaymentMethod),
			SubtotalAmount:  subtotal,
			ShippingAmount:  shipping.Price,
			TotalAmount:     subtotal + shipping.Price,
			Currency:        s.currency,
			PaymentMethod:   strings.ToLower(strings.TrimSpace(req.PaymentMethod)),
			Customer:        req.Customer,
			ShippingAddress: req.ShippingAddress,
			ShippingMethod:  shipping.ID,
			Notes:           req.Notes,
			Items:           append([]order.OrderItem(nil), items...),
		}
		if scopedKey != "" {
			key := scopedKey
			o.IdempotencyKey = &key
		}

		if err := s.orders.Create(ctx, o); err != nil {
			return err
		}

		ref := &inventory.Reference{Type: inventory.ReferenceOrder, ID: o.ID}
		for _, item := range o.Items {
			_, err := s.ledger.RecordSale(ctx, item.VariantID, item.Quantity, inventory.ChangeOptions{
				Reference: ref,
				Notes:     fmt.Sprintf("Order %s", o.OrderNumber),
				ActorID:   id.UserID,
			})
			if err != nil {
				return err
			}
		}

		unitofwork.AfterCommit(ctx, func(ctx context.Context) {
			s.afterPlaced(ctx, id, o)
		})
		placed = o
		return nil
	})
	if errors.Is(err, apperror.ErrDuplicate) && scopedKey != "" {
		existing, findErr := s.orders.FindByIdempotencyKey(ctx, scopedKey)
		if findErr == nil {
			return &Result{Order: existing, Replayed: true}, nil
		}
	}
	if err != nil {
		return nil, err
	}

	return &Result{Order: placed}, nil
}

// priceLines re-reads every line against the catalog and freezes its
// unit price. Any line that cannot be satisfied fails the whole checkout.
func (s *Service) priceLines(ctx context.Context, c *cart.Cart) ([]order.OrderItem, int64, error) {
	items := make([]order.OrderItem, 0, len(c.Items))
	var subtotal int64

	for _, line := range c.Items {
		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, 0, err
		}
		if !p.IsPublished {
			return nil, 0, apperror.Unavailable("product", p.ID)
		}
		variant := p.FindVariant(line.VariantID)
		if variant == nil {
			return nil, 0, apperror.NotFound("variant", line.VariantID)
		}
		if !variant.IsActive {
			return nil, 0, apperror.Unavailable("variant", variant.ID)
		}
		if variant.Stock < line.Quantity {
			return nil, 0, &apperror.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				VariantID:   variant.ID,
				VariantName: variant.Label(),
				Available:   variant.Stock,
				Requested:   line.Quantity,
			}
		}

		total := money.LineTotal(variant.Price, line.Quantity)
		items = append(items, order.OrderItem{
			ProductID:    p.ID,
			VariantID:    variant.ID,
			SKU:          variant.SKU,
			Name:         p.Name,
			VariantTitle: variant.Label(),
			Quantity:     line.Quantity,
			Price:        variant.Price,
			TotalPrice:   total,
		})
		subtotal += total
	}

	return items, subtotal, nil
}

func (s *Service) afterPlaced(ctx context.Context, id cart.Identity, o *order.Order) {
	s.log.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"status":       o.Status,
		"total":        o.TotalAmount,
		"items":        len(o.Items),
	}).Info("Order placed")

	if err := s.carts.Clear(ctx, id); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("Failed to clear cart after checkout")
	}

	s.orders.SendConfirmation(ctx, o)
	if s.admins != nil {
		s.admins.NotifyNewOrder(ctx, o.ID, o.OrderNumber, o.TotalAmount, o.Currency)
	}

	s.emitter.Emit(ctx, events.NewEvent(events.TypeOrderPlaced, o.ID, map[string]any{
		"order_number":   o.OrderNumber,
		"status":         o.Status,
		"user_id":        o.UserID,
		"total_amount":   o.TotalAmount,
		"currency":       o.Currency,
		"payment_method": o.PaymentMethod,
		"item_count":     o.ItemCount(),
	}))
}

// scopeKey namespaces a client idempotency key by buyer so two buyers
// cannot collide on the same key
func scopeKey(id cart.Identity, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", nil
	}
	if len(key) > maxIdempotencyKeyLength {
		return "", apperror.Invalid("idempotency key longer than %d characters", maxIdempotencyKeyLength)
	}
	if id.IsUser() {
		return fmt.Sprintf("user:%d:%s", *id.UserID, key), nil
	}
	return fmt.Sprintf("session:%s:%s", id.SessionID, key), nil
}
