// internal/domain/order/service.go
package order

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/events"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/pagination"
	"github.com/your-org/storefront-backend/internal/pkg/tracing"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
	"go.opentelemetry.io/otel/attribute"
)

// Repository persists orders. Create returns apperror.ErrDuplicate when
// the idempotency key is taken; UpdateStatus returns apperror.ErrConflict
// when the order is no longer in the from status.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	SetOrderNumber(ctx context.Context, id uint, number string) error
	GetByID(ctx context.Context, id uint) (*Order, error)
	GetByNumber(ctx context.Context, number string) (*Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)
	LockByID(ctx context.Context, id uint) (*Order, error)
	UpdateStatus(ctx context.Context, id uint, from, to OrderStatus, at time.Time) error
	AddHistory(ctx context.Context, h *OrderStatusHistory) error
	List(ctx context.Context, filter ListFilter) ([]Order, int64, error)
}

// StockRestorer puts cancelled units back through the ledger
type StockRestorer interface {
	RecordReturn(ctx context.Context, variantID uint, quantity int, opts inventory.ChangeOptions) (*inventory.StockMovement, error)
}

// Notifier persists and pushes buyer notifications
type Notifier interface {
	Notify(ctx context.Context, userID uint, msg notification.Message) (*notification.Notification, error)
}

// Mailer sends order emails
type Mailer interface {
	SendOrderConfirmationEmail(ctx context.Context, data email.OrderConfirmationData) error
	SendOrderStatusUpdateEmail(ctx context.Context, data email.OrderStatusUpdateData) error
}

// InvoiceRenderer renders an order invoice as PDF
type InvoiceRenderer interface {
	GenerateInvoice(o *Order) (*bytes.Buffer, error)
}

// Service handles order lifecycle
type Service struct {
	repo     Repository
	uow      unitofwork.Manager
	stock    StockRestorer
	notifier Notifier
	mailer   Mailer
	emitter  *events.Emitter
	invoices InvoiceRenderer
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

// NewService creates a new order service. notifier, mailer, emitter and
// invoices may be nil.
func NewService(repo Repository, uow unitofwork.Manager, stock StockRestorer, notifier Notifier, mailer Mailer, emitter *events.Emitter, invoices InvoiceRenderer, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{
		repo:     repo,
		uow:      uow,
		stock:    stock,
		notifier: notifier,
		mailer:   mailer,
		emitter:  emitter,
		invoices: invoices,
		metrics:  m,
		log:      log,
	}
}

// UpdateStatusRequest represents an admin status change
type UpdateStatusRequest struct {
	Status  OrderStatus `json:"status" binding:"required"`
	Comment string      `json:"comment"`
}

// CancelRequest represents a cancellation
type CancelRequest struct {
	Reason string `json:"reason"`
}

// OrderListRequest represents order listing parameters
type OrderListRequest struct {
	Page      int         `form:"page"`
	Limit     int         `form:"limit"`
	Status    OrderStatus `form:"status"`
	UserID    *uint       `form:"user_id"`
	SortBy    string      `form:"sort_by"`
	SortOrder string      `form:"sort_order"`
}

// OrderResponse represents a page of orders
type OrderResponse struct {
	Orders     []Order               `json:"orders"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Create persists a new order with its items and first history row, then
// assigns the order number. It joins the caller's transaction.
func (s *Service) Create(ctx context.Context, o *Order) error {
	if len(o.Items) == 0 {
		return apperror.ErrEmptyCart
	}
	if !o.Status.Valid() {
		return apperror.Invalid("unknown order status %q", o.Status)
	}

	return s.uow.Do(ctx, func(ctx context.Context) error {
		now := time.Now().UTC()
		o.OrderNumber = "pending-" + uuid.NewString()
		if o.Status == OrderStatusPaid {
			o.PaidAt = &now
		}
		o.StatusHistory = []OrderStatusHistory{{
			Status:  o.Status,
			Comment: "Order placed",
		}}

		if err := s.repo.Create(ctx, o); err != nil {
			return err
		}

		o.OrderNumber = o.GenerateOrderNumber()
		if err := s.repo.SetOrderNumber(ctx, o.ID, o.OrderNumber); err != nil {
			return fmt.Errorf("failed to assign order number: %w", err)
		}
		return nil
	})
}

// Get retrieves a single order by ID
func (s *Service) Get(ctx context.Context, id uint) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

// GetByNumber retrieves a single order by order number
func (s *Service) GetByNumber(ctx context.Context, number string) (*Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetForBuyer retrieves an order owned by userID. Other buyers' orders
// are reported as not found.
func (s *Service) GetForBuyer(ctx context.Context, id, userID uint) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID == nil || *o.UserID != userID {
		return nil, apperror.NotFound("order", id)
	}
	return o, nil
}

// FindByIdempotencyKey returns the order placed with a scoped key
func (s *Service) FindByIdempotencyKey(ctx context.Context, key string) (*Order, error) {
	return s.repo.FindByIdempotencyKey(ctx, key)
}

// ListForBuyer retrieves orders for a specific user
func (s *Service) ListForBuyer(ctx context.Context, userID uint, page, limit int) (*OrderResponse, error) {
	return s.List(ctx, &OrderListRequest{
		Page:   page,
		Limit:  limit,
		UserID: &userID,
	})
}

// List retrieves orders with filtering and pagination
func (s *Service) List(ctx context.Context, req *OrderListRequest) (*OrderResponse, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, apperror.Invalid("unknown order status %q", req.Status)
	}
	page, limit := pagination.Normalize(req.Page, req.Limit)

	orders, total, err := s.repo.List(ctx, ListFilter{
		UserID:    req.UserID,
		Status:    req.Status,
		Page:      page,
		Limit:     limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve orders: %w", err)
	}

	return &OrderResponse{
		Orders:     orders,
		Pagination: pagination.New(page, limit, total),
	}, nil
}

// UpdateStatus moves an order along the state machine. Cancellation is
// routed through Cancel so stock is returned.
func (s *Service) UpdateStatus(ctx context.Context, orderID uint, status OrderStatus, comment string, actorID *uint) (*Order, error) {
	if !status.Valid() {
		return nil, apperror.Invalid("unknown order status %q", status)
	}
	if status == OrderStatusCancelled {
		return s.Cancel(ctx, orderID, comment, actorID)
	}

	err := s.uow.Do(ctx, func(ctx context.Context) error {
		o, err := s.repo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		return s.transition(ctx, o, status, comment, actorID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, orderID)
}

// Cancel cancels an order and returns every item to stock in the same
// transaction. The original sale entries stay untouched.
func (s *Service) Cancel(ctx context.Context, orderID uint, reason string, actorID *uint) (o *Order, err error) {
	ctx, span := tracing.Start(ctx, "order.cancel", attribute.Int("order_id", int(orderID)))
	defer func() { tracing.End(span, err) }()

	err = s.uow.Do(ctx, func(ctx context.Context) error {
		locked, err := s.repo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}
		return s.cancelLocked(ctx, locked, reason, actorID)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, orderID)
}

// ConfirmPayment applies an asynchronous payment result. Success moves a
// pending order to paid; failure cancels it. Repeating the result an
// order already reflects is a no-op.
func (s *Service) ConfirmPayment(ctx context.Context, orderID uint, success bool, reference string) (*Order, error) {
	err := s.uow.Do(ctx, func(ctx context.Context) error {
		o, err := s.repo.LockByID(ctx, orderID)
		if err != nil {
			return err
		}

		switch {
		case success && o.Status == OrderStatusPaid:
			return nil
		case !success && o.Status == OrderStatusCancelled:
			return nil
		case o.Status != OrderStatusPending:
			return fmt.Errorf("%w: payment result for order in status %s", apperror.ErrInvalidTransition, o.Status)
		case success:
			comment := "Payment confirmed"
			if reference != "" {
				comment = fmt.Sprintf("Payment confirmed (%s)", reference)
			}
			return s.transition(ctx, o, OrderStatusPaid, comment, nil)
		default:
			return s.cancelLocked(ctx, o, "payment failed", nil)
		}
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, orderID)
}

// Invoice renders the order's PDF invoice
func (s *Service) Invoice(ctx context.Context, orderID uint) (*bytes.Buffer, *Order, error) {
	if s.invoices == nil {
		return nil, nil, fmt.Errorf("invoice rendering is not configured")
	}
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	buf, err := s.invoices.GenerateInvoice(o)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate invoice: %w", err)
	}
	return buf, o, nil
}

// transition changes the status of a locked order inside a transaction
func (s *Service) transition(ctx context.Context, o *Order, to OrderStatus, comment string, actorID *uint) error {
	if !o.Status.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s to %s", apperror.ErrInvalidTransition, o.Status, to)
	}

	from := o.Status
	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, o.ID, from, to, now); err != nil {
		return err
	}
	if err := s.repo.AddHistory(ctx, &OrderStatusHistory{
		OrderID:   o.ID,
		Status:    to,
		Comment:   comment,
		CreatedBy: actorID,
	}); err != nil {
		return fmt.Errorf("failed to create status history: %w", err)
	}

	o.Status = to
	snapshot := *o
	unitofwork.AfterCommit(ctx, func(ctx context.Context) {
		s.afterTransition(ctx, &snapshot, from, comment)
	})
	return nil
}

func (s *Service) cancelLocked(ctx context.Context, o *Order, reason string, actorID *uint) error {
	if !o.CanBeCancelled() {
		return fmt.Errorf("%w: order cannot be cancelled in status %s", apperror.ErrInvalidTransition, o.Status)
	}

	ref := &inventory.Reference{Type: inventory.ReferenceOrder, ID: o.ID}
	for _, item := range o.Items {
		_, err := s.stock.RecordReturn(ctx, item.VariantID, item.Quantity, inventory.ChangeOptions{
			Reference: ref,
			Notes:     fmt.Sprintf("Order %s cancelled", o.OrderNumber),
			ActorID:   actorID,
		})
		if err != nil {
			return fmt.Errorf("failed to restore stock for variant %d: %w", item.VariantID, err)
		}
	}

	comment := "Order cancelled"
	if reason != "" {
		comment = fmt.Sprintf("Order cancelled: %s", reason)
	}
	return s.transition(ctx, o, OrderStatusCancelled, comment, actorID)
}

func (s *Service) afterTransition(ctx context.Context, o *Order, from OrderStatus, comment string) {
	s.metrics.OrderTransition(string(o.Status))
	s.log.WithFields(logrus.Fields{
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"from":         from,
		"to":           o.Status,
	}).Info("Order status changed")

	payload := map[string]any{
		"order_number": o.OrderNumber,
		"from":         from,
		"status":       o.Status,
		"total_amount": o.TotalAmount,
	}
	switch o.Status {
	case OrderStatusPaid:
		s.emitter.Emit(ctx, events.NewEvent(events.TypeOrderPaid, o.ID, payload))
	case OrderStatusCancelled:
		s.emitter.Emit(ctx, events.NewEvent(events.TypeOrderCancelled, o.ID, payload))
	default:
		s.emitter.Emit(ctx, events.NewEvent(events.TypeOrderStatusChanged, o.ID, payload))
	}

	s.notifyBuyer(ctx, o, statusMessage(o))
	s.sendStatusEmail(ctx, o, comment)
}

func (s *Service) notifyBuyer(ctx context.Context, o *Order, msg notification.Message) {
	if s.notifier == nil || o.UserID == nil {
		return
	}
	if _, err := s.notifier.Notify(ctx, *o.UserID, msg); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("Failed to notify buyer")
	}
}

func (s *Service) sendStatusEmail(ctx context.Context, o *Order, comment string) {
	if s.mailer == nil || o.Customer.Email == "" {
		return
	}
	if err := s.mailer.SendOrderStatusUpdateEmail(ctx, StatusUpdateEmail(o, comment)); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("Failed to send order status email")
	}
}

// SendConfirmation notifies and emails the buyer about a placed order.
// Failures are logged.
func (s *Service) SendConfirmation(ctx context.Context, o *Order) {
	id := o.ID
	s.notifyBuyer(ctx, o, notification.Message{
		Type:            notification.TypeOrderPlaced,
		Title:           "Order placed",
		Body:            fmt.Sprintf("Your order %s has been placed", o.OrderNumber),
		Priority:        notification.PriorityNormal,
		RelatedEntity:   "order",
		RelatedEntityID: &id,
	})

	if s.mailer == nil || o.Customer.Email == "" {
		return
	}
	if err := s.mailer.SendOrderConfirmationEmail(ctx, ConfirmationEmail(o)); err != nil {
		s.log.WithError(err).WithField("order_id", o.ID).Warn("Failed to send order confirmation email")
	}
}

func statusMessage(o *Order) notification.Message {
	id := o.ID
	msg := notification.Message{
		Type:            notification.TypeOrderStatus,
		Title:           "Order updated",
		Body:            fmt.Sprintf("Your order %s is now %s", o.OrderNumber, o.Status),
		Priority:        notification.PriorityNormal,
		RelatedEntity:   "order",
		RelatedEntityID: &id,
	}
	switch o.Status {
	case OrderStatusPaid:
		msg.Type = notification.TypePaymentReceived
		msg.Title = "Payment received"
		msg.Body = fmt.Sprintf("We received payment for order %s", o.OrderNumber)
	case OrderStatusCancelled:
		msg.Type = notification.TypeOrderCancelled
		msg.Title = "Order cancelled"
		msg.Body = fmt.Sprintf("Your order %s has been cancelled", o.OrderNumber)
		msg.Priority = notification.PriorityHigh
	}
	return msg
}
