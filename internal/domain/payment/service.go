// internal/domain/payment/service.go
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// Webhook statuses reported by the gateway
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// OrderConfirmer applies a payment result to an order
type OrderConfirmer interface {
	ConfirmPayment(ctx context.Context, orderID uint, success bool, reference string) (*order.Order, error)
}

// Service decides how payment methods settle and processes gateway
// callbacks
type Service struct {
	immediate     map[string]bool
	webhookSecret string
	orders        OrderConfirmer
	log           logrus.FieldLogger
}

// NewService creates a new payment service
func NewService(checkoutCfg config.CheckoutConfig, paymentCfg config.PaymentConfig, orders OrderConfirmer, log logrus.FieldLogger) *Service {
	immediate := make(map[string]bool, len(checkoutCfg.ImmediatePaymentMethods))
	for _, m := range checkoutCfg.ImmediatePaymentMethods {
		immediate[normalize(m)] = true
	}
	return &Service{
		immediate:     immediate,
		webhookSecret: paymentCfg.WebhookSecret,
		orders:        orders,
		log:           log,
	}
}

// WebhookRequest represents a payment gateway callback
type WebhookRequest struct {
	OrderID   uint   `json:"order_id" binding:"required"`
	Status    string `json:"status" binding:"required,oneof=success failed"`
	Reference string `json:"reference"`
}

// IsImmediate reports whether method settles at checkout (cash, cash on
// delivery); such orders start out paid
func (s *Service) IsImmediate(method string) bool {
	return s.immediate[normalize(method)]
}

// InitialStatus returns the status a new order paid with method starts in
func (s *Service) InitialStatus(method string) order.OrderStatus {
	if s.IsImmediate(method) {
		return order.OrderStatusPaid
	}
	return order.OrderStatusPending
}

// VerifySignature checks the hex HMAC-SHA256 of payload. Without a
// configured secret every callback is rejected.
func (s *Service) VerifySignature(payload []byte, signature string) bool {
	if s.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// HandleWebhook applies a verified gateway callback
func (s *Service) HandleWebhook(ctx context.Context, req *WebhookRequest) (*order.Order, error) {
	var success bool
	switch req.Status {
	case StatusSuccess:
		success = true
	case StatusFailed:
		success = false
	default:
		return nil, apperror.Invalid("unknown payment status %q", req.Status)
	}

	o, err := s.orders.ConfirmPayment(ctx, req.OrderID, success, req.Reference)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"order_id":  req.OrderID,
		"status":    req.Status,
		"reference": req.Reference,
	}).Info("Payment callback processed")
	return o, nil
}

func normalize(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
