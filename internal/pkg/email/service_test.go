package email

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

type captureSender struct {
	sent []*Email
	err  error
}

func (c *captureSender) Send(ctx context.Context, e *Email) error {
	c.sent = append(c.sent, e)
	return c.err
}

func newTestService(enabled bool, sender Sender) *EmailService {
	return NewEmailServiceWithSender(config.EmailConfig{
		Enabled:  enabled,
		FromName: "Storefront",
		BaseURL:  "https://shop.example.com",
	}, sender, logger.Discard())
}

func confirmation() OrderConfirmationData {
	data := OrderConfirmationData{
		OrderNumber: "ORD-20260101-00042",
		OrderDate:   "January 1, 2026",
		Subtotal:    "KES 30.00",
		Shipping:    "KES 9.99",
		OrderTotal:  "KES 39.99",
		Items: []OrderItem{
			{Name: "Tee", SKU: "TEE-M", Variant: "Size: M", Quantity: 2, Price: "KES 15.00", Total: "KES 30.00"},
		},
		ShippingMethod: "standard",
		PaymentMethod:  "cash",
		ShippingAddress: Address{
			FirstName:    "Ada",
			AddressLine1: "1 Analytical Way",
			City:         "Nairobi",
			Country:      "KE",
		},
	}
	data.UserName = "Ada Lovelace"
	data.UserEmail = "ada@example.com"
	return data
}

func TestSendOrderConfirmationEmail(t *testing.T) {
	sender := &captureSender{}
	s := newTestService(true, sender)

	require.NoError(t, s.SendOrderConfirmationEmail(context.Background(), confirmation()))
	require.Len(t, sender.sent, 1)

	e := sender.sent[0]
	assert.Equal(t, []string{"ada@example.com"}, e.To)
	assert.Equal(t, "Order Confirmation - ORD-20260101-00042", e.Subject)
	assert.Equal(t, EmailTypeOrderConfirmation, e.Type)
	assert.Contains(t, e.HTMLContent, "Hello Ada Lovelace")
	assert.Contains(t, e.HTMLContent, "Tee (Size: M)")
	assert.Contains(t, e.HTMLContent, "Total: KES 39.99")
	assert.Contains(t, e.HTMLContent, "https://shop.example.com/orders/ORD-20260101-00042")
	assert.Equal(t, "KES 39.99", e.Data["order_total"])
}

func TestSendOrderStatusUpdateEmail(t *testing.T) {
	sender := &captureSender{}
	s := newTestService(true, sender)

	data := OrderStatusUpdateData{OrderNumber: "ORD-20260101-00042", Status: "shipped", StatusMessage: "DHL 123"}
	data.UserName = "Ada"
	data.UserEmail = "ada@example.com"
	require.NoError(t, s.SendOrderStatusUpdateEmail(context.Background(), data))

	require.Len(t, sender.sent, 1)
	e := sender.sent[0]
	assert.Equal(t, "Order Update - ORD-20260101-00042", e.Subject)
	assert.Equal(t, EmailTypeOrderStatusUpdate, e.Type)
	assert.Contains(t, e.HTMLContent, "<strong>shipped</strong>")
	assert.Contains(t, e.HTMLContent, "DHL 123")
}

func TestDisabledEmailIsDropped(t *testing.T) {
	sender := &captureSender{}
	s := newTestService(false, sender)

	require.NoError(t, s.SendOrderConfirmationEmail(context.Background(), confirmation()))
	assert.Empty(t, sender.sent)
}

func TestSendErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	s := newTestService(true, &captureSender{err: boom})

	err := s.SendOrderConfirmationEmail(context.Background(), confirmation())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "order_confirmation")
}
