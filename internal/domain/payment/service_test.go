package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

type confirmCall struct {
	orderID   uint
	success   bool
	reference string
}

type fakeConfirmer struct {
	calls []confirmCall
}

func (f *fakeConfirmer) ConfirmPayment(ctx context.Context, orderID uint, success bool, reference string) (*order.Order, error) {
	f.calls = append(f.calls, confirmCall{orderID, success, reference})
	status := order.OrderStatusPaid
	if !success {
		status = order.OrderStatusCancelled
	}
	return &order.Order{ID: orderID, Status: status}, nil
}

func newService(secret string) (*Service, *fakeConfirmer) {
	orders := &fakeConfirmer{}
	svc := NewService(
		config.CheckoutConfig{ImmediatePaymentMethods: []string{"cash", " COD "}},
		config.PaymentConfig{WebhookSecret: secret},
		orders,
		logger.Discard(),
	)
	return svc, orders
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestInitialStatus(t *testing.T) {
	svc, _ := newService("")

	assert.Equal(t, order.OrderStatusPaid, svc.InitialStatus("cash"))
	assert.Equal(t, order.OrderStatusPaid, svc.InitialStatus("Cod"))
	assert.Equal(t, order.OrderStatusPending, svc.InitialStatus("card"))
	assert.Equal(t, order.OrderStatusPending, svc.InitialStatus(""))
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"order_id":1,"status":"success"}`)

	t.Run("valid", func(t *testing.T) {
		svc, _ := newService("whsec")
		assert.True(t, svc.VerifySignature(payload, sign("whsec", payload)))
		assert.True(t, svc.VerifySignature(payload, strings.ToUpper(sign("whsec", payload))))
	})

	t.Run("wrong secret", func(t *testing.T) {
		svc, _ := newService("whsec")
		assert.False(t, svc.VerifySignature(payload, sign("other", payload)))
	})

	t.Run("tampered payload", func(t *testing.T) {
		svc, _ := newService("whsec")
		assert.False(t, svc.VerifySignature([]byte(`{"order_id":2,"status":"success"}`), sign("whsec", payload)))
	})

	t.Run("no secret configured", func(t *testing.T) {
		svc, _ := newService("")
		assert.False(t, svc.VerifySignature(payload, sign("", payload)))
	})

	t.Run("missing signature", func(t *testing.T) {
		svc, _ := newService("whsec")
		assert.False(t, svc.VerifySignature(payload, ""))
	})
}

func TestHandleWebhook(t *testing.T) {
	svc, orders := newService("whsec")

	o, err := svc.HandleWebhook(context.Background(), &WebhookRequest{OrderID: 7, Status: StatusSuccess, Reference: "txn-1"})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusPaid, o.Status)

	o, err = svc.HandleWebhook(context.Background(), &WebhookRequest{OrderID: 8, Status: StatusFailed})
	require.NoError(t, err)
	assert.Equal(t, order.OrderStatusCancelled, o.Status)

	_, err = svc.HandleWebhook(context.Background(), &WebhookRequest{OrderID: 9, Status: "refunded"})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	assert.Equal(t, []confirmCall{
		{orderID: 7, success: true, reference: "txn-1"},
		{orderID: 8, success: false},
	}, orders.calls)
}
