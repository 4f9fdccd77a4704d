package http_test

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/app/apptest"
	"github.com/your-org/storefront-backend/internal/domain/order"
	storehttp "github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type client struct {
	t       *testing.T
	handler http.Handler
	harness *apptest.Harness
}

func newClient(t *testing.T) *client {
	h := apptest.New(t)
	srv := storehttp.NewServer(h.Config, h.Services.Handlers(h.Log), storehttp.Deps{
		Tokens: h.Services.Tokens,
		Log:    h.Log,
	})
	return &client{t: t, handler: srv.Handler(), harness: h}
}

func (c *client) do(method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

type checkoutBody struct {
	Data struct {
		Order    order.Order `json:"order"`
		Replayed bool        `json:"replayed"`
	} `json:"data"`
}

func TestHealth(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestGuestCheckoutWithSessionCookie(t *testing.T) {
	c := newClient(t)
	p := c.harness.Product(t, "TEE", 1500, 5)

	rec := c.do(http.MethodPost, "/api/v1/cart/items", gin.H{
		"product_id": p.ID,
		"variant_id": p.Variants[0].ID,
		"quantity":   2,
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var session *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookie {
			session = cookie
		}
	}
	require.NotNil(t, session, "a guest gets a session cookie")
	assert.True(t, session.HttpOnly)
	withSession := http.Header{"Cookie": {session.Name + "=" + session.Value}}

	rec = c.do(http.MethodGet, "/api/v1/cart", nil, withSession)
	require.Equal(t, http.StatusOK, rec.Code)
	var cartBody struct {
		Data struct {
			Items []struct {
				Quantity int `json:"quantity"`
			} `json:"items"`
		} `json:"data"`
	}
	decode(t, rec, &cartBody)
	require.Len(t, cartBody.Data.Items, 1)
	assert.Equal(t, 2, cartBody.Data.Items[0].Quantity)

	withSession.Set("Idempotency-Key", "checkout-1")
	req := apptest.CheckoutRequest("cash")
	rec = c.do(http.MethodPost, "/api/v1/checkout", req, withSession)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed checkoutBody
	decode(t, rec, &placed)
	assert.Equal(t, order.OrderStatusPaid, placed.Data.Order.Status)
	assert.False(t, placed.Data.Replayed)
	assert.Equal(t, 3, c.harness.Stock(t, p.Variants[0].ID))

	rec = c.do(http.MethodPost, "/api/v1/checkout", req, withSession)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var replayed checkoutBody
	decode(t, rec, &replayed)
	assert.True(t, replayed.Data.Replayed)
	assert.Equal(t, placed.Data.Order.ID, replayed.Data.Order.ID)
	assert.Equal(t, 3, c.harness.Stock(t, p.Variants[0].ID))
}

func TestCheckoutReportsShortStock(t *testing.T) {
	c := newClient(t)
	p := c.harness.Product(t, "TEE", 1500, 2)
	session := http.Header{"X-Session-ID": {uuid.NewString()}}

	rec := c.do(http.MethodPost, "/api/v1/cart/items", gin.H{
		"product_id": p.ID,
		"variant_id": p.Variants[0].ID,
		"quantity":   3,
	}, session)
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error   string         `json:"error"`
		Details map[string]any `json:"details"`
	}
	decode(t, rec, &body)
	assert.EqualValues(t, 2, body.Details["available"])
	assert.EqualValues(t, 3, body.Details["requested"])
	assert.Equal(t, "Product TEE", body.Details["product_name"])
	assert.Equal(t, "Size: S1", body.Details["variant_name"])

	rec = c.do(http.MethodPost, "/api/v1/checkout", apptest.CheckoutRequest("cash"), session)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "empty cart")

	rec = c.do(http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": p.ID, "quantity": 1}, session)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "variant required")
}

func TestLoginMergesGuestCart(t *testing.T) {
	c := newClient(t)
	p := c.harness.Product(t, "TEE", 1500, 5)
	c.harness.Shopper(t, "buyer@example.com")
	session := http.Header{"X-Session-ID": {uuid.NewString()}}

	rec := c.do(http.MethodPost, "/api/v1/cart/items", gin.H{
		"product_id": p.ID,
		"variant_id": p.Variants[0].ID,
		"quantity":   1,
	}, session)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "buyer@example.com", "password": apptest.Password}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var login struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	decode(t, rec, &login)

	rec = c.do(http.MethodGet, "/api/v1/cart", nil, bearer(login.Data.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	var cartBody struct {
		Data struct {
			Items []json.RawMessage `json:"items"`
		} `json:"data"`
	}
	decode(t, rec, &cartBody)
	assert.Len(t, cartBody.Data.Items, 1)

	rec = c.do(http.MethodPost, "/api/v1/auth/login", gin.H{"email": "buyer@example.com", "password": "Wr0ngpass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminRoutesAreGuarded(t *testing.T) {
	c := newClient(t)
	shopper := c.harness.Shopper(t, "buyer@example.com")
	_, adminToken := c.harness.Admin(t, "ops@example.com")

	rec := c.do(http.MethodGet, "/api/v1/admin/orders", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/admin/orders", nil, bearer("not-a-token"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/admin/orders", nil, bearer(shopper.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/admin/orders", nil, bearer(adminToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/api/v1/admin/inventory/low-stock", nil, bearer(adminToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuyerCannotSeeOtherOrders(t *testing.T) {
	c := newClient(t)
	p := c.harness.Product(t, "TEE", 1500, 5)
	owner := c.harness.Shopper(t, "owner@example.com")
	other := c.harness.Shopper(t, "other@example.com")

	rec := c.do(http.MethodPost, "/api/v1/cart/items", gin.H{
		"product_id": p.ID,
		"variant_id": p.Variants[0].ID,
		"quantity":   1,
	}, bearer(owner.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(http.MethodPost, "/api/v1/checkout", apptest.CheckoutRequest("card"), bearer(owner.AccessToken))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed checkoutBody
	decode(t, rec, &placed)
	path := "/api/v1/orders/" + jsonNumber(placed.Data.Order.ID)

	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, path, nil, bearer(owner.AccessToken)).Code)
	assert.Equal(t, http.StatusNotFound, c.do(http.MethodGet, path, nil, bearer(other.AccessToken)).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodGet, path, nil, nil).Code)
}

func TestPaymentWebhook(t *testing.T) {
	c := newClient(t)
	p := c.harness.Product(t, "TEE", 1500, 5)
	session := http.Header{"X-Session-ID": {uuid.NewString()}}

	rec := c.do(http.MethodPost, "/api/v1/cart/items", gin.H{
		"product_id": p.ID,
		"variant_id": p.Variants[0].ID,
		"quantity":   1,
	}, session)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = c.do(http.MethodPost, "/api/v1/checkout", apptest.CheckoutRequest("card"), session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var placed checkoutBody
	decode(t, rec, &placed)
	require.Equal(t, order.OrderStatusPending, placed.Data.Order.Status)

	payload, err := json.Marshal(gin.H{"order_id": placed.Data.Order.ID, "status": "success", "reference": "psp_1"})
	require.NoError(t, err)

	rec = c.do(http.MethodPost, "/api/v1/webhooks/payments", payload, http.Header{"X-Payment-Signature": {"deadbeef"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = c.do(http.MethodPost, "/api/v1/webhooks/payments", payload, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	signature := http.Header{"X-Payment-Signature": {sign(payload)}}
	rec = c.do(http.MethodPost, "/api/v1/webhooks/payments", payload, signature)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data struct {
			Status order.OrderStatus `json:"status"`
		} `json:"data"`
	}
	decode(t, rec, &body)
	assert.Equal(t, order.OrderStatusPaid, body.Data.Status)

	// a redelivered callback is answered the same way
	rec = c.do(http.MethodPost, "/api/v1/webhooks/payments", payload, signature)
	assert.Equal(t, http.StatusOK, rec.Code)

	bad, err := json.Marshal(gin.H{"order_id": placed.Data.Order.ID, "status": "maybe"})
	require.NoError(t, err)
	rec = c.do(http.MethodPost, "/api/v1/webhooks/payments", bad, http.Header{"X-Payment-Signature": {sign(bad)}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestShippingMethodsArePublic(t *testing.T) {
	c := newClient(t)

	rec := c.do(http.MethodGet, "/api/v1/checkout/shipping-methods", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []struct {
			ID    string `json:"id"`
			Price int64  `json:"price"`
		} `json:"data"`
	}
	decode(t, rec, &body)
	require.Len(t, body.Data, 3)
	assert.Equal(t, "standard", body.Data[0].ID)
	assert.EqualValues(t, 999, body.Data[0].Price)
}

func sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(apptest.WebhookSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func jsonNumber(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
