// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
)

// IdempotencyKeyHeader lets clients retry a checkout safely
const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutHandler handles checkout endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	log             logrus.FieldLogger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkoutService *checkout.Service, log logrus.FieldLogger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		log:             log,
	}
}

// GetShippingMethods handles GET /checkout/shipping-methods
func (h *CheckoutHandler) GetShippingMethods(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping methods retrieved successfully",
		"data":    checkout.ShippingMethods,
	})
}

// Checkout handles POST /checkout. A replayed idempotency key answers 200
// with the original order instead of 201.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	var req checkout.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), cartIdentity(c), &req, c.GetHeader(IdempotencyKeyHeader))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	status, message := http.StatusCreated, "Order placed successfully"
	if result.Replayed {
		status, message = http.StatusOK, "Order already placed"
	}
	c.JSON(status, gin.H{
		"message": message,
		"data":    result,
	})
}
