// internal/interfaces/http/handlers/payment.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/payment"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body
const SignatureHeader = "X-Payment-Signature"

// maxWebhookBody caps the callback payload read into memory
const maxWebhookBody = 64 << 10

// PaymentHandler handles payment gateway callbacks
type PaymentHandler struct {
	paymentService *payment.Service
	log            logrus.FieldLogger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *payment.Service, log logrus.FieldLogger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		log:            log,
	}
}

// WebhookHandler handles POST /webhooks/payments
func (h *PaymentHandler) WebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Failed to read request body", err)
		return
	}

	if !h.paymentService.VerifySignature(body, c.GetHeader(SignatureHeader)) {
		h.log.WithField("client_ip", c.ClientIP()).Warn("Rejected payment callback with invalid signature")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Invalid signature",
		})
		return
	}

	var req payment.WebhookRequest
	if err := binding.JSON.BindBody(body, &req); err != nil {
		badRequest(c, "Invalid webhook payload", err)
		return
	}

	o, err := h.paymentService.HandleWebhook(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Webhook processed successfully",
		"data": gin.H{
			"order_id":     o.ID,
			"order_number": o.OrderNumber,
			"status":       o.Status,
		},
	})
}
