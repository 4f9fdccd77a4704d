// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GenerateInvoice handles GET /orders/:id/invoice
func (h *OrderHandler) GenerateInvoice(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		return
	}

	if _, err := h.ownedOrder(c, orderID); err != nil {
		respondError(c, h.log, err)
		return
	}

	pdfBuffer, o, err := h.orderService.Invoice(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	filename := fmt.Sprintf("invoice_%s.pdf", o.OrderNumber)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}
