// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// InventoryHandler handles admin stock ledger endpoints
type InventoryHandler struct {
	inventoryService *inventory.Service
	log              logrus.FieldLogger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *inventory.Service, log logrus.FieldLogger) *InventoryHandler {
	return &InventoryHandler{
		inventoryService: inventoryService,
		log:              log,
	}
}

type stockChangeFunc func(s *inventory.Service, c *gin.Context, variantID uint, quantity int, opts inventory.ChangeOptions) (*inventory.StockMovement, error)

// stockChange builds a handler for one manual movement kind
func (h *InventoryHandler) stockChange(apply stockChangeFunc, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		variantID, ok := paramID(c, "id")
		if !ok {
			return
		}

		var req inventory.StockChangeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request data", err)
			return
		}

		movement, err := apply(h.inventoryService, c, variantID, req.Quantity, h.changeOptions(c, req.Notes))
		if err != nil {
			respondError(c, h.log, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": message,
			"data":    movement,
		})
	}
}

// AddStock handles POST /admin/inventory/variants/:id/add
func (h *InventoryHandler) AddStock() gin.HandlerFunc {
	return h.stockChange(func(s *inventory.Service, c *gin.Context, id uint, qty int, opts inventory.ChangeOptions) (*inventory.StockMovement, error) {
		return s.AddStock(c.Request.Context(), id, qty, opts)
	}, "Stock added successfully")
}

// AdjustStock handles POST /admin/inventory/variants/:id/adjust with a
// signed quantity
func (h *InventoryHandler) AdjustStock() gin.HandlerFunc {
	return h.stockChange(func(s *inventory.Service, c *gin.Context, id uint, qty int, opts inventory.ChangeOptions) (*inventory.StockMovement, error) {
		return s.AdjustStock(c.Request.Context(), id, qty, opts)
	}, "Stock adjusted successfully")
}

// RecordDamage handles POST /admin/inventory/variants/:id/damage
func (h *InventoryHandler) RecordDamage() gin.HandlerFunc {
	return h.stockChange(func(s *inventory.Service, c *gin.Context, id uint, qty int, opts inventory.ChangeOptions) (*inventory.StockMovement, error) {
		return s.RecordDamage(c.Request.Context(), id, qty, opts)
	}, "Damage recorded successfully")
}

// CorrectStock handles POST /admin/inventory/variants/:id/correct
func (h *InventoryHandler) CorrectStock(c *gin.Context) {
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req inventory.StockCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	movement, err := h.inventoryService.CorrectStock(c.Request.Context(), variantID, *req.CountedStock, h.changeOptions(c, req.Notes))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock corrected successfully",
		"data":    movement,
	})
}

// BulkUpdate handles POST /admin/inventory/bulk
func (h *InventoryHandler) BulkUpdate(c *gin.Context) {
	var req inventory.BulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	adminID, _ := middleware.GetUserIDFromContext(c)
	movements, err := h.inventoryService.BulkUpdate(c.Request.Context(), req.Entries, &adminID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bulk stock update applied",
		"data":    movements,
	})
}

// GetMovements handles GET /admin/inventory/movements
func (h *InventoryHandler) GetMovements(c *gin.Context) {
	filter := inventory.MovementFilter{
		MovementType: inventory.MovementType(c.Query("type")),
		Page:         queryInt(c, "page"),
		Limit:        queryInt(c, "limit"),
	}
	if v := queryInt(c, "variant_id"); v > 0 {
		variantID := uint(v)
		filter.VariantID = &variantID
	}

	response, err := h.inventoryService.ListMovements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock movements retrieved successfully",
		"data":    response,
	})
}

// Reconcile handles GET /admin/inventory/variants/:id/reconcile
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}

	result, err := h.inventoryService.Reconcile(c.Request.Context(), variantID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": result,
	})
}

// GetAlert handles GET /admin/inventory/variants/:id/alert
func (h *InventoryHandler) GetAlert(c *gin.Context) {
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}

	alert, err := h.inventoryService.GetAlert(c.Request.Context(), variantID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alert,
	})
}

// SetAlert handles PUT /admin/inventory/variants/:id/alert
func (h *InventoryHandler) SetAlert(c *gin.Context) {
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req inventory.AlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	alert, err := h.inventoryService.SetAlert(c.Request.Context(), variantID, *req.Threshold, isActive)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Stock alert saved",
		"data":    alert,
	})
}

// GetActiveAlerts handles GET /admin/inventory/alerts
func (h *InventoryHandler) GetActiveAlerts(c *gin.Context) {
	alerts, err := h.inventoryService.ListActiveAlerts(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
	})
}

// GetLowStock handles GET /admin/inventory/low-stock
func (h *InventoryHandler) GetLowStock(c *gin.Context) {
	items, err := h.inventoryService.LowStockReport(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": items,
	})
}

func (h *InventoryHandler) changeOptions(c *gin.Context, notes string) inventory.ChangeOptions {
	opts := inventory.ChangeOptions{Notes: notes}
	if adminID, ok := middleware.GetUserIDFromContext(c); ok {
		opts.ActorID = &adminID
	}
	return opts
}
