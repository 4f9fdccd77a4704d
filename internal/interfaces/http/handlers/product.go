// internal/interfaces/http/handlers/product.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
)

// ProductHandler handles catalog endpoints
type ProductHandler struct {
	productService *product.Service
	log            logrus.FieldLogger
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService *product.Service, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		log:            log,
	}
}

// VariantPriceRequest represents a price change
type VariantPriceRequest struct {
	Price *int64 `json:"price" binding:"required,min=0"`
}

// ToggleRequest switches a flag on or off
type ToggleRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// GetProduct handles GET /products/:id. Unpublished products are only
// visible to admins.
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	p, err := h.productService.GetProduct(c.Request.Context(), productID)
	if err == nil && !p.IsPublished && !middleware.IsAdminFromContext(c) {
		err = apperror.NotFound("product", productID)
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product retrieved successfully",
		"data":    p,
	})
}

// AdminCreateProduct handles POST /admin/products
func (h *ProductHandler) AdminCreateProduct(c *gin.Context) {
	var req product.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	adminID, _ := middleware.GetUserIDFromContext(c)
	p, err := h.productService.CreateProduct(c.Request.Context(), &req, &adminID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"data":    p,
	})
}

// AdminPublishProduct handles PUT /admin/products/:id/publish
func (h *ProductHandler) AdminPublishProduct(c *gin.Context) {
	productID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	if err := h.productService.SetPublished(c.Request.Context(), productID, *req.Enabled); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Product visibility updated",
	})
}

// AdminUpdateVariantPrice handles PUT /admin/variants/:id/price
func (h *ProductHandler) AdminUpdateVariantPrice(c *gin.Context) {
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req VariantPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	variant, err := h.productService.UpdateVariantPrice(c.Request.Context(), variantID, *req.Price)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Variant price updated",
		"data":    variant,
	})
}

// AdminSetVariantActive handles PUT /admin/variants/:id/active
func (h *ProductHandler) AdminSetVariantActive(c *gin.Context) {
	variantID, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	if err := h.productService.SetVariantActive(c.Request.Context(), variantID, *req.Enabled); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Variant availability updated",
	})
}
