// internal/interfaces/http/handlers/auth.go
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// GuestCartMerger moves a guest cart into a user's cart
type GuestCartMerger interface {
	MergeGuestCart(ctx context.Context, userID uint, sessionID string) (*cart.CartResponse, error)
}

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	userService *user.Service
	carts       GuestCartMerger
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new auth handler. carts may be nil.
func NewAuthHandler(userService *user.Service, carts GuestCartMerger, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		carts:       carts,
		log:         log,
	}
}

// Register handles user registration
func (h *AuthHandler) Register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	response, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.mergeGuestCart(c, response.User.ID)

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"data":    response,
	})
}

// Login handles user login. A guest cart on the same session is merged
// into the user's cart.
func (h *AuthHandler) Login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	response, err := h.userService.Login(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	h.mergeGuestCart(c, response.User.ID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"data":    response,
	})
}

// GetProfile handles GET /auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	u, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile retrieved successfully",
		"data":    u,
	})
}

// ChangePassword handles PUT /auth/password
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID, _ := middleware.GetUserIDFromContext(c)

	var req user.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data", err)
		return
	}

	if err := h.userService.ChangePassword(c.Request.Context(), userID, &req); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Password changed successfully",
	})
}

func (h *AuthHandler) mergeGuestCart(c *gin.Context, userID uint) {
	sessionID := middleware.GetSessionIDFromContext(c)
	if h.carts == nil || sessionID == "" {
		return
	}
	if _, err := h.carts.MergeGuestCart(c.Request.Context(), userID, sessionID); err != nil {
		h.log.WithError(err).WithField("user_id", userID).Warn("Failed to merge guest cart on login")
	}
}
