// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/middleware"
)

// Handlers groups every API handler
type Handlers struct {
	Auth         *handlers.AuthHandler
	Cart         *handlers.CartHandler
	Checkout     *handlers.CheckoutHandler
	Payment      *handlers.PaymentHandler
	Order        *handlers.OrderHandler
	Notification *handlers.NotificationHandler
	Product      *handlers.ProductHandler
	Inventory    *handlers.InventoryHandler
}

// Guards are the auth and session middleware shared by the route groups
type Guards struct {
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
	Admin        gin.HandlerFunc
	Session      gin.HandlerFunc
}

// NewGuards builds the guards from a token validator and session middleware
func NewGuards(tokens middleware.TokenValidator, session gin.HandlerFunc) Guards {
	return Guards{
		Auth:         middleware.AuthMiddleware(tokens),
		OptionalAuth: middleware.OptionalAuthMiddleware(tokens),
		Admin:        middleware.AdminMiddleware(),
		Session:      session,
	}
}

// SetupRoutes registers every API route under rg
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	SetupAuthRoutes(rg, h, g)
	SetupProductRoutes(rg, h, g)
	SetupCartRoutes(rg, h, g)
	SetupOrderRoutes(rg, h, g)
	SetupNotificationRoutes(rg, h, g)
	SetupWebhookRoutes(rg, h)
	SetupAdminRoutes(rg, h, g)
}

// SetupAuthRoutes sets up authentication related routes
func SetupAuthRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	auth := rg.Group("/auth")
	{
		// Public auth endpoints; the session lets login pick up the guest cart
		auth.POST("/register", g.Session, h.Auth.Register)
		auth.POST("/login", g.Session, h.Auth.Login)

		// Protected auth endpoints
		protected := auth.Group("")
		protected.Use(g.Auth)
		{
			protected.GET("/profile", h.Auth.GetProfile)
			protected.PUT("/password", h.Auth.ChangePassword)
		}
	}
}

// SetupProductRoutes sets up public catalog routes
func SetupProductRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	products := rg.Group("/products")
	products.Use(g.OptionalAuth)
	{
		products.GET("/:id", h.Product.GetProduct)
	}
}

// SetupCartRoutes sets up cart and checkout routes. Both work for guest
// sessions and signed-in users.
func SetupCartRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	cart := rg.Group("/cart")
	cart.Use(g.OptionalAuth, g.Session)
	{
		cart.GET("", h.Cart.GetCart)
		cart.POST("/items", h.Cart.AddToCart)
		cart.PUT("/items/:id", h.Cart.UpdateCartItem)
		cart.DELETE("/items/:id", h.Cart.RemoveFromCart)
		cart.DELETE("", h.Cart.ClearCart)
		cart.POST("/merge", g.Auth, h.Cart.MergeCart)
	}

	checkout := rg.Group("/checkout")
	checkout.Use(g.OptionalAuth, g.Session)
	{
		checkout.GET("/shipping-methods", h.Checkout.GetShippingMethods)
		checkout.POST("", h.Checkout.Checkout)
	}
}

// SetupOrderRoutes sets up the buyer's order routes
func SetupOrderRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	orders := rg.Group("/orders")
	orders.Use(g.Auth)
	{
		orders.GET("", h.Order.GetOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.GET("/:id/invoice", h.Order.GenerateInvoice)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
	}
}

// SetupNotificationRoutes sets up the notification inbox routes
func SetupNotificationRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	notifications := rg.Group("/notifications")
	notifications.Use(g.Auth)
	{
		notifications.GET("", h.Notification.GetNotifications)
		notifications.GET("/unread-count", h.Notification.GetUnreadCount)
		notifications.PUT("/read-all", h.Notification.MarkAllAsRead)
		notifications.PUT("/:id/read", h.Notification.MarkAsRead)
		notifications.DELETE("/:id", h.Notification.DeleteNotification)
	}
}

// SetupWebhookRoutes sets up payment gateway callbacks, authenticated by
// signature instead of a bearer token
func SetupWebhookRoutes(rg *gin.RouterGroup, h *Handlers) {
	webhooks := rg.Group("/webhooks")
	{
		webhooks.POST("/payments", h.Payment.WebhookHandler)
	}
}

// SetupAdminRoutes sets up admin related routes
func SetupAdminRoutes(rg *gin.RouterGroup, h *Handlers, g Guards) {
	admin := rg.Group("/admin")
	admin.Use(g.Auth)  // Require authentication
	admin.Use(g.Admin) // Require admin privileges
	{
		// Catalog management
		admin.POST("/products", h.Product.AdminCreateProduct)
		admin.PUT("/products/:id/publish", h.Product.AdminPublishProduct)
		admin.PUT("/variants/:id/price", h.Product.AdminUpdateVariantPrice)
		admin.PUT("/variants/:id/active", h.Product.AdminSetVariantActive)

		// Stock ledger
		inventory := admin.Group("/inventory")
		{
			inventory.POST("/variants/:id/add", h.Inventory.AddStock())
			inventory.POST("/variants/:id/adjust", h.Inventory.AdjustStock())
			inventory.POST("/variants/:id/correct", h.Inventory.CorrectStock)
			inventory.POST("/variants/:id/damage", h.Inventory.RecordDamage())
			inventory.GET("/variants/:id/reconcile", h.Inventory.Reconcile)
			inventory.GET("/variants/:id/alert", h.Inventory.GetAlert)
			inventory.PUT("/variants/:id/alert", h.Inventory.SetAlert)
			inventory.POST("/bulk", h.Inventory.BulkUpdate)
			inventory.GET("/movements", h.Inventory.GetMovements)
			inventory.GET("/alerts", h.Inventory.GetActiveAlerts)
			inventory.GET("/low-stock", h.Inventory.GetLowStock)
		}

		// Order management
		orders := admin.Group("/orders")
		{
			orders.GET("", h.Order.AdminGetOrders)
			orders.GET("/:id", h.Order.AdminGetOrder)
			orders.PUT("/:id/status", h.Order.AdminUpdateOrderStatus)
			orders.POST("/:id/cancel", h.Order.AdminCancelOrder)
		}
	}
}
