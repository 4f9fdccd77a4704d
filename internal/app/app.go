// internal/app/app.go
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/payment"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/memory"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/interfaces/http/handlers"
	"github.com/your-org/storefront-backend/internal/interfaces/http/routes"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/events"
	"github.com/your-org/storefront-backend/internal/pkg/metrics"
	"github.com/your-org/storefront-backend/internal/pkg/pdf"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
	"gorm.io/gorm"
)

// Repositories is one storage backend
type Repositories struct {
	Beginner      unitofwork.Beginner
	Users         user.Repository
	Products      product.Repository
	Carts         cart.Repository
	Inventory     inventory.Repository
	Orders        order.Repository
	Notifications notification.Repository
}

// MemoryRepositories serves every repository from one in-process store
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Beginner:      store,
		Users:         memory.NewUserRepository(store),
		Products:      memory.NewProductRepository(store),
		Carts:         memory.NewCartRepository(store),
		Inventory:     memory.NewInventoryRepository(store),
		Orders:        memory.NewOrderRepository(store),
		Notifications: memory.NewNotificationRepository(store),
	}
}

// PostgresRepositories serves every repository from PostgreSQL via gorm
func PostgresRepositories(db *gorm.DB) Repositories {
	return Repositories{
		Beginner:      postgres.NewBeginner(db),
		Users:         postgres.NewUserRepository(db),
		Products:      postgres.NewProductRepository(db),
		Carts:         postgres.NewCartRepository(db),
		Inventory:     postgres.NewInventoryRepository(db),
		Orders:        postgres.NewOrderRepository(db),
		Notifications: postgres.NewNotificationRepository(db),
	}
}

// Externals are the optional outbound integrations
type Externals struct {
	Realtime    notification.Publisher // nil stores notifications without pushing
	Events      events.Publisher       // nil drops domain events
	EmailSender email.Sender           // nil sends over SMTP
	Metrics     *metrics.Metrics
}

// Services holds every domain service
type Services struct {
	Tokens        *auth.JWTManager
	Users         *user.Service
	Products      *product.Service
	Carts         *cart.Service
	Inventory     *inventory.Service
	Orders        *order.Service
	Checkout      *checkout.Service
	Payments      *payment.Service
	Notifications *notification.Dispatcher
	Sweeper       *notification.Sweeper

	repos Repositories
	cfg   *config.Config
}

// NewServices wires the domain services over repos
func NewServices(cfg *config.Config, repos Repositories, ext Externals, log *logrus.Logger) *Services {
	uow := unitofwork.NewExecutor(repos.Beginner, cfg.Database.TxMaxAttempts, log.WithField("component", "unitofwork"))
	emitter := events.NewEmitter(ext.Events, ext.Metrics, log.WithField("component", "events"))

	mailer := email.NewEmailService(cfg.Email, log.WithField("component", "email"))
	if ext.EmailSender != nil {
		mailer = email.NewEmailServiceWithSender(cfg.Email, ext.EmailSender, log.WithField("component", "email"))
	}

	tokens := auth.NewJWTManager(cfg.JWT, cfg.App.Name)
	passwords := auth.NewPasswordManager(cfg.Security.BcryptCost)

	dispatcher := notification.NewDispatcher(repos.Notifications, repos.Users, ext.Realtime,
		cfg.Notification.TTL, ext.Metrics, log.WithField("component", "notification"))
	monitor := inventory.NewAlertMonitor(repos.Inventory, dispatcher, ext.Metrics, log.WithField("component", "stock_alerts"))
	inventoryService := inventory.NewService(repos.Inventory, uow, monitor,
		cfg.Inventory.DefaultLowStockThreshold, ext.Metrics, log.WithField("component", "inventory"))

	productService := product.NewService(repos.Products, uow, inventoryService, log.WithField("component", "product"))
	cartService := cart.NewService(repos.Carts, repos.Products, uow,
		product.ParseVariantPolicy(cfg.Cart.VariantPolicy), log.WithField("component", "cart"))

	orderService := order.NewService(repos.Orders, uow, inventoryService, dispatcher, mailer, emitter,
		pdf.NewService(cfg.Invoice), ext.Metrics, log.WithField("component", "order"))
	paymentService := payment.NewService(cfg.Checkout, cfg.Payment, orderService, log.WithField("component", "payment"))
	checkoutService := checkout.NewService(cartService, repos.Products, inventoryService, orderService, paymentService,
		dispatcher, uow, emitter, cfg.Checkout.Currency, ext.Metrics, log.WithField("component", "checkout"))

	userService := user.NewService(repos.Users, passwords, tokens, dispatcher, log.WithField("component", "user"))

	return &Services{
		Tokens:        tokens,
		Users:         userService,
		Products:      productService,
		Carts:         cartService,
		Inventory:     inventoryService,
		Orders:        orderService,
		Checkout:      checkoutService,
		Payments:      paymentService,
		Notifications: dispatcher,
		Sweeper:       notification.NewSweeper(dispatcher, cfg.Notification.CleanupInterval, log.WithField("component", "notification_sweeper")),
		repos:         repos,
		cfg:           cfg,
	}
}

// Handlers builds the HTTP handlers over the services
func (s *Services) Handlers(log *logrus.Logger) *routes.Handlers {
	httpLog := log.WithField("component", "http")
	return &routes.Handlers{
		Auth:         handlers.NewAuthHandler(s.Users, s.Carts, httpLog),
		Cart:         handlers.NewCartHandler(s.Carts, httpLog),
		Checkout:     handlers.NewCheckoutHandler(s.Checkout, httpLog),
		Payment:      handlers.NewPaymentHandler(s.Payments, httpLog),
		Order:        handlers.NewOrderHandler(s.Orders, httpLog),
		Notification: handlers.NewNotificationHandler(s.Notifications, httpLog),
		Product:      handlers.NewProductHandler(s.Products, httpLog),
		Inventory:    handlers.NewInventoryHandler(s.Inventory, httpLog),
	}
}

// SeedDemoData creates the configured admin and a demo product when the
// store is empty. PostgreSQL seeds through its migration instead.
func (s *Services) SeedDemoData(ctx context.Context) (*product.Product, error) {
	hash, err := auth.NewPasswordManager(s.cfg.Security.BcryptCost).HashPassword(s.cfg.Security.SeedAdminPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to hash seed admin password: %w", err)
	}
	admin := &user.User{
		Email:     user.NormalizeEmail(s.cfg.Security.SeedAdminEmail),
		Password:  hash,
		FirstName: "Admin",
		LastName:  "User",
		IsActive:  true,
		IsAdmin:   true,
	}
	if err := s.repos.Users.Create(ctx, admin); err != nil && !errors.Is(err, apperror.ErrDuplicate) {
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}

	p, err := s.Products.CreateProduct(ctx, &product.ProductCreateRequest{
		SKU:         "DEMO-TEE",
		Name:        "Demo T-Shirt",
		Description: "Cotton tee used for local checkout testing",
		Price:       1500,
		IsPublished: true,
		Variants: []product.VariantCreateRequest{
			{SKU: "DEMO-TEE-M", Name: "Size", Value: "M", Price: 1500, InitialStock: 20},
			{SKU: "DEMO-TEE-L", Name: "Size", Value: "L", Price: 1500, InitialStock: 5},
		},
	}, nil)
	if errors.Is(err, apperror.ErrDuplicate) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to seed demo product: %w", err)
	}
	return p, nil
}
