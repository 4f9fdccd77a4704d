// Package apptest builds the whole storefront over the memory store for
// tests that drive more than one service.
package apptest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/app"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/checkout"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/memory"
	"github.com/your-org/storefront-backend/internal/pkg/auth"
	"github.com/your-org/storefront-backend/internal/pkg/email"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// WebhookSecret signs payment callbacks in tests
const WebhookSecret = "whsec_test_secret"

// Password satisfies the password rules
const Password = "Passw0rd!"

// Config returns a configuration for the memory driver with email
// capture enabled and redis off
func Config() *config.Config {
	return &config.Config{
		App:    config.AppConfig{Name: "Storefront Test", Version: "test", Environment: "test"},
		Server: config.ServerConfig{Port: "0", RequestTimeout: 5 * time.Second},
		Database: config.DatabaseConfig{
			Driver:        config.DatabaseDriverMemory,
			TxMaxAttempts: 3,
		},
		Redis: config.RedisConfig{Enabled: false},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-long-enough-for-hs256",
			AccessTokenExpiry: time.Hour,
		},
		Security: config.SecurityConfig{
			BcryptCost:         bcrypt.MinCost,
			RateLimitPerMinute: 1000,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
			CORSAllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			CORSAllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
			SeedAdminEmail:     "admin@example.com",
			SeedAdminPassword:  Password,
		},
		Logging:      config.LoggingConfig{Level: "error", Format: "text"},
		Inventory:    config.InventoryConfig{DefaultLowStockThreshold: 5},
		Cart:         config.CartConfig{VariantPolicy: config.VariantPolicyStrict, SessionTTL: time.Hour},
		Checkout:     config.CheckoutConfig{ImmediatePaymentMethods: []string{"cash", "cod"}, Currency: "KES"},
		Notification: config.NotificationConfig{TTL: 24 * time.Hour, CleanupInterval: time.Hour},
		Events:       config.EventsConfig{Broker: config.EventBrokerNone},
		Email: config.EmailConfig{
			Enabled:   true,
			FromEmail: "shop@example.com",
			FromName:  "Storefront",
			BaseURL:   "http://localhost:3000",
		},
		Invoice: config.InvoiceConfig{CompanyName: "Storefront Ltd", CompanyEmail: "billing@example.com"},
		Payment: config.PaymentConfig{WebhookSecret: WebhookSecret},
	}
}

// Mailbox records every email instead of sending it
type Mailbox struct {
	mu   sync.Mutex
	sent []email.Email
}

// Send implements email.Sender
func (m *Mailbox) Send(ctx context.Context, e *email.Email) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, *e)
	return nil
}

// Sent returns the recorded emails of type t
func (m *Mailbox) Sent(t email.EmailType) []email.Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []email.Email
	for _, e := range m.sent {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Harness is a wired storefront over a fresh memory store
type Harness struct {
	Config   *config.Config
	Store    *memory.Store
	Repos    app.Repositories
	Services *app.Services
	Mailbox  *Mailbox
	Log      *logrus.Logger
}

// New builds a harness. Options adjust the configuration before wiring.
func New(t testing.TB, opts ...func(cfg *config.Config)) *Harness {
	t.Helper()
	cfg := Config()
	for _, opt := range opts {
		opt(cfg)
	}

	log := logger.Discard()
	store := memory.NewStore()
	repos := app.MemoryRepositories(store)
	mailbox := &Mailbox{}

	return &Harness{
		Config:   cfg,
		Store:    store,
		Repos:    repos,
		Services: app.NewServices(cfg, repos, app.Externals{EmailSender: mailbox}, log),
		Mailbox:  mailbox,
		Log:      log,
	}
}

// Product creates a published product with one variant per stock value.
// Variant i is priced at price and has SKU "<sku>-<i>".
func (h *Harness) Product(t testing.TB, sku string, price int64, stocks ...int) *product.Product {
	t.Helper()
	req := &product.ProductCreateRequest{
		SKU:         sku,
		Name:        "Product " + sku,
		IsPublished: true,
	}
	for i, stock := range stocks {
		req.Variants = append(req.Variants, product.VariantCreateRequest{
			SKU:          fmt.Sprintf("%s-%d", sku, i+1),
			Name:         "Size",
			Value:        fmt.Sprintf("S%d", i+1),
			Price:        price,
			InitialStock: stock,
		})
	}
	p, err := h.Services.Products.CreateProduct(context.Background(), req, nil)
	require.NoError(t, err)
	return p
}

// Stock returns the live stock of a variant
func (h *Harness) Stock(t testing.TB, variantID uint) int {
	t.Helper()
	v, err := h.Services.Products.GetVariant(context.Background(), variantID)
	require.NoError(t, err)
	return v.Stock
}

// Shopper registers an active shopper
func (h *Harness) Shopper(t testing.TB, emailAddr string) *user.AuthResponse {
	t.Helper()
	resp, err := h.Services.Users.Register(context.Background(), &user.RegisterRequest{
		Email:           emailAddr,
		Password:        Password,
		ConfirmPassword: Password,
		FirstName:       "Test",
		LastName:        "Shopper",
	})
	require.NoError(t, err)
	return resp
}

// Admin creates an admin directly in the store and returns a token for it
func (h *Harness) Admin(t testing.TB, emailAddr string) (*user.User, string) {
	t.Helper()
	hash, err := auth.NewPasswordManager(h.Config.Security.BcryptCost).HashPassword(Password)
	require.NoError(t, err)
	u := &user.User{Email: emailAddr, Password: hash, FirstName: "Admin", IsActive: true, IsAdmin: true}
	require.NoError(t, h.Repos.Users.Create(context.Background(), u))

	token, err := h.Services.Tokens.GenerateAccessToken(u.ID, u.Email, true)
	require.NoError(t, err)
	return u, token
}

// CheckoutRequest is a valid checkout body paying with method
func CheckoutRequest(method string) *checkout.Request {
	return &checkout.Request{
		PaymentMethod:  method,
		ShippingMethod: "pickup",
		Customer:       order.Customer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		ShippingAddress: order.Address{
			AddressLine1: "1 Analytical Way",
			City:         "Nairobi",
			Country:      "KE",
		},
	}
}
