// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, log logrus.FieldLogger) *Migration {
	return &Migration{
		db:  db,
		log: log,
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.log.Info("Running database auto-migrations")

	// Dependency order
	models := []interface{}{
		&user.User{},

		&product.Product{},
		&product.ProductVariant{},

		&inventory.StockMovement{},
		&inventory.StockAlert{},

		&cart.Cart{},
		&cart.CartItem{},

		&order.Order{},
		&order.OrderItem{},
		&order.OrderStatusHistory{},

		&notification.Notification{},
	}

	for _, model := range models {
		m.log.Debugf("Migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.log.Info("Database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for the hot queries
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_product_variants_product_active ON product_variants(product_id, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_variant_id_desc ON stock_movements(variant_id, id DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_user_status ON orders(user_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_created_at ON orders(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_order_status_history_order ON order_status_history(order_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id, is_read, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_notifications_expires_at ON notifications(expires_at) WHERE expires_at IS NOT NULL",
	}

	failed := 0
	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.log.WithError(err).WithField("sql", indexSQL).Warn("Failed to create index")
			failed++
		}
	}

	m.log.WithFields(logrus.Fields{
		"created": len(indexes) - failed,
		"failed":  failed,
	}).Info("Additional indexes processed")
	return nil
}

// SeedInitialData inserts the development admin and a demo product
func (m *Migration) SeedInitialData(cfg config.SecurityConfig) error {
	if err := m.seedAdminUser(cfg); err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}
	if err := m.seedDemoProduct(); err != nil {
		return fmt.Errorf("failed to seed demo product: %w", err)
	}
	return nil
}

func (m *Migration) seedAdminUser(cfg config.SecurityConfig) error {
	var existing user.User
	err := m.db.Where("email = ?", user.NormalizeEmail(cfg.SeedAdminEmail)).First(&existing).Error
	if err == nil {
		m.log.WithField("user_id", existing.ID).Debug("Admin user already exists")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.SeedAdminPassword), cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := user.User{
		Email:     cfg.SeedAdminEmail,
		Password:  string(hashedPassword),
		FirstName: "Admin",
		LastName:  "User",
		IsActive:  true,
		IsAdmin:   true,
	}
	if err := m.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	m.log.WithFields(logrus.Fields{
		"user_id": admin.ID,
		"email":   admin.Email,
	}).Info("Created development admin user")
	return nil
}

// seedDemoProduct writes the opening stock as an addition entry so the
// ledger reconciles from the first row
func (m *Migration) seedDemoProduct() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	return m.db.Transaction(func(tx *gorm.DB) error {
		p := product.Product{
			SKU:         "DEMO-TEE",
			Name:        "Demo T-Shirt",
			Slug:        "demo-t-shirt",
			Description: "Cotton tee used for local checkout testing",
			Price:       1500,
			IsPublished: true,
			Variants: []product.ProductVariant{
				{SKU: "DEMO-TEE-M", Name: "Size", Value: "M", Price: 1500, Stock: 20, IsActive: true},
				{SKU: "DEMO-TEE-L", Name: "Size", Value: "L", Price: 1500, Stock: 5, IsActive: true},
			},
		}
		if err := tx.Create(&p).Error; err != nil {
			return err
		}

		for _, v := range p.Variants {
			movement := inventory.StockMovement{
				VariantID:     v.ID,
				MovementType:  inventory.MovementTypeAddition,
				Quantity:      v.Stock,
				PreviousStock: 0,
				NewStock:      v.Stock,
				Notes:         "Opening stock",
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		m.log.WithField("product_id", p.ID).Info("Seeded demo product")
		return nil
	})
}
