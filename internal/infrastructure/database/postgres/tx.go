// internal/infrastructure/database/postgres/tx.go
package postgres

import (
	"context"
	"fmt"

	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
	"gorm.io/gorm"
)

type txKey struct{}

// Beginner starts gorm transactions for the unit of work
type Beginner struct {
	db *gorm.DB
}

// NewBeginner creates a transaction starter
func NewBeginner(db *gorm.DB) *Beginner {
	return &Beginner{db: db}
}

var _ unitofwork.Beginner = (*Beginner)(nil)

// Begin implements unitofwork.Beginner
func (b *Beginner) Begin(ctx context.Context) (context.Context, unitofwork.Tx, error) {
	tx := b.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return context.WithValue(ctx, txKey{}, tx), &gormTx{tx: tx}, nil
}

type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) Commit() error {
	return translate(t.tx.Commit().Error)
}

func (t *gormTx) Rollback() error {
	return t.tx.Rollback().Error
}

// conn returns the transaction carried by ctx, or the pool
func conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
