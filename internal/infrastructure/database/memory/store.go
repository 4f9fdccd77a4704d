// internal/infrastructure/database/memory/store.go
package memory

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/notification"
	"github.com/your-org/storefront-backend/internal/domain/order"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/domain/user"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
)

// Store is a process-local database used by tests and by the API when
// DB_DRIVER=memory. A transaction holds the store lock until it ends, so
// transactions are fully serialized.
type Store struct {
	mu   sync.RWMutex
	data *tables
}

// tables holds every row by id. Related rows (variants, cart and order
// items, history) live in their own maps and are joined on read.
type tables struct {
	seq           map[string]uint
	users         map[uint]user.User
	products      map[uint]product.Product
	variants      map[uint]product.ProductVariant
	carts         map[uint]cart.Cart
	cartItems     map[uint]cart.CartItem
	movements     map[uint]inventory.StockMovement
	alerts        map[uint]inventory.StockAlert // by variant id
	orders        map[uint]order.Order
	orderItems    map[uint]order.OrderItem
	history       map[uint]order.OrderStatusHistory
	notifications map[uint]notification.Notification
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{data: &tables{
		seq:           make(map[string]uint),
		users:         make(map[uint]user.User),
		products:      make(map[uint]product.Product),
		variants:      make(map[uint]product.ProductVariant),
		carts:         make(map[uint]cart.Cart),
		cartItems:     make(map[uint]cart.CartItem),
		movements:     make(map[uint]inventory.StockMovement),
		alerts:        make(map[uint]inventory.StockAlert),
		orders:        make(map[uint]order.Order),
		orderItems:    make(map[uint]order.OrderItem),
		history:       make(map[uint]order.OrderStatusHistory),
		notifications: make(map[uint]notification.Notification),
	}}
}

// Stored values are never mutated through pointers, so a shallow copy of
// each map is a full snapshot.
func (t *tables) clone() *tables {
	return &tables{
		seq:           maps.Clone(t.seq),
		users:         maps.Clone(t.users),
		products:      maps.Clone(t.products),
		variants:      maps.Clone(t.variants),
		carts:         maps.Clone(t.carts),
		cartItems:     maps.Clone(t.cartItems),
		movements:     maps.Clone(t.movements),
		alerts:        maps.Clone(t.alerts),
		orders:        maps.Clone(t.orders),
		orderItems:    maps.Clone(t.orderItems),
		history:       maps.Clone(t.history),
		notifications: maps.Clone(t.notifications),
	}
}

func (t *tables) nextID(table string) uint {
	t.seq[table]++
	return t.seq[table]
}

type txKey struct{}

func isTx(ctx context.Context) bool {
	b, ok := ctx.Value(txKey{}).(bool)
	return ok && b
}

func (s *Store) rlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RLock()
	}
}

func (s *Store) runlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.RUnlock()
	}
}

func (s *Store) wlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Lock()
	}
}

func (s *Store) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		s.mu.Unlock()
	}
}

type tx struct {
	store    *Store
	snapshot *tables
	done     bool
}

// Begin implements unitofwork.Beginner
func (s *Store) Begin(ctx context.Context) (context.Context, unitofwork.Tx, error) {
	s.mu.Lock()
	return context.WithValue(ctx, txKey{}, true), &tx{store: s, snapshot: s.data.clone()}, nil
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.store.data = t.snapshot
	t.store.mu.Unlock()
	return nil
}

var _ unitofwork.Beginner = (*Store)(nil)

func now() time.Time {
	return time.Now().UTC()
}

// page slices rows for a 1-based page. A zero limit returns everything.
func page[T any](rows []T, pageNum, limit int) []T {
	if limit <= 0 {
		return rows
	}
	if pageNum < 1 {
		pageNum = 1
	}
	start := (pageNum - 1) * limit
	if start >= len(rows) {
		return []T{}
	}
	end := start + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}
