package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/domain/inventory"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/memory"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
	"github.com/your-org/storefront-backend/internal/pkg/unitofwork"
)

type lowStockCall struct {
	variantID uint
	stock     int
	threshold int
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []lowStockCall
}

func (n *recordingNotifier) NotifyLowStock(ctx context.Context, variantID uint, productName, variantLabel string, stock, threshold int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, lowStockCall{variantID, stock, threshold})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

type fixture struct {
	svc      *inventory.Service
	notifier *recordingNotifier
	variants []uint
}

// newFixture creates one product with two empty variants
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	p := &product.Product{
		SKU:         "TEE",
		Name:        "Tee",
		Slug:        "tee",
		IsPublished: true,
		Variants: []product.ProductVariant{
			{SKU: "TEE-M", Name: "Size", Value: "M", Price: 1500, IsActive: true},
			{SKU: "TEE-L", Name: "Size", Value: "L", Price: 1500, IsActive: true},
		},
	}
	require.NoError(t, memory.NewProductRepository(store).Create(context.Background(), p))

	repo := memory.NewInventoryRepository(store)
	uow := unitofwork.NewExecutor(store, 3, logger.Discard())
	notifier := &recordingNotifier{}
	monitor := inventory.NewAlertMonitor(repo, notifier, nil, logger.Discard())

	return &fixture{
		svc:      inventory.NewService(repo, uow, monitor, 3, nil, logger.Discard()),
		notifier: notifier,
		variants: []uint{p.Variants[0].ID, p.Variants[1].ID},
	}
}

func (f *fixture) stock(t *testing.T, variantID uint) int {
	t.Helper()
	r, err := f.svc.Reconcile(context.Background(), variantID)
	require.NoError(t, err)
	require.True(t, r.Balanced, "ledger out of balance: %+v", r)
	return r.Stock
}

func TestMovementsRecordPreviousAndNewStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	m, err := f.svc.AddStock(ctx, v, 10, inventory.ChangeOptions{Notes: "delivery"})
	require.NoError(t, err)
	assert.Equal(t, inventory.MovementTypeAddition, m.MovementType)
	assert.Equal(t, 10, m.Quantity)
	assert.Equal(t, 0, m.PreviousStock)
	assert.Equal(t, 10, m.NewStock)

	m, err = f.svc.RecordSale(ctx, v, 4, inventory.ChangeOptions{Reference: &inventory.Reference{Type: inventory.ReferenceOrder, ID: 42}})
	require.NoError(t, err)
	assert.Equal(t, -4, m.Quantity)
	assert.Equal(t, 6, m.NewStock)
	assert.Equal(t, inventory.ReferenceOrder, m.ReferenceType)
	require.NotNil(t, m.ReferenceID)
	assert.EqualValues(t, 42, *m.ReferenceID)

	_, err = f.svc.RecordDamage(ctx, v, 1, inventory.ChangeOptions{})
	require.NoError(t, err)
	_, err = f.svc.RecordReturn(ctx, v, 2, inventory.ChangeOptions{})
	require.NoError(t, err)
	_, err = f.svc.AdjustStock(ctx, v, -3, inventory.ChangeOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, f.stock(t, v))
}

func TestCorrectionSetsCountedStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	_, err := f.svc.AddStock(ctx, v, 10, inventory.ChangeOptions{})
	require.NoError(t, err)

	m, err := f.svc.CorrectStock(ctx, v, 7, inventory.ChangeOptions{})
	require.NoError(t, err)
	assert.Equal(t, -3, m.Quantity)
	assert.Equal(t, 7, m.NewStock)

	m, err = f.svc.CorrectStock(ctx, v, 7, inventory.ChangeOptions{Notes: "recount"})
	require.NoError(t, err)
	assert.Zero(t, m.Quantity)
	assert.Equal(t, 7, m.PreviousStock)

	r, err := f.svc.Reconcile(ctx, v)
	require.NoError(t, err)
	assert.True(t, r.Balanced)
	assert.EqualValues(t, 3, r.MovementCount)
}

func TestStockNeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	_, err := f.svc.AddStock(ctx, v, 2, inventory.ChangeOptions{})
	require.NoError(t, err)

	_, err = f.svc.RecordSale(ctx, v, 3, inventory.ChangeOptions{})
	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 2, stockErr.Available)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, "Tee", stockErr.ProductName)
	assert.Equal(t, "Size: M", stockErr.VariantName)

	_, err = f.svc.AdjustStock(ctx, v, -5, inventory.ChangeOptions{})
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)

	assert.Equal(t, 2, f.stock(t, v))
}

func TestRejectsInvalidQuantities(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	_, err := f.svc.AddStock(ctx, v, 0, inventory.ChangeOptions{})
	require.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	_, err = f.svc.RecordSale(ctx, v, -1, inventory.ChangeOptions{})
	require.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	_, err = f.svc.AdjustStock(ctx, v, 0, inventory.ChangeOptions{})
	require.ErrorIs(t, err, apperror.ErrInvalidQuantity)
	_, err = f.svc.CorrectStock(ctx, v, -1, inventory.ChangeOptions{})
	require.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	_, err = f.svc.AddStock(ctx, 999, 1, inventory.ChangeOptions{})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAlertLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	_, err := f.svc.AddStock(ctx, v, 10, inventory.ChangeOptions{})
	require.NoError(t, err)

	alert, err := f.svc.SetAlert(ctx, v, 5, true)
	require.NoError(t, err)
	assert.Equal(t, inventory.AlertStateActiveUnnotified, alert.State())
	assert.Zero(t, f.notifier.count())

	// crossing the threshold notifies once
	_, err = f.svc.RecordSale(ctx, v, 5, inventory.ChangeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count())
	assert.Equal(t, lowStockCall{variantID: v, stock: 5, threshold: 5}, f.notifier.calls[0])

	_, err = f.svc.RecordSale(ctx, v, 2, inventory.ChangeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count())

	alert, err = f.svc.GetAlert(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, inventory.AlertStateActiveNotified, alert.State())

	active, err := f.svc.ListActiveAlerts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, v, active[0].VariantID)

	// restocking above the threshold resolves
	_, err = f.svc.AddStock(ctx, v, 10, inventory.ChangeOptions{})
	require.NoError(t, err)
	alert, err = f.svc.GetAlert(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, inventory.AlertStateResolved, alert.State())
	require.NotNil(t, alert.ResolvedAt)

	active, err = f.svc.ListActiveAlerts(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	// a resolved alert fires again on the next breach
	_, err = f.svc.RecordSale(ctx, v, 12, inventory.ChangeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, f.notifier.count())
	alert, err = f.svc.GetAlert(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, inventory.AlertStateActiveNotified, alert.State())
	assert.Nil(t, alert.ResolvedAt)
}

func TestSetAlertBelowThresholdNotifiesImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	_, err := f.svc.AddStock(ctx, v, 2, inventory.ChangeOptions{})
	require.NoError(t, err)

	alert, err := f.svc.SetAlert(ctx, v, 5, true)
	require.NoError(t, err)
	assert.Equal(t, inventory.AlertStateActiveNotified, alert.State())
	assert.Equal(t, 1, f.notifier.count())

	_, err = f.svc.SetAlert(ctx, v, 4, true)
	require.NoError(t, err)
	assert.Equal(t, 1, f.notifier.count())

	_, err = f.svc.SetAlert(ctx, v, -1, true)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDisabledAlertStaysQuiet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	_, err := f.svc.AddStock(ctx, v, 10, inventory.ChangeOptions{})
	require.NoError(t, err)
	alert, err := f.svc.SetAlert(ctx, v, 5, false)
	require.NoError(t, err)
	assert.Equal(t, inventory.AlertStateDisabled, alert.State())

	_, err = f.svc.RecordSale(ctx, v, 9, inventory.ChangeOptions{})
	require.NoError(t, err)
	assert.Zero(t, f.notifier.count())

	report, err := f.svc.LowStockReport(ctx)
	require.NoError(t, err)
	for _, item := range report {
		assert.NotEqual(t, v, item.VariantID)
	}
}

func TestLowStockReportUsesDefaultThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medium, large := f.variants[0], f.variants[1]

	_, err := f.svc.AddStock(ctx, medium, 3, inventory.ChangeOptions{})
	require.NoError(t, err)
	_, err = f.svc.AddStock(ctx, large, 4, inventory.ChangeOptions{})
	require.NoError(t, err)

	report, err := f.svc.LowStockReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, medium, report[0].VariantID)
	assert.Equal(t, 3, report[0].Threshold)
	assert.False(t, report[0].HasAlert)
	assert.Equal(t, inventory.AlertStateNone, report[0].AlertState)

	_, err = f.svc.SetAlert(ctx, large, 8, true)
	require.NoError(t, err)

	report, err = f.svc.LowStockReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 2)
	assert.Equal(t, medium, report[0].VariantID)
	assert.Equal(t, large, report[1].VariantID)
	assert.True(t, report[1].HasAlert)
	assert.Equal(t, 8, report[1].Threshold)
}

func TestBulkUpdateIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medium, large := f.variants[0], f.variants[1]

	_, err := f.svc.AddStock(ctx, medium, 5, inventory.ChangeOptions{})
	require.NoError(t, err)
	_, err = f.svc.SetAlert(ctx, medium, 2, true)
	require.NoError(t, err)

	_, err = f.svc.BulkUpdate(ctx, []inventory.BulkEntry{
		{VariantID: medium, MovementType: inventory.MovementTypeSale, Quantity: 4},
		{VariantID: large, MovementType: inventory.MovementTypeAddition, Quantity: 10},
		{VariantID: large, MovementType: inventory.MovementTypeDamage, Quantity: 20},
	}, nil)
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "entry 2")

	assert.Equal(t, 5, f.stock(t, medium))
	assert.Equal(t, 0, f.stock(t, large))
	assert.Zero(t, f.notifier.count(), "rolled back breach must not notify")

	movements, err := f.svc.BulkUpdate(ctx, []inventory.BulkEntry{
		{VariantID: medium, MovementType: inventory.MovementTypeCorrection, Quantity: 1},
		{VariantID: large, MovementType: inventory.MovementTypeAdjustment, Quantity: 6},
	}, nil)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, 1, f.stock(t, medium))
	assert.Equal(t, 6, f.stock(t, large))
	assert.Equal(t, 1, f.notifier.count())

	_, err = f.svc.BulkUpdate(ctx, []inventory.BulkEntry{{VariantID: medium, MovementType: "restock", Quantity: 1}}, nil)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = f.svc.BulkUpdate(ctx, nil, nil)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.variants[0]

	_, err := f.svc.AddStock(ctx, v, 10, inventory.ChangeOptions{})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.RecordSale(ctx, v, 1, inventory.ChangeOptions{})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, apperror.ErrInsufficientStock):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 15, rejected)
	assert.Equal(t, 0, f.stock(t, v))
}

func TestListMovements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	medium, large := f.variants[0], f.variants[1]

	for i := 0; i < 3; i++ {
		_, err := f.svc.AddStock(ctx, medium, 1, inventory.ChangeOptions{})
		require.NoError(t, err)
	}
	_, err := f.svc.RecordSale(ctx, medium, 1, inventory.ChangeOptions{})
	require.NoError(t, err)
	_, err = f.svc.AddStock(ctx, large, 1, inventory.ChangeOptions{})
	require.NoError(t, err)

	page, err := f.svc.ListMovements(ctx, inventory.MovementFilter{VariantID: &medium, Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Pagination.Total)
	require.Len(t, page.Movements, 2)
	assert.Equal(t, inventory.MovementTypeSale, page.Movements[0].MovementType)
	assert.True(t, page.Pagination.HasNext)

	page, err = f.svc.ListMovements(ctx, inventory.MovementFilter{MovementType: inventory.MovementTypeAddition})
	require.NoError(t, err)
	assert.EqualValues(t, 4, page.Pagination.Total)

	_, err = f.svc.ListMovements(ctx, inventory.MovementFilter{MovementType: "gift"})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}
