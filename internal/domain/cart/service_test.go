package cart_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-backend/internal/app/apptest"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/cart"
	"github.com/your-org/storefront-backend/internal/domain/product"
	"github.com/your-org/storefront-backend/internal/pkg/apperror"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func variant(id uint) *uint { return &id }

func TestIdentityValidate(t *testing.T) {
	userID := uint(3)
	zero := uint(0)

	assert.NoError(t, cart.ForUser(3).Validate())
	assert.NoError(t, cart.ForSession("abc").Validate())
	assert.ErrorIs(t, cart.Identity{}.Validate(), apperror.ErrInvalidInput)
	assert.ErrorIs(t, cart.Identity{UserID: &userID, SessionID: "abc"}.Validate(), apperror.ErrInvalidInput)
	assert.ErrorIs(t, cart.Identity{UserID: &zero}.Validate(), apperror.ErrInvalidInput)
}

func TestAddItemMergesLines(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	p := h.Product(t, "TEE", 1500, 10)
	id := cart.ForSession("guest-1")

	_, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 2})
	require.NoError(t, err)
	resp, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 3})
	require.NoError(t, err)

	require.Len(t, resp.Items, 1)
	line := resp.Items[0]
	assert.Equal(t, 5, line.Quantity)
	assert.EqualValues(t, 1500, line.UnitPrice)
	assert.EqualValues(t, 7500, line.LineTotal)
	assert.True(t, line.Purchasable)
	assert.Equal(t, cart.CartTotals{ItemCount: 1, TotalQuantity: 5, SubTotal: 7500}, resp.Totals)
}

func TestAddItemChecksMergedQuantityAgainstStock(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	p := h.Product(t, "TEE", 1500, 4)
	id := cart.ForUser(h.Shopper(t, "a@example.com").User.ID)
	v := variant(p.Variants[0].ID)

	_, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: v, Quantity: 3})
	require.NoError(t, err)

	_, err = h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: v, Quantity: 2})
	var stockErr *apperror.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 4, stockErr.Available)
	assert.Equal(t, 5, stockErr.Requested)

	resp, err := h.Services.Carts.GetCart(ctx, id)
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 3, resp.Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	p := h.Product(t, "TEE", 1500, 5, 5)
	id := cart.ForSession("guest-1")

	_, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 0})
	require.ErrorIs(t, err, apperror.ErrInvalidQuantity)

	_, err = h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, Quantity: 1})
	require.ErrorIs(t, err, apperror.ErrVariantRequired)

	_, err = h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: 999, Quantity: 1})
	require.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = h.Services.Carts.AddItem(ctx, cart.Identity{}, &cart.AddToCartRequest{ProductID: p.ID, Quantity: 1})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	require.NoError(t, h.Services.Products.SetPublished(ctx, p.ID, false))
	_, err = h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 1})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestImplicitSingleVariantPolicy(t *testing.T) {
	h := apptest.New(t, func(cfg *config.Config) { cfg.Cart.VariantPolicy = config.VariantPolicyImplicitSingle })
	ctx := context.Background()
	single := h.Product(t, "CAP", 900, 3)
	multi := h.Product(t, "TEE", 1500, 3, 3)
	id := cart.ForSession("guest-1")

	resp, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: single.ID, Quantity: 1})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, single.Variants[0].ID, resp.Items[0].VariantID)

	_, err = h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: multi.ID, Quantity: 1})
	require.ErrorIs(t, err, apperror.ErrVariantRequired)
}

func TestUpdateQuantity(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	p := h.Product(t, "TEE", 1500, 5)
	id := cart.ForSession("guest-1")

	resp, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 1})
	require.NoError(t, err)
	itemID := resp.Items[0].ID

	resp, err = h.Services.Carts.UpdateQuantity(ctx, id, itemID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Items[0].Quantity)

	_, err = h.Services.Carts.UpdateQuantity(ctx, id, itemID, 6)
	require.ErrorIs(t, err, apperror.ErrInsufficientStock)

	// decreasing never checks stock
	require.NoError(t, h.Services.Products.SetVariantActive(ctx, p.Variants[0].ID, false))
	resp, err = h.Services.Carts.UpdateQuantity(ctx, id, itemID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Items[0].Quantity)
	assert.False(t, resp.Items[0].Purchasable)

	resp, err = h.Services.Carts.UpdateQuantity(ctx, id, itemID, 0)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	_, err = h.Services.Carts.UpdateQuantity(ctx, id, itemID, 1)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCartsAreIsolatedByIdentity(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	p := h.Product(t, "TEE", 1500, 5)

	resp, err := h.Services.Carts.AddItem(ctx, cart.ForSession("guest-1"), &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 1})
	require.NoError(t, err)

	_, err = h.Services.Carts.RemoveItem(ctx, cart.ForSession("guest-2"), resp.Items[0].ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	other, err := h.Services.Carts.GetCart(ctx, cart.ForSession("guest-2"))
	require.NoError(t, err)
	assert.Empty(t, other.Items)
}

func TestCartShowsLivePrices(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	p := h.Product(t, "TEE", 1500, 5)
	id := cart.ForSession("guest-1")

	_, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 2})
	require.NoError(t, err)

	_, err = h.Services.Products.UpdateVariantPrice(ctx, p.Variants[0].ID, 2000)
	require.NoError(t, err)

	resp, err := h.Services.Carts.GetCart(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, resp.Items[0].UnitPrice)
	assert.EqualValues(t, 4000, resp.Totals.SubTotal)

	c, err := h.Services.Carts.GetOrCreate(ctx, id)
	require.NoError(t, err)
	subtotal, err := h.Services.Carts.ComputeSubtotal(ctx, c)
	require.NoError(t, err)
	assert.EqualValues(t, 4000, subtotal)
}

func TestClearKeepsCart(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	p := h.Product(t, "TEE", 1500, 5)
	id := cart.ForSession("guest-1")

	before, err := h.Services.Carts.AddItem(ctx, id, &cart.AddToCartRequest{ProductID: p.ID, VariantID: variant(p.Variants[0].ID), Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, h.Services.Carts.Clear(ctx, id))
	require.NoError(t, h.Services.Carts.Clear(ctx, cart.ForSession("never-used")))

	after, err := h.Services.Carts.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID)
	assert.Empty(t, after.Items)
}

func TestMergeGuestCart(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()
	tee := h.Product(t, "TEE", 1500, 3)
	hat := h.Product(t, "CAP", 900, 5)
	gone := h.Product(t, "OLD", 100, 5)

	guest := cart.ForSession("guest-1")
	userID := h.Shopper(t, "buyer@example.com").User.ID
	shopper := cart.ForUser(userID)

	_, err := h.Services.Carts.AddItem(ctx, guest, &cart.AddToCartRequest{ProductID: tee.ID, VariantID: variant(tee.Variants[0].ID), Quantity: 2})
	require.NoError(t, err)
	_, err = h.Services.Carts.AddItem(ctx, guest, &cart.AddToCartRequest{ProductID: hat.ID, VariantID: variant(hat.Variants[0].ID), Quantity: 1})
	require.NoError(t, err)
	_, err = h.Services.Carts.AddItem(ctx, guest, &cart.AddToCartRequest{ProductID: gone.ID, VariantID: variant(gone.Variants[0].ID), Quantity: 1})
	require.NoError(t, err)
	_, err = h.Services.Carts.AddItem(ctx, shopper, &cart.AddToCartRequest{ProductID: tee.ID, VariantID: variant(tee.Variants[0].ID), Quantity: 2})
	require.NoError(t, err)

	require.NoError(t, h.Services.Products.SetPublished(ctx, gone.ID, false))

	merged, err := h.Services.Carts.MergeGuestCart(ctx, userID, "guest-1")
	require.NoError(t, err)

	quantities := map[uint]int{}
	for _, line := range merged.Items {
		quantities[line.ProductID] = line.Quantity
	}
	assert.Equal(t, map[uint]int{tee.ID: 3, hat.ID: 1}, quantities, "summed lines are capped at stock")

	left, err := h.Services.Carts.GetCart(ctx, guest)
	require.NoError(t, err)
	assert.Empty(t, left.Items)

	again, err := h.Services.Carts.MergeGuestCart(ctx, userID, "guest-1")
	require.NoError(t, err)
	assert.Len(t, again.Items, 2)

	none, err := h.Services.Carts.MergeGuestCart(ctx, userID, "")
	require.NoError(t, err)
	assert.Len(t, none.Items, 2)
}

func TestConcurrentGetOrCreateConvergesOnOneCart(t *testing.T) {
	h := apptest.New(t)
	ctx := context.Background()

	const callers = 50
	ids := make([]uint, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := h.Services.Carts.GetOrCreate(ctx, cart.ForSession("race"))
			errs[i] = err
			if err == nil {
				ids[i] = c.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	assert.NotZero(t, ids[0])
}

// racingRepository loses the creation race: the first lookup misses, Create
// hits the unique index, and the winner's cart is visible afterwards.
type racingRepository struct {
	cart.Repository
	winner    *cart.Cart
	createErr error
	lookups   int
}

func (r *racingRepository) FindByIdentity(ctx context.Context, id cart.Identity) (*cart.Cart, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, apperror.ErrNotFound
	}
	return r.winner, nil
}

func (r *racingRepository) Create(ctx context.Context, c *cart.Cart) error {
	return r.createErr
}

func TestGetOrCreateRecoversFromDuplicateCreate(t *testing.T) {
	sessionID := "race"
	repo := &racingRepository{
		winner:    &cart.Cart{ID: 42, SessionID: &sessionID},
		createErr: apperror.ErrDuplicate,
	}
	svc := cart.NewService(repo, nil, nil, product.PolicyStrict, logger.Discard())

	c, err := svc.GetOrCreate(context.Background(), cart.ForSession(sessionID))
	require.NoError(t, err)
	assert.EqualValues(t, 42, c.ID)
	assert.Equal(t, 2, repo.lookups)
}

func TestGetOrCreateReportsOtherCreateFailures(t *testing.T) {
	failure := errors.New("connection reset")
	repo := &racingRepository{createErr: failure}
	svc := cart.NewService(repo, nil, nil, product.PolicyStrict, logger.Discard())

	_, err := svc.GetOrCreate(context.Background(), cart.ForUser(7))
	require.ErrorIs(t, err, failure)
	assert.Equal(t, 1, repo.lookups)
}
