package usecase_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ipadRef = domain.ProductRef{
	ID:       7,
	Category: domain.CategoryIPad,
	Name:     "iPad Air",
	Model:    "Air",
	Price:    20000,
	Image:    "ipad.png",
}

var watchRef = domain.ProductRef{
	ID:       7,
	Category: domain.CategoryAppleWatch,
	Name:     "Apple Watch",
	Price:    15000,
}

func newCart(t *testing.T) (*miniredis.Miniredis, *usecase.CartUseCase) {
	t.Helper()

	mr, store := setupStore(t)
	c := usecase.NewCartUC(store, logger.NewNopLogger())
	require.NoError(t, c.Load(context.Background()))

	return mr, c
}

func assertCountMatches(t *testing.T, mr *miniredis.Miniredis, c *usecase.CartUseCase) {
	t.Helper()

	var sum int
	for _, it := range c.Items() {
		sum += it.Quantity
	}
	assert.Equal(t, sum, c.Count())

	stored, err := mr.Get(keyed.KeyCartCount)
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(sum), stored)
}

func TestCart_AddIPadTwice(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, ipadRef, 1))
	require.NoError(t, c.AddItem(ctx, ipadRef, 1))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, int64(40000), c.Total())
	assertCountMatches(t, mr, c)
}

func TestCart_SameIDDifferentCategoryIsSeparateLine(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, ipadRef, 1))
	require.NoError(t, c.AddItem(ctx, watchRef, 3))

	assert.Len(t, c.Items(), 2)
	assert.Equal(t, 4, c.Count())
	assert.Equal(t, int64(20000+3*15000), c.Total())
	assertCountMatches(t, mr, c)
}

func TestCart_InvalidQuantity(t *testing.T) {
	_, c := newCart(t)

	assert.ErrorIs(t, c.AddItem(context.Background(), ipadRef, 0), e.ErrInvalidQuantity)
	assert.Empty(t, c.Items())
}

func TestCart_QuantityIsCapped(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	pricey := ipadRef
	pricey.Price = 1_000_000_000

	assert.ErrorIs(t, c.AddItem(ctx, pricey, 10_000_000_000), e.ErrInvalidQuantity)
	assert.Empty(t, c.Items())

	require.NoError(t, c.AddItem(ctx, pricey, domain.MaxLineQuantity-1))
	assert.ErrorIs(t, c.AddItem(ctx, pricey, 2), e.ErrInvalidQuantity)
	assert.ErrorIs(t, c.ChangeQuantity(ctx, 0, 2), e.ErrInvalidQuantity)

	require.NoError(t, c.AddItem(ctx, pricey, 1))
	assert.Equal(t, domain.MaxLineQuantity, c.Count())
	assert.Equal(t, int64(domain.MaxLineQuantity)*pricey.Price, c.Total())
	assertCountMatches(t, mr, c)
}

func TestCart_ChangeQuantityToZeroRemovesLine(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, watchRef, 1))
	require.NoError(t, c.AddItem(ctx, ipadRef, 2))
	require.Equal(t, 3, c.Count())

	require.NoError(t, c.ChangeQuantity(ctx, 1, -5))

	assert.Len(t, c.Items(), 1)
	assert.Equal(t, 1, c.Count())
	assertCountMatches(t, mr, c)
}

func TestCart_ChangeQuantity(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, ipadRef, 1))
	require.NoError(t, c.ChangeQuantity(ctx, 0, 2))
	assert.Equal(t, 3, c.Items()[0].Quantity)
	require.NoError(t, c.ChangeQuantity(ctx, 0, -1))
	assert.Equal(t, 2, c.Items()[0].Quantity)
	assertCountMatches(t, mr, c)

	assert.ErrorIs(t, c.ChangeQuantity(ctx, 1, 1), e.ErrOutOfRange)
	assert.ErrorIs(t, c.ChangeQuantity(ctx, -1, 1), e.ErrOutOfRange)
}

func TestCart_RemoveAndClear(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, ipadRef, 2))
	require.NoError(t, c.AddItem(ctx, watchRef, 1))

	require.NoError(t, c.RemoveItem(ctx, 0))
	assert.Equal(t, 1, c.Count())
	assertCountMatches(t, mr, c)
	assert.ErrorIs(t, c.RemoveItem(ctx, 5), e.ErrOutOfRange)

	require.NoError(t, c.Clear(ctx))
	assert.Empty(t, c.Items())
	assert.Zero(t, c.Total())
	assertCountMatches(t, mr, c)

	raw, err := mr.Get(keyed.KeyCart)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestCart_LoadRecomputesCount(t *testing.T) {
	mr, store := setupStore(t)
	require.NoError(t, mr.Set(keyed.KeyCart, `[{"id":7,"category":"ipad","price":20000,"quantity":2},{"id":1,"category":"iphone","price":1,"quantity":0}]`))
	require.NoError(t, mr.Set(keyed.KeyCartCount, "9"))

	c := usecase.NewCartUC(store, logger.NewNopLogger())
	require.NoError(t, c.Load(context.Background()))

	assert.Len(t, c.Items(), 1)
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, int64(40000), c.Total())
}

func TestCart_FailedWriteLeavesMemoryUnchanged(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	require.NoError(t, c.AddItem(ctx, ipadRef, 1))

	mr.SetError("storage down")
	err := c.AddItem(ctx, ipadRef, 1)
	assert.ErrorIs(t, err, e.ErrStorageFailure)
	mr.SetError("")

	assert.Equal(t, 1, c.Count())
	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestCart_FailedCountWriteLeavesStateUnchanged(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	c := usecase.NewCartUC(&failingStore{Store: store, failKey: keyed.KeyCartCount}, logger.NewNopLogger())
	require.NoError(t, c.Load(ctx))

	err := c.AddItem(ctx, ipadRef, 1)
	assert.ErrorIs(t, err, e.ErrStorageFailure)

	assert.Zero(t, c.Count())
	assert.Empty(t, c.Items())
	assert.False(t, mr.Exists(keyed.KeyCart))
	assert.False(t, mr.Exists(keyed.KeyCartCount))
}

func TestCart_Checkout(t *testing.T) {
	mr, c := newCart(t)
	ctx := context.Background()

	_, err := c.Checkout(ctx)
	assert.ErrorIs(t, err, e.ErrEmptyCart)

	require.NoError(t, mr.Set(keyed.KeyDeliveryData, `{"city":"Kyiv"}`))
	require.NoError(t, mr.Set(keyed.KeyPaymentData, `{}`))
	require.NoError(t, mr.Set(keyed.KeySelectedPayment, `card`))
	require.NoError(t, mr.Set(keyed.KeyCurrentOrder, `{}`))

	require.NoError(t, c.AddItem(ctx, ipadRef, 2))
	handoff, err := c.Checkout(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(40000), handoff.Total)
	assert.Equal(t, 2, handoff.Count)
	require.Len(t, handoff.Items, 1)

	total, err := mr.Get(keyed.KeyCartTotal)
	require.NoError(t, err)
	assert.Equal(t, "40000", total)
	for _, k := range []string{keyed.KeyDeliveryData, keyed.KeyPaymentData, keyed.KeySelectedPayment, keyed.KeyCurrentOrder} {
		assert.False(t, mr.Exists(k), k)
	}
}

func TestCart_Snapshot(t *testing.T) {
	_, c := newCart(t)
	require.NoError(t, c.AddItem(context.Background(), ipadRef, 3))

	snap := c.Snapshot()
	assert.Equal(t, 3, snap.Count)
	assert.Equal(t, int64(60000), snap.Total)
	assert.Equal(t, "ipad.png", snap.Items[0].Image)
}
