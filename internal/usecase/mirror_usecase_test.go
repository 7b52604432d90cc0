package usecase_test

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/infrastructure/broadcast"
	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	redisRepo "github.com/DRSN-tech/storefront-sync/internal/repository/redis"
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func publishMirror(t *testing.T, mr *miniredis.Miniredis, products []domain.Product, marker int64) {
	t.Helper()

	data, err := json.Marshal(products)
	require.NoError(t, err)
	require.NoError(t, mr.Set(keyed.KeyStoreProducts, string(data)))
	require.NoError(t, mr.Set(keyed.KeyProductsUpdated, strconv.FormatInt(marker, 10)))
}

func sampleProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "iPhone 15", Model: "15", Category: domain.CategoryIPhone, Price: 40000, Specs: "128GB", Status: domain.StatusInStock},
		{ID: 2, Name: "iPhone 15 Pro", Model: "15 Pro", Category: domain.CategoryIPhone, Price: 55000, Specs: "256GB titanium", Status: domain.StatusOutOfStock},
		{ID: 3, Name: "MacBook Air", Model: "M2", Category: domain.CategoryMacBook, Price: 45000, Description: "light laptop", Status: domain.StatusInStock},
		{ID: 4, Name: "MacBook Air 15", Model: "M2", Category: domain.CategoryMacBook, Price: 50000, Status: domain.StatusInStock},
		{ID: 5, Name: "MacBook Pro", Model: "M3", Category: domain.CategoryMacBook, Price: 60000, Status: domain.StatusInStock},
		{ID: 6, Name: "Vision Pro", Model: "1", Category: "vision", Price: 99000},
	}
}

func newMirror(t *testing.T) (*miniredis.Miniredis, *usecase.MirrorUseCase) {
	t.Helper()

	mr, store := setupStore(t)
	return mr, usecase.NewMirrorUC(store, logger.NewNopLogger())
}

func TestMirror_RefreshPartitionsAndDropsUnknown(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, sampleProducts(), 100)

	require.NoError(t, m.Refresh(context.Background()))

	counts := m.Counts()
	assert.Equal(t, 2, counts[domain.CategoryIPhone])
	assert.Equal(t, 0, counts[domain.CategoryIPad])
	assert.Equal(t, 3, counts[domain.CategoryMacBook])
	assert.Len(t, m.All(), 5)
	assert.Empty(t, m.ByCategory("vision"))
	assert.Equal(t, int64(100), m.LastObserved())
	assert.Equal(t, []domain.Category{domain.CategoryIPhone, domain.CategoryMacBook}, m.CategoriesWithProducts())
}

func TestMirror_AllFollowsCategoryOrder(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, []domain.Product{
		{ID: 1, Category: domain.CategoryAppleWatch},
		{ID: 2, Category: domain.CategoryMacBook},
		{ID: 3, Category: domain.CategoryIPhone},
		{ID: 4, Category: domain.CategoryIPad},
	}, 1)
	require.NoError(t, m.Refresh(context.Background()))

	var ids []int64
	for _, p := range m.All() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int64{3, 4, 2, 1}, ids)
}

func TestMirror_AbsentKeyKeepsBuckets(t *testing.T) {
	mr, m := newMirror(t)
	ctx := context.Background()
	publishMirror(t, mr, sampleProducts(), 1)
	require.NoError(t, m.Refresh(ctx))

	mr.Del(keyed.KeyStoreProducts)
	require.NoError(t, m.Refresh(ctx))

	assert.Len(t, m.All(), 5)
}

func TestMirror_FilteredMacBookAtPrice(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, sampleProducts(), 1)
	require.NoError(t, m.Refresh(context.Background()))

	got := m.Filtered(domain.CategoryMacBook, 50000, nil)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(4), got[1].ID)

	assert.Len(t, m.Filtered(domain.CategoryMacBook, 100000, []string{"M3"}), 1)
	assert.Empty(t, m.Filtered(domain.CategoryMacBook, 100000, []string{"M1"}))
	assert.Empty(t, m.Filtered(domain.CategoryIPad, 100000, nil))
}

func TestMirror_UniqueModels(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, sampleProducts(), 1)
	require.NoError(t, m.Refresh(context.Background()))

	assert.Equal(t, []string{"M2", "M3"}, m.UniqueModels(domain.CategoryMacBook))
	assert.Empty(t, m.UniqueModels(domain.CategoryAppleWatch))
}

func TestMirror_ProductByID(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, sampleProducts(), 1)
	require.NoError(t, m.Refresh(context.Background()))

	p, err := m.ProductByID(2, domain.CategoryIPhone)
	require.NoError(t, err)
	assert.Equal(t, "iPhone 15 Pro", p.Name)

	_, err = m.ProductByID(2, domain.CategoryIPad)
	assert.ErrorIs(t, err, e.ErrProductNotFound)

	_, err = m.ProductByID(6, "vision")
	assert.ErrorIs(t, err, e.ErrUnknownCategory)
}

func TestMirror_Search(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, sampleProducts(), 1)
	require.NoError(t, m.Refresh(context.Background()))

	res := m.Search("  TITANIUM ")
	require.Len(t, res.Exact, 1)
	assert.Equal(t, int64(2), res.Exact[0].ID)
	assert.Empty(t, res.Similar)

	res = m.Search("light macbook")
	assert.Empty(t, res.Exact)
	assert.Len(t, res.Similar, 3)

	res = m.Search("macbook")
	assert.Len(t, res.Exact, 3)
	assert.Empty(t, res.Similar)

	res = m.Search("zz")
	assert.Empty(t, res.Exact)
	assert.Empty(t, res.Similar)

	res = m.Search("   ")
	assert.Empty(t, res.Exact)
	assert.Empty(t, res.Similar)
}

func TestMirror_RandomAndStatus(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, sampleProducts(), 1)
	require.NoError(t, m.Refresh(context.Background()))

	assert.Len(t, m.Random(3), 3)
	assert.Len(t, m.Random(50), 5)
	assert.Empty(t, m.Random(-1))
	assert.Len(t, m.ByStatus(domain.StatusOutOfStock), 1)
	assert.Len(t, m.ByStatus(domain.StatusInStock), 4)
}

func TestMirror_RefreshIfStale(t *testing.T) {
	mr, m := newMirror(t)
	ctx := context.Background()

	refreshed, err := m.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, refreshed)

	publishMirror(t, mr, sampleProducts(), 10)
	refreshed, err = m.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.True(t, refreshed)

	refreshed, err = m.RefreshIfStale(ctx)
	require.NoError(t, err)
	assert.False(t, refreshed)
}

func TestMirror_RunPollingPicksUpChanges(t *testing.T) {
	mr, m := newMirror(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		m.RunPolling(ctx, 10*time.Millisecond, 0.1)
		close(done)
	}()

	publishMirror(t, mr, sampleProducts(), 42)
	require.Eventually(t, func() bool { return m.LastObserved() == 42 }, 2*time.Second, 10*time.Millisecond)
	assert.Len(t, m.All(), 5)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("polling did not stop")
	}
}

func TestMirror_FollowsCatalogOverBus(t *testing.T) {
	mr, client := setupRedis(t)
	store := keyed.NewStore(redisRepo.NewKVRepo(client), "", logger.NewNopLogger())

	adminBus := broadcast.NewBus(client, "products_updates", logger.NewNopLogger())
	storeBus := broadcast.NewBus(client, "products_updates", logger.NewNopLogger())
	t.Cleanup(func() {
		_ = adminBus.Close()
		_ = storeBus.Close()
	})

	ctx := context.Background()
	catalog := usecase.NewCatalogUC(store, adminBus, nil, nil, logger.NewNopLogger())
	require.NoError(t, catalog.Load(ctx))

	mirror := usecase.NewMirrorUC(store, logger.NewNopLogger())
	require.NoError(t, mirror.Listen(ctx, storeBus))

	p, err := catalog.Add(ctx, iphoneDraft())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(mirror.ByCategory(domain.CategoryIPhone)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	got, err := mirror.ProductByID(p.ID, domain.CategoryIPhone)
	require.NoError(t, err)
	assert.Equal(t, *p, got)

	require.NoError(t, catalog.Remove(ctx, p.ID))
	require.Eventually(t, func() bool { return len(mirror.All()) == 0 }, 2*time.Second, 10*time.Millisecond)

	raw, err := mr.Get(keyed.KeyStoreProducts)
	require.NoError(t, err)
	assert.Equal(t, "[]", raw)
}

func TestMirror_IgnoresUnknownMessages(t *testing.T) {
	mr, m := newMirror(t)
	publishMirror(t, mr, sampleProducts(), 1)

	m.OnUnknown(domain.UnknownMessage{MessageType: "cart_updated"})
	assert.Empty(t, m.All())

	m.OnProductsUpdated(domain.NewProductsUpdated(1, 6))
	m.OnProductsUpdated(domain.NewProductsUpdated(1, 6))
	assert.Len(t, m.All(), 5)
}
