package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/pkg/clients"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	r "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu      sync.Mutex
	updated []domain.ProductsUpdated
	unknown []domain.UnknownMessage
}

func (c *collector) OnProductsUpdated(msg domain.ProductsUpdated) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updated = append(c.updated, msg)
}

func (c *collector) OnUnknown(msg domain.UnknownMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unknown = append(c.unknown, msg)
}

func (c *collector) counts() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.updated), len(c.unknown)
}

func setupClient(t *testing.T) (*miniredis.Miniredis, *clients.RedisClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &clients.RedisClient{Client: r.NewClient(&r.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func TestBus_DeliversToOtherContextsOnly(t *testing.T) {
	_, client := setupClient(t)
	ctx := context.Background()

	admin := NewBus(client, "products_updates", logger.NewNopLogger())
	store := NewBus(client, "products_updates", logger.NewNopLogger())
	t.Cleanup(func() { _ = admin.Close(); _ = store.Close() })
	require.NotEqual(t, admin.ContextID(), store.ContextID())

	adminSeen := &collector{}
	storeSeen := &collector{}
	require.NoError(t, admin.Subscribe(ctx, adminSeen))
	require.NoError(t, store.Subscribe(ctx, storeSeen))

	require.NoError(t, admin.Publish(ctx, domain.NewProductsUpdated(100, 1)))

	assert.Eventually(t, func() bool {
		n, _ := storeSeen.counts()
		return n == 1
	}, time.Second, 10*time.Millisecond)

	// отправитель своё сообщение не получает
	time.Sleep(50 * time.Millisecond)
	n, _ := adminSeen.counts()
	assert.Equal(t, 0, n)

	storeSeen.mu.Lock()
	defer storeSeen.mu.Unlock()
	require.NotNil(t, storeSeen.updated[0].Count)
	assert.Equal(t, 1, *storeSeen.updated[0].Count)
	assert.Equal(t, int64(100), storeSeen.updated[0].Timestamp)
}

func TestBus_UnknownAndMalformedMessages(t *testing.T) {
	mr, client := setupClient(t)
	ctx := context.Background()

	store := NewBus(client, "products_updates", logger.NewNopLogger())
	t.Cleanup(func() { _ = store.Close() })

	seen := &collector{}
	require.NoError(t, store.Subscribe(ctx, seen))

	mr.Publish("products_updates", `not json`)
	mr.Publish("products_updates", `{"sender":"other","payload":{"type":"cart_updated"}}`)
	mr.Publish("products_updates", `{"sender":"other","payload":{"type":"products_updated","timestamp":7}}`)

	assert.Eventually(t, func() bool {
		updated, unknown := seen.counts()
		return updated == 1 && unknown == 1
	}, time.Second, 10*time.Millisecond)
}

func TestBus_NoReplayForLateSubscribers(t *testing.T) {
	_, client := setupClient(t)
	ctx := context.Background()

	admin := NewBus(client, "products_updates", logger.NewNopLogger())
	late := NewBus(client, "products_updates", logger.NewNopLogger())
	t.Cleanup(func() { _ = admin.Close(); _ = late.Close() })

	require.NoError(t, admin.Publish(ctx, domain.NewProductsUpdated(1, 0)))

	seen := &collector{}
	require.NoError(t, late.Subscribe(ctx, seen))

	time.Sleep(50 * time.Millisecond)
	n, _ := seen.counts()
	assert.Equal(t, 0, n)
}

func TestBus_Closed(t *testing.T) {
	_, client := setupClient(t)

	bus := NewBus(client, "products_updates", logger.NewNopLogger())
	require.NoError(t, bus.Subscribe(context.Background(), &collector{}))
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), domain.NewProductsUpdated(1, 0)), e.ErrBusClosed)
	assert.ErrorIs(t, bus.Subscribe(context.Background(), &collector{}), e.ErrBusClosed)
}

func TestBus_SubscribeRacingClose(t *testing.T) {
	_, client := setupClient(t)

	for range 20 {
		bus := NewBus(client, "products_updates", logger.NewNopLogger())

		var wg sync.WaitGroup
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = bus.Subscribe(context.Background(), &collector{})
			}()
		}

		require.NoError(t, bus.Close())
		wg.Wait()

		require.NoError(t, bus.Close())
		assert.ErrorIs(t, bus.Subscribe(context.Background(), &collector{}), e.ErrBusClosed)
	}
}
