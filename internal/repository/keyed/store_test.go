package keyed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	redisRepo "github.com/DRSN-tech/storefront-sync/internal/repository/redis"
	"github.com/DRSN-tech/storefront-sync/pkg/clients"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	r "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func setupStore(t *testing.T, namespace string) (*miniredis.Miniredis, *keyed.Store) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &clients.RedisClient{Client: r.NewClient(&r.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Client.Close() })

	return mr, keyed.NewStore(redisRepo.NewKVRepo(client), namespace, logger.NewNopLogger())
}

func TestStore_WriteOverwritesAndReads(t *testing.T) {
	_, store := setupStore(t, "")
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, keyed.KeyAdminProducts, []item{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}))
	require.NoError(t, store.Write(ctx, keyed.KeyAdminProducts, []item{{ID: 3, Name: "c"}}))

	got, ok, err := keyed.Read[[]item](ctx, store, keyed.KeyAdminProducts)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []item{{ID: 3, Name: "c"}}, got)
}

func TestStore_ReadAbsent(t *testing.T) {
	_, store := setupStore(t, "")

	got, ok, err := keyed.Read[[]item](context.Background(), store, keyed.KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_MalformedIsAbsent(t *testing.T) {
	mr, store := setupStore(t, "")
	require.NoError(t, mr.Set(keyed.KeyCart, `[{"id":`))

	got, ok, err := keyed.Read[[]item](context.Background(), store, keyed.KeyCart)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestStore_Namespace(t *testing.T) {
	mr, store := setupStore(t, "shop")
	require.NoError(t, store.WriteString(context.Background(), keyed.KeyCartCount, "2"))

	got, err := mr.Get("shop:cartCount")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestStore_UnencodableValueIsStorageFailure(t *testing.T) {
	mr, store := setupStore(t, "")

	err := store.Write(context.Background(), keyed.KeyCart, map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, e.ErrStorageFailure))
	assert.False(t, mr.Exists(keyed.KeyCart))
}

func TestStore_BackendDownIsStorageFailure(t *testing.T) {
	mr, store := setupStore(t, "")
	mr.Close()

	err := store.WriteString(context.Background(), keyed.KeyCartCount, "1")
	assert.ErrorIs(t, err, e.ErrStorageFailure)

	_, _, err = keyed.Read[[]item](context.Background(), store, keyed.KeyCart)
	assert.ErrorIs(t, err, e.ErrStorageFailure)
}

func TestStore_BatchAppliesAll(t *testing.T) {
	mr, store := setupStore(t, "")
	ctx := context.Background()
	require.NoError(t, mr.Set(keyed.KeyDeliveryData, "{}"))

	b := store.NewBatch().
		Set(keyed.KeyCart, []item{{ID: 1}}).
		SetString(keyed.KeyCartTotal, "100").
		Delete(keyed.KeyDeliveryData, keyed.KeyPaymentData)
	require.NoError(t, store.Apply(ctx, b))

	assert.True(t, mr.Exists(keyed.KeyCart))
	assert.True(t, mr.Exists(keyed.KeyCartTotal))
	assert.False(t, mr.Exists(keyed.KeyDeliveryData))
}

func TestStore_BatchEncodeErrorWritesNothing(t *testing.T) {
	mr, store := setupStore(t, "")

	b := store.NewBatch().
		SetString(keyed.KeyCartTotal, "100").
		Set(keyed.KeyCart, make(chan int))
	err := store.Apply(context.Background(), b)

	assert.ErrorIs(t, err, e.ErrStorageFailure)
	assert.False(t, mr.Exists(keyed.KeyCartTotal))
}
