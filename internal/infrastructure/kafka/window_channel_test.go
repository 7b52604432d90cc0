package kafka

import (
	"context"
	"testing"

	"github.com/DRSN-tech/storefront-sync/internal/cfg"
	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopHandler struct{}

func (nopHandler) OnProductsUpdated(domain.ProductsUpdated) {}
func (nopHandler) OnUnknown(domain.UnknownMessage)          {}

func testKafkaCfg() *cfg.KafkaCfg {
	return &cfg.KafkaCfg{
		Brokers:           []string{"localhost:9092"},
		Topic:             "storefront-window",
		NetworkMode:       "tcp",
		Partitions:        1,
		ReplicationFactor: 1,
	}
}

func TestWindowChannel_PostWithoutTargetIsNoop(t *testing.T) {
	ch := NewWindowChannel(logger.NewNopLogger(), testKafkaCfg(), "admin", "")

	ch.PostMessage(context.Background(), domain.ProductsUpdated{Timestamp: 1})

	require.NoError(t, ch.Close())
}

func TestWindowChannel_SubscribeAfterClose(t *testing.T) {
	ch := NewWindowChannel(logger.NewNopLogger(), testKafkaCfg(), "store", "")
	require.NoError(t, ch.Close())
	require.NoError(t, ch.Close())

	err := ch.Subscribe(context.Background(), nopHandler{})
	assert.ErrorIs(t, err, e.ErrBusClosed)
}

func TestWindowChannel_ReaderPerPartitionWithoutGroup(t *testing.T) {
	kc := testKafkaCfg()
	kc.Partitions = 3

	ch := NewWindowChannel(logger.NewNopLogger(), kc, "store", "")
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, ch.Subscribe(ctx, nopHandler{}))

	ch.mu.Lock()
	require.Len(t, ch.readers, 3)
	for i, r := range ch.readers {
		assert.Empty(t, r.Config().GroupID)
		assert.Equal(t, i, r.Config().Partition)
	}
	ch.mu.Unlock()

	cancel()
	require.NoError(t, ch.Close())
}
