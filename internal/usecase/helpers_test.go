package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	redisRepo "github.com/DRSN-tech/storefront-sync/internal/repository/redis"
	"github.com/DRSN-tech/storefront-sync/pkg/clients"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/alicebob/miniredis/v2"
	r "github.com/redis/go-redis/v9"
)

var fixedNow = time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func setupRedis(t *testing.T) (*miniredis.Miniredis, *clients.RedisClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := &clients.RedisClient{Client: r.NewClient(&r.Options{Addr: mr.Addr()})}
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func setupStore(t *testing.T) (*miniredis.Miniredis, *keyed.Store) {
	t.Helper()

	mr, client := setupRedis(t)
	return mr, keyed.NewStore(redisRepo.NewKVRepo(client), "", logger.NewNopLogger())
}

// recordingBus запоминает опубликованные сообщения.
type recordingBus struct {
	mu   sync.Mutex
	msgs []domain.Message
	err  error
}

func (b *recordingBus) Publish(_ context.Context, msg domain.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingBus) published() []domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

type recordingOpener struct {
	mu   sync.Mutex
	msgs []domain.Message
}

func (o *recordingOpener) PostMessage(_ context.Context, msg domain.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, msg)
}

type memExports struct {
	saved map[string][]byte
	err   error
}

func (m *memExports) Save(_ context.Context, name string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = make(map[string][]byte)
	}
	m.saved[name] = data
	return "exports/" + name, nil
}

// failingStore отказывает в записи одного ключа.
type failingStore struct {
	*keyed.Store
	failKey string
}

func (f *failingStore) WriteString(ctx context.Context, key, value string) error {
	if key == f.failKey {
		return e.Wrap("failingStore.WriteString", e.ErrStorageFailure)
	}
	return f.Store.WriteString(ctx, key, value)
}

func (f *failingStore) Apply(ctx context.Context, b *keyed.Batch) error {
	for _, op := range b.Ops() {
		if op.Key == f.failKey {
			return e.Wrap("failingStore.Apply", e.ErrStorageFailure)
		}
	}
	return f.Store.Apply(ctx, b)
}

var errBusDown = errors.New("bus down")

func iphoneDraft() domain.ProductDraft {
	return domain.ProductDraft{
		Name:     "iPhone 15",
		Model:    "15",
		Category: domain.CategoryIPhone,
		Price:    40000,
		Specs:    "128GB",
		Images:   []string{"data:image/png;base64,AAA"},
	}
}
