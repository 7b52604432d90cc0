package usecase

import (
	"context"

	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
)

// KeyedStore — хранилище «ключ → JSON», общее для всех вкладок одного origin.
type KeyedStore interface {
	keyed.JSONReader
	Write(ctx context.Context, key string, v any) error
	ReadString(ctx context.Context, key string) (string, bool, error)
	WriteString(ctx context.Context, key, value string) error
	Remove(ctx context.Context, keys ...string) error
	NewBatch() *keyed.Batch
	Apply(ctx context.Context, b *keyed.Batch) error
}

// ExportRepository сохраняет выгрузки каталога во внешнее хранилище.
type ExportRepository interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}
