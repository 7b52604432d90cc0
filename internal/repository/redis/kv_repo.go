package redis

import (
	"context"
	"errors"

	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	"github.com/DRSN-tech/storefront-sync/pkg/clients"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/jimlawless/whereami"
	r "github.com/redis/go-redis/v9"
)

// KVRepo реализует keyed.Backend поверх Redis: одно значение — один строковый ключ без TTL.
type KVRepo struct {
	client *clients.RedisClient
}

func NewKVRepo(client *clients.RedisClient) *KVRepo {
	return &KVRepo{client: client}
}

// Get возвращает значение ключа; отсутствие ключа не ошибка.
func (k *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := k.client.Client.Get(ctx, key).Result()
	if errors.Is(err, r.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, e.Wrap(whereami.WhereAmI(), err)
	}

	return val, true, nil
}

// Set перезаписывает значение ключа.
func (k *KVRepo) Set(ctx context.Context, key, value string) error {
	if err := k.client.Client.Set(ctx, key, value, 0).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Delete удаляет ключи
func (k *KVRepo) Delete(ctx context.Context, keys ...string) error {
	if err := k.client.Client.Del(ctx, keys...).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Apply выполняет пакет в MULTI/EXEC.
func (k *KVRepo) Apply(ctx context.Context, ops []keyed.Op) error {
	_, err := k.client.Client.TxPipelined(ctx, func(pipe r.Pipeliner) error {
		for _, op := range ops {
			switch op.Kind {
			case keyed.OpSet:
				pipe.Set(ctx, op.Key, op.Value, 0)
			case keyed.OpDelete:
				pipe.Del(ctx, op.Key)
			}
		}
		return nil
	})
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
