package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	"github.com/DRSN-tech/storefront-sync/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/tr"
	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
)

// querier — общее подмножество pgxpool.Pool и pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// KVRepo реализует keyed.Backend поверх таблицы kv_entries в PostgreSQL.
type KVRepo struct {
	pool *pgxpool.Pool
}

func NewKVRepo(pool *pgxpool.Pool) *KVRepo {
	return &KVRepo{pool: pool}
}

// Get возвращает значение ключа; отсутствие ключа не ошибка.
func (k *KVRepo) Get(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT key, value, updated_at FROM kv_entries WHERE key = $1`

	var m converter.KVEntryModel
	err := k.db(ctx).QueryRow(ctx, query, key).Scan(&m.Key, &m.Value, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, e.Wrap(whereami.WhereAmI(), err)
	}

	return m.Value, true, nil
}

// Set перезаписывает значение ключа (upsert).
func (k *KVRepo) Set(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO kv_entries (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := k.db(ctx).Exec(ctx, query, key, value); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Delete удаляет ключи
func (k *KVRepo) Delete(ctx context.Context, keys ...string) error {
	query := `DELETE FROM kv_entries WHERE key = ANY($1)`

	if _, err := k.db(ctx).Exec(ctx, query, keys); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// Apply выполняет пакет в одной транзакции.
func (k *KVRepo) Apply(ctx context.Context, ops []keyed.Op) (err error) {
	const op = "KVRepo.Apply"

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, k.pool)
	if err != nil {
		return e.Wrap(op, err)
	}
	// При ошибке откатываем транзакцию
	defer func() {
		if err != nil && tx.IsActive() {
			_ = tx.Rollback(ctx)
		}
	}()

	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		return e.Wrap(op, e.ErrTransactionNotFound)
	}
	ctx = tr.WithTx(ctx, pgxTx)

	for _, o := range ops {
		switch o.Kind {
		case keyed.OpSet:
			err = k.Set(ctx, o.Key, o.Value)
		case keyed.OpDelete:
			err = k.Delete(ctx, o.Key)
		}
		if err != nil {
			return e.Wrap(op, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

// db возвращает транзакцию из контекста, если она есть, иначе пул.
func (k *KVRepo) db(ctx context.Context) querier {
	if tx, err := tr.TxFromCtx(ctx); err == nil {
		return tx
	}
	return k.pool
}
