// Package keyed — хранилище «ключ → JSON» поверх строкового key/value бэкенда.
// Запись всегда полностью перезаписывает значение (last write wins),
// битые данные при чтении считаются отсутствующими.
package keyed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/jimlawless/whereami"
)

// Backend — строковое key/value хранилище (Redis, PostgreSQL).
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Apply(ctx context.Context, ops []Op) error
}

// OpKind — тип операции пакетной записи
type OpKind int

const (
	OpSet OpKind = iota
	OpDelete
)

// Op — одна операция пакетной записи
type Op struct {
	Kind  OpKind
	Key   string
	Value string
}

type Store struct {
	backend   Backend
	namespace string
	logger    logger.Logger
}

func NewStore(backend Backend, namespace string, logger logger.Logger) *Store {
	return &Store{
		backend:   backend,
		namespace: namespace,
		logger:    logger,
	}
}

// JSONReader — всё, что умеет отдать значение ключа на десериализацию.
type JSONReader interface {
	ReadJSON(ctx context.Context, key string, decode func([]byte) error) (bool, error)
}

// Read читает и десериализует значение по ключу.
// Отсутствующий ключ и битый JSON дают (zero, false, nil); ошибка возвращается только при сбое бэкенда.
func Read[T any](ctx context.Context, s JSONReader, key string) (T, bool, error) {
	var v T
	ok, err := s.ReadJSON(ctx, key, func(data []byte) error {
		var tmp T
		if err := json.Unmarshal(data, &tmp); err != nil {
			return err
		}
		v = tmp
		return nil
	})
	if err != nil || !ok {
		var zero T
		return zero, false, err
	}

	return v, true, nil
}

// ReadJSON передаёт сырое значение ключа в decode. Ошибка decode логируется
// как битые данные, и ключ считается отсутствующим.
func (s *Store) ReadJSON(ctx context.Context, key string, decode func([]byte) error) (bool, error) {
	const op = "Store.ReadJSON"

	raw, ok, err := s.ReadString(ctx, key)
	if err != nil || !ok {
		return false, err
	}

	if err := decode([]byte(raw)); err != nil {
		s.logger.Warnf("%v", e.Wrap(op+" "+key, fmt.Errorf("%w: %w", e.ErrMalformedStoredData, err)))
		return false, nil
	}

	return true, nil
}

// Write сериализует v и полностью перезаписывает значение по ключу.
// Сериализация выполняется до обращения к бэкенду, поэтому частичной записи не бывает.
func (s *Store) Write(ctx context.Context, key string, v any) error {
	const op = "Store.Write"

	data, err := json.Marshal(v)
	if err != nil {
		return e.Wrap(op, fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	return s.WriteString(ctx, key, string(data))
}

// ReadString читает сырое строковое значение.
func (s *Store) ReadString(ctx context.Context, key string) (string, bool, error) {
	const op = "Store.ReadString"

	raw, ok, err := s.backend.Get(ctx, s.key(key))
	if err != nil {
		return "", false, e.Wrap(op, fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	return raw, ok, nil
}

// WriteString записывает сырое строковое значение.
func (s *Store) WriteString(ctx context.Context, key, value string) error {
	const op = "Store.WriteString"

	if err := s.backend.Set(ctx, s.key(key), value); err != nil {
		return e.Wrap(op, fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	return nil
}

// Remove удаляет ключи. Отсутствующие ключи не считаются ошибкой.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	const op = "Store.Remove"

	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}

	if err := s.backend.Delete(ctx, full...); err != nil {
		return e.Wrap(op, fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	return nil
}

// NewBatch создаёт пакет операций, который применяется атомарно через Apply.
func (s *Store) NewBatch() *Batch {
	return &Batch{store: s}
}

// Apply применяет пакет целиком или не применяет ничего.
func (s *Store) Apply(ctx context.Context, b *Batch) error {
	const op = "Store.Apply"

	if b.err != nil {
		return e.Wrap(op, b.err)
	}
	if len(b.ops) == 0 {
		return nil
	}

	if err := s.backend.Apply(ctx, b.ops); err != nil {
		return e.Wrap(op, fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	return nil
}

func (s *Store) key(k string) string {
	if s.namespace == "" {
		return k
	}
	return s.namespace + ":" + k
}

// Batch накапливает операции записи. Ошибка сериализации запоминается и возвращается из Store.Apply.
type Batch struct {
	store *Store
	ops   []Op
	err   error
}

// Set добавляет запись JSON-значения.
func (b *Batch) Set(key string, v any) *Batch {
	if b.err != nil {
		return b
	}

	data, err := json.Marshal(v)
	if err != nil {
		b.err = e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
		return b
	}

	return b.SetString(key, string(data))
}

// SetString добавляет запись строкового значения.
func (b *Batch) SetString(key, value string) *Batch {
	b.ops = append(b.ops, Op{Kind: OpSet, Key: b.store.key(key), Value: value})
	return b
}

// Ops возвращает накопленные операции.
func (b *Batch) Ops() []Op {
	return b.ops
}

// Delete добавляет удаление ключей.
func (b *Batch) Delete(keys ...string) *Batch {
	for _, k := range keys {
		b.ops = append(b.ops, Op{Kind: OpDelete, Key: b.store.key(k)})
	}
	return b
}
