package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/jimlawless/whereami"
)

// CartUseCase — корзина покупателя с записью в хранилище при каждом изменении.
// Кэшированный count всегда равен сумме количеств.
type CartUseCase struct {
	mu     sync.Mutex
	store  KeyedStore
	logger logger.Logger
	items  []domain.CartItem
	count  int
}

func NewCartUC(store KeyedStore, logger logger.Logger) *CartUseCase {
	return &CartUseCase{
		store:  store,
		logger: logger,
		items:  []domain.CartItem{},
	}
}

// Load читает cart и cartCount. При расхождении count пересчитывается по строкам.
func (c *CartUseCase) Load(ctx context.Context) error {
	items, ok, err := keyed.Read[[]domain.CartItem](ctx, c.store, keyed.KeyCart)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if !ok {
		items = nil
	}

	valid := make([]domain.CartItem, 0, len(items))
	for _, it := range items {
		if !domain.ValidQuantity(it.Quantity) {
			c.logger.Warnf("cart item %d/%s with quantity %d dropped", it.ID, it.Category, it.Quantity)
			continue
		}
		valid = append(valid, it)
	}
	sum := sumQuantities(valid)

	stored, ok, err := c.store.ReadString(ctx, keyed.KeyCartCount)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if ok {
		if n, err := strconv.Atoi(strings.TrimSpace(stored)); err != nil || n != sum {
			c.logger.Warnf("stored cart count %q disagrees with items, using %d", stored, sum)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = valid
	c.count = sum
	return nil
}

// AddItem добавляет товар или увеличивает количество существующей строки.
func (c *CartUseCase) AddItem(ctx context.Context, ref domain.ProductRef, quantity int) error {
	const op = "CartUseCase.AddItem"

	if !domain.ValidQuantity(quantity) {
		return e.Wrap(op, e.ErrInvalidQuantity)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := slices.Clone(c.items)
	if idx := slices.IndexFunc(next, func(it domain.CartItem) bool { return it.Matches(ref) }); idx >= 0 {
		if !domain.ValidQuantity(next[idx].Quantity + quantity) {
			return e.Wrap(op, e.ErrInvalidQuantity)
		}
		next[idx].Quantity += quantity
	} else {
		next = append(next, domain.NewCartItem(ref, quantity))
	}

	if err := c.persistLocked(ctx, next, c.count+quantity); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// ChangeQuantity меняет количество строки на delta. Если результат не больше нуля, строка удаляется.
func (c *CartUseCase) ChangeQuantity(ctx context.Context, index, delta int) error {
	const op = "CartUseCase.ChangeQuantity"

	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.items) {
		return e.Wrap(op, e.ErrOutOfRange)
	}

	if delta > domain.MaxLineQuantity-c.items[index].Quantity {
		return e.Wrap(op, e.ErrInvalidQuantity)
	}

	next := slices.Clone(c.items)
	qty := next[index].Quantity + delta
	count := c.count + delta
	if qty <= 0 {
		count = c.count - next[index].Quantity
		next = slices.Delete(next, index, index+1)
	} else {
		next[index].Quantity = qty
	}

	if err := c.persistLocked(ctx, next, count); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// RemoveItem удаляет строку по индексу.
func (c *CartUseCase) RemoveItem(ctx context.Context, index int) error {
	const op = "CartUseCase.RemoveItem"

	c.mu.Lock()
	defer c.mu.Unlock()

	if index < 0 || index >= len(c.items) {
		return e.Wrap(op, e.ErrOutOfRange)
	}

	removed := c.items[index].Quantity
	next := slices.Delete(slices.Clone(c.items), index, index+1)

	if err := c.persistLocked(ctx, next, c.count-removed); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

func (c *CartUseCase) Clear(ctx context.Context) error {
	const op = "CartUseCase.Clear"

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.persistLocked(ctx, []domain.CartItem{}, 0); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// Checkout передаёт корзину на оформление: записывает cart и cartTotal
// и одной операцией стирает данные прошлого оформления.
func (c *CartUseCase) Checkout(ctx context.Context) (*CheckoutHandoff, error) {
	const op = "CartUseCase.Checkout"

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) == 0 {
		return nil, e.Wrap(op, e.ErrEmptyCart)
	}

	total := c.totalLocked()
	batch := c.store.NewBatch().
		Set(keyed.KeyCart, c.items).
		SetString(keyed.KeyCartTotal, strconv.FormatInt(total, 10)).
		Delete(keyed.KeyDeliveryData, keyed.KeyPaymentData, keyed.KeySelectedPayment, keyed.KeyCurrentOrder)

	if err := c.store.Apply(ctx, batch); err != nil {
		return nil, e.Wrap(op, err)
	}

	c.logger.Infof("checkout started, items: %d, total: %d", c.count, total)
	return NewCheckoutHandoff(slices.Clone(c.items), c.count, total), nil
}

// Total — сумма price*quantity по всем строкам.
func (c *CartUseCase) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.totalLocked()
}

func (c *CartUseCase) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.count
}

// Items возвращает копию строк корзины.
func (c *CartUseCase) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.items)
}

func (c *CartUseCase) Snapshot() CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return NewCartSnapshot(slices.Clone(c.items), c.count, c.totalLocked())
}

// persistLocked пишет cart и cartCount одним пакетом и только после этого принимает новое состояние.
func (c *CartUseCase) persistLocked(ctx context.Context, next []domain.CartItem, count int) error {
	data, err := json.Marshal(next)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	batch := c.store.NewBatch().
		SetString(keyed.KeyCart, string(data)).
		SetString(keyed.KeyCartCount, strconv.Itoa(count))
	if err := c.store.Apply(ctx, batch); err != nil {
		return err
	}

	c.items = next
	c.count = count
	return nil
}

func (c *CartUseCase) totalLocked() int64 {
	var total int64
	for _, it := range c.items {
		total += it.Subtotal()
	}
	return total
}

func sumQuantities(items []domain.CartItem) int {
	var n int
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
