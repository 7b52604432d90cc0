package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
)

const exportNameLayout = "istore-products-%s.json"

// CatalogUseCase — каталог админки. Владеет каноническим списком товаров и зеркалит его для витрины.
type CatalogUseCase struct {
	mu       sync.Mutex
	store    KeyedStore
	bus      Broadcaster
	opener   OpenerNotifier
	exports  ExportRepository
	logger   logger.Logger
	now      func() time.Time
	products []domain.Product
	lastID   int64
	marker   int64
}

// NewCatalogUC создаёт каталог. opener и exports могут быть nil.
func NewCatalogUC(
	store KeyedStore,
	bus Broadcaster,
	opener OpenerNotifier,
	exports ExportRepository,
	logger logger.Logger,
) *CatalogUseCase {
	return &CatalogUseCase{
		store:    store,
		bus:      bus,
		opener:   opener,
		exports:  exports,
		logger:   logger,
		now:      time.Now,
		products: []domain.Product{},
	}
}

// WithClock подменяет источник времени.
func (c *CatalogUseCase) WithClock(now func() time.Time) *CatalogUseCase {
	c.now = now
	return c
}

// Load читает канонический список. Отсутствующий или битый ключ даёт пустой каталог.
func (c *CatalogUseCase) Load(ctx context.Context) error {
	const op = "CatalogUseCase.Load"

	products, ok, err := keyed.Read[[]domain.Product](ctx, c.store, keyed.KeyAdminProducts)
	if err != nil {
		return e.Wrap(op, err)
	}
	if !ok || products == nil {
		products = []domain.Product{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.products = products
	for _, p := range products {
		c.lastID = max(c.lastID, p.ID)
	}

	c.logger.Infof("catalog loaded, products: %d", len(products))
	return nil
}

// AutoSyncOnLoad публикует каталог, если он не пуст, а зеркало витрины отсутствует или пусто.
func (c *CatalogUseCase) AutoSyncOnLoad(ctx context.Context) (bool, error) {
	const op = "CatalogUseCase.AutoSyncOnLoad"

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.products) == 0 {
		return false, nil
	}

	mirror, ok, err := keyed.Read[[]domain.Product](ctx, c.store, keyed.KeyStoreProducts)
	if err != nil {
		return false, e.Wrap(op, err)
	}
	if ok && len(mirror) > 0 {
		return false, nil
	}

	if err := c.publishLocked(ctx); err != nil {
		return false, e.Wrap(op, err)
	}

	c.logger.Infof("storefront mirror was empty, catalog published")
	return true, nil
}

// Add добавляет товар и синхронизирует витрину. Черновик уже проверен вызывающей стороной.
func (c *CatalogUseCase) Add(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error) {
	const op = "CatalogUseCase.Add"

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	p := domain.NewProduct(c.nextID(now), draft, now)

	next := append(domain.CloneProducts(c.products), *p)
	if err := c.commitLocked(ctx, next); err != nil {
		return nil, e.Wrap(op, err)
	}

	c.logger.Infof("product added, id: %d, category: %s", p.ID, p.Category)

	out := p.Clone()
	return &out, nil
}

// Edit применяет patch к товару с данным id.
func (c *CatalogUseCase) Edit(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	const op = "CatalogUseCase.Edit"

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return nil, e.Wrap(op, e.ErrProductNotFound)
	}

	updated := c.products[idx].Apply(patch, c.now())

	next := domain.CloneProducts(c.products)
	next[idx] = updated
	if err := c.commitLocked(ctx, next); err != nil {
		return nil, e.Wrap(op, err)
	}

	c.logger.Infof("product edited, id: %d", id)

	out := updated.Clone()
	return &out, nil
}

// Remove удаляет товар. Отсутствующий id не считается ошибкой.
func (c *CatalogUseCase) Remove(ctx context.Context, id int64) error {
	const op = "CatalogUseCase.Remove"

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		c.logger.Debugf("remove of unknown product ignored, id: %d", id)
		return nil
	}

	next := make([]domain.Product, 0, len(c.products)-1)
	next = append(next, domain.CloneProducts(c.products[:idx])...)
	next = append(next, domain.CloneProducts(c.products[idx+1:])...)
	if err := c.commitLocked(ctx, next); err != nil {
		return e.Wrap(op, err)
	}

	c.logger.Infof("product removed, id: %d", id)
	return nil
}

// PublishSync заново зеркалит каталог и оповещает витрины. Ошибка публикации возвращается.
func (c *CatalogUseCase) PublishSync(ctx context.Context) error {
	const op = "CatalogUseCase.PublishSync"

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.publishLocked(ctx); err != nil {
		return e.Wrap(op, err)
	}
	return nil
}

// Export формирует JSON-выгрузку каталога и, если настроено, сохраняет её в объектное хранилище.
func (c *CatalogUseCase) Export(ctx context.Context) (*ExportDocument, error) {
	const op = "CatalogUseCase.Export"

	c.mu.Lock()
	if len(c.products) == 0 {
		c.mu.Unlock()
		return nil, e.Wrap(op, e.ErrNothingToExport)
	}
	data, err := json.Marshal(c.products)
	c.mu.Unlock()
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	doc := NewExportDocument(fmt.Sprintf(exportNameLayout, c.now().Format(time.DateOnly)), data)

	if c.exports != nil {
		key, err := c.exports.Save(ctx, doc.Name, doc.Data)
		if err != nil {
			c.logger.Warnf("Failed to store export %s: %v", doc.Name, e.Wrap(op, err))
		} else {
			doc.ObjectKey = key
		}
	}

	return doc, nil
}

// Products возвращает копию канонического списка.
func (c *CatalogUseCase) Products() []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	return domain.CloneProducts(c.products)
}

func (c *CatalogUseCase) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.products)
}

// Product возвращает товар по id.
func (c *CatalogUseCase) Product(id int64) (domain.Product, error) {
	const op = "CatalogUseCase.Product"

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.indexOf(id)
	if idx < 0 {
		return domain.Product{}, e.Wrap(op, e.ErrProductNotFound)
	}
	return c.products[idx].Clone(), nil
}

// Filter — список админки: подстрока в названии без учёта регистра, категория и статус.
func (c *CatalogUseCase) Filter(f AdminFilter) []domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]domain.Product, 0, len(c.products))
	for _, p := range c.products {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

// commitLocked записывает новый канонический список, принимает его и синхронизирует витрину.
// Если запись не удалась, состояние в памяти не меняется.
func (c *CatalogUseCase) commitLocked(ctx context.Context, next []domain.Product) error {
	data, err := json.Marshal(next)
	if err != nil {
		return e.Wrap("CatalogUseCase.commitLocked", fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	if err := c.store.WriteString(ctx, keyed.KeyAdminProducts, string(data)); err != nil {
		return err
	}
	c.products = next
	for _, p := range next {
		c.lastID = max(c.lastID, p.ID)
	}

	if err := c.mirrorLocked(ctx, data); err != nil {
		return err
	}

	if err := c.notifyLocked(ctx); err != nil {
		c.logger.Errorf(err, "catalog saved but broadcast failed")
		return err
	}
	return nil
}

// publishLocked — зеркало, метка и уведомление для текущего списка.
func (c *CatalogUseCase) publishLocked(ctx context.Context) error {
	data, err := json.Marshal(c.products)
	if err != nil {
		return e.Wrap("CatalogUseCase.publishLocked", fmt.Errorf("%w: %w", e.ErrStorageFailure, err))
	}

	if err := c.mirrorLocked(ctx, data); err != nil {
		return err
	}
	return c.notifyLocked(ctx)
}

// mirrorLocked пишет storeProducts теми же байтами, что и adminProducts, затем метку обновления.
func (c *CatalogUseCase) mirrorLocked(ctx context.Context, data []byte) error {
	if err := c.store.WriteString(ctx, keyed.KeyStoreProducts, string(data)); err != nil {
		return err
	}

	marker := max(c.now().UnixMilli(), c.marker+1)
	if err := c.store.WriteString(ctx, keyed.KeyProductsUpdated, strconv.FormatInt(marker, 10)); err != nil {
		return err
	}
	c.marker = marker

	return nil
}

// notifyLocked оповещает другие вкладки и, если есть, открывшее окно.
func (c *CatalogUseCase) notifyLocked(ctx context.Context) error {
	count := len(c.products)
	if err := c.bus.Publish(ctx, domain.NewProductsUpdated(c.marker, count)); err != nil {
		return err
	}

	if c.opener != nil {
		c.opener.PostMessage(ctx, domain.ProductsUpdated{Timestamp: c.marker})
	}

	c.logger.Debugf("products_updated published, count: %d", count)
	return nil
}

// nextID — идентификатор на основе времени, строго больше всех выданных ранее.
func (c *CatalogUseCase) nextID(now time.Time) int64 {
	return max(now.UnixMilli(), c.lastID+1)
}

func (c *CatalogUseCase) indexOf(id int64) int {
	for i, p := range c.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}
