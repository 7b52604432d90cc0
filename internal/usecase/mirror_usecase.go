package usecase

import (
	"context"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/repository/keyed"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/jitter"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
)

const (
	refreshTimeout = 5 * time.Second
	// Похожие товары ищутся только для запросов длиннее этого числа символов
	similarMinQueryLen = 2
)

// MirrorUseCase — копия каталога на витрине, разложенная по категориям.
// Обновляется целиком из storeProducts по уведомлению или опросом.
type MirrorUseCase struct {
	mu       sync.RWMutex
	store    KeyedStore
	logger   logger.Logger
	buckets  map[domain.Category][]domain.Product
	observed int64
}

func NewMirrorUC(store KeyedStore, logger logger.Logger) *MirrorUseCase {
	return &MirrorUseCase{
		store:   store,
		logger:  logger,
		buckets: emptyBuckets(),
	}
}

// Refresh перечитывает storeProducts. Отсутствующий ключ означает «изменений нет».
func (m *MirrorUseCase) Refresh(ctx context.Context) error {
	const op = "MirrorUseCase.Refresh"

	marker, err := m.readMarker(ctx)
	if err != nil {
		return e.Wrap(op, err)
	}

	products, ok, err := keyed.Read[[]domain.Product](ctx, m.store, keyed.KeyStoreProducts)
	if err != nil {
		return e.Wrap(op, err)
	}
	if !ok {
		m.logger.Debugf("no published catalog yet, keeping current mirror")

		m.mu.Lock()
		m.observed = max(m.observed, marker)
		m.mu.Unlock()
		return nil
	}

	buckets := emptyBuckets()
	for _, p := range products {
		if !p.Category.Valid() {
			m.logger.Debugf("product %d with unknown category %q skipped", p.ID, p.Category)
			continue
		}
		buckets[p.Category] = append(buckets[p.Category], p)
	}

	m.mu.Lock()
	m.buckets = buckets
	m.observed = max(m.observed, marker)
	m.mu.Unlock()

	m.logger.Infof("storefront mirror refreshed, products: %d", len(products))
	return nil
}

// RefreshIfStale обновляет зеркало, только если метка productsLastUpdate новее последней увиденной.
func (m *MirrorUseCase) RefreshIfStale(ctx context.Context) (bool, error) {
	const op = "MirrorUseCase.RefreshIfStale"

	marker, err := m.readMarker(ctx)
	if err != nil {
		return false, e.Wrap(op, err)
	}

	m.mu.RLock()
	stale := marker > m.observed
	m.mu.RUnlock()
	if !stale {
		return false, nil
	}

	if err := m.Refresh(ctx); err != nil {
		return false, e.Wrap(op, err)
	}
	return true, nil
}

// OnProductsUpdated — уведомление от админки. Повторные уведомления безопасны.
func (m *MirrorUseCase) OnProductsUpdated(msg domain.ProductsUpdated) {
	const op = "MirrorUseCase.OnProductsUpdated"

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := m.Refresh(ctx); err != nil {
		m.logger.Errorf(e.Wrap(op, err), "refresh after products_updated %d failed", msg.Timestamp)
	}
}

// OnUnknown игнорирует сообщения, которые витрина не понимает.
func (m *MirrorUseCase) OnUnknown(msg domain.UnknownMessage) {
	m.logger.Debugf("unknown message type %q ignored", msg.MessageType)
}

// Listen подписывает зеркало на все переданные каналы уведомлений.
func (m *MirrorUseCase) Listen(ctx context.Context, subs ...Subscriber) error {
	const op = "MirrorUseCase.Listen"

	for _, sub := range subs {
		if err := sub.Subscribe(ctx, m); err != nil {
			return e.Wrap(op, err)
		}
	}
	return nil
}

// RunPolling проверяет метку обновления с интервалом interval (со случайным разбросом) до отмены ctx.
func (m *MirrorUseCase) RunPolling(ctx context.Context, interval time.Duration, factor float64) {
	const op = "MirrorUseCase.RunPolling"

	timer := time.NewTimer(jitter.Duration(interval, factor))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			refreshed, err := m.RefreshIfStale(ctx)
			if err != nil {
				m.logger.Warnf("polling failed: %v", e.Wrap(op, err))
			} else if refreshed {
				m.logger.Debugf("mirror refreshed by polling")
			}
			timer.Reset(jitter.Duration(interval, factor))
		}
	}
}

// LastObserved — последняя увиденная метка productsLastUpdate.
func (m *MirrorUseCase) LastObserved() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.observed
}

// ProductByID ищет товар в корзине категории.
func (m *MirrorUseCase) ProductByID(id int64, category domain.Category) (domain.Product, error) {
	const op = "MirrorUseCase.ProductByID"

	if !category.Valid() {
		return domain.Product{}, e.Wrap(op, e.ErrUnknownCategory)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.buckets[category] {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return domain.Product{}, e.Wrap(op, e.ErrProductNotFound)
}

// ByCategory возвращает товары категории. Неизвестная категория даёт пустой список.
func (m *MirrorUseCase) ByCategory(category domain.Category) []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return domain.CloneProducts(m.buckets[category])
}

// All — все товары в порядке категорий витрины.
func (m *MirrorUseCase) All() []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.allLocked()
}

// UniqueModels — модели категории без повторов в порядке первого появления.
func (m *MirrorUseCase) UniqueModels(category domain.Category) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range m.buckets[category] {
		if p.Model == "" {
			continue
		}
		if _, ok := seen[p.Model]; ok {
			continue
		}
		seen[p.Model] = struct{}{}
		out = append(out, p.Model)
	}
	return out
}

// Filtered — товары категории с ценой не выше maxPrice и моделью из models.
// Пустой models не ограничивает модель.
func (m *MirrorUseCase) Filtered(category domain.Category, maxPrice int64, models []string) []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Product, 0)
	for _, p := range m.buckets[category] {
		if p.Price > maxPrice {
			continue
		}
		if len(models) > 0 && !slices.Contains(models, p.Model) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

// Search ищет по всем категориям. Exact — подстрока в названии, модели или характеристиках.
// Остальные товары попадают в Similar, если хотя бы одно слово запроса встречается
// в названии, модели, характеристиках или описании.
func (m *MirrorUseCase) Search(query string) SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return NewSearchResult([]domain.Product{}, []domain.Product{})
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.allLocked()
	words := strings.Fields(q)
	looser := utf8.RuneCountInString(q) > similarMinQueryLen

	exact := make([]domain.Product, 0)
	similar := make([]domain.Product, 0)
	for _, p := range all {
		if containsAny(q, p.Name, p.Model, p.Specs) {
			exact = append(exact, p)
			continue
		}
		if !looser {
			continue
		}
		for _, w := range words {
			if containsAny(w, p.Name, p.Model, p.Specs, p.Description) {
				similar = append(similar, p)
				break
			}
		}
	}

	return NewSearchResult(exact, similar)
}

// Random — до count случайных товаров со всей витрины.
func (m *MirrorUseCase) Random(count int) []domain.Product {
	m.mu.RLock()
	all := m.allLocked()
	m.mu.RUnlock()

	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	if count < 0 {
		count = 0
	}
	return all[:min(count, len(all))]
}

// ByStatus — товары витрины с данным статусом наличия.
func (m *MirrorUseCase) ByStatus(status domain.Status) []domain.Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Product, 0)
	for _, p := range m.allLocked() {
		if p.Status == status {
			out = append(out, p)
		}
	}
	return out
}

// CategoriesWithProducts — непустые категории в порядке витрины.
func (m *MirrorUseCase) CategoriesWithProducts() []domain.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Category, 0, len(m.buckets))
	for _, c := range domain.Categories() {
		if len(m.buckets[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// Counts — количество товаров по категориям.
func (m *MirrorUseCase) Counts() map[domain.Category]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[domain.Category]int, len(m.buckets))
	for _, c := range domain.Categories() {
		out[c] = len(m.buckets[c])
	}
	return out
}

func (m *MirrorUseCase) allLocked() []domain.Product {
	out := make([]domain.Product, 0)
	for _, c := range domain.Categories() {
		out = append(out, domain.CloneProducts(m.buckets[c])...)
	}
	return out
}

// readMarker читает productsLastUpdate. Отсутствующая или нечисловая метка равна нулю.
func (m *MirrorUseCase) readMarker(ctx context.Context) (int64, error) {
	raw, ok, err := m.store.ReadString(ctx, keyed.KeyProductsUpdated)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	marker, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		m.logger.Warnf("malformed %s value %q ignored", keyed.KeyProductsUpdated, raw)
		return 0, nil
	}
	return marker, nil
}

func emptyBuckets() map[domain.Category][]domain.Product {
	out := make(map[domain.Category][]domain.Product, len(domain.Categories()))
	for _, c := range domain.Categories() {
		out[c] = []domain.Product{}
	}
	return out
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
