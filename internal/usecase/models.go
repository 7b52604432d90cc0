package usecase

import "github.com/DRSN-tech/storefront-sync/internal/domain"

// CATALOG

// ExportDocument — JSON-выгрузка каталога для скачивания.
type ExportDocument struct {
	Name      string // istore-products-YYYY-MM-DD.json
	Data      []byte // побайтово совпадает с содержимым ключа adminProducts
	ObjectKey string // ключ объекта в MinIO, пусто если выгрузка не сохранялась
}

// AdminFilter — фильтр списка товаров в админке. Пустые поля не фильтруют.
type AdminFilter struct {
	Query    string
	Category domain.Category
	Status   domain.Status
}

// STOREFRONT

// SearchResult — результат поиска: точные совпадения и похожие.
type SearchResult struct {
	Exact   []domain.Product `json:"exact"`
	Similar []domain.Product `json:"similar"`
}

// CART

// CartSnapshot — состояние корзины для отображения.
type CartSnapshot struct {
	Items []domain.CartItem `json:"items"`
	Count int               `json:"count"`
	Total int64             `json:"total"`
}

// CheckoutHandoff — данные, переданные на страницы оформления заказа.
type CheckoutHandoff struct {
	Items []domain.CartItem `json:"items"`
	Count int               `json:"count"`
	Total int64             `json:"total"`
}

// MAPPERS

func NewExportDocument(name string, data []byte) *ExportDocument {
	return &ExportDocument{
		Name: name,
		Data: data,
	}
}

func NewSearchResult(exact, similar []domain.Product) SearchResult {
	return SearchResult{
		Exact:   exact,
		Similar: similar,
	}
}

func NewCartSnapshot(items []domain.CartItem, count int, total int64) CartSnapshot {
	return CartSnapshot{
		Items: items,
		Count: count,
		Total: total,
	}
}

func NewCheckoutHandoff(items []domain.CartItem, count int, total int64) *CheckoutHandoff {
	return &CheckoutHandoff{
		Items: items,
		Count: count,
		Total: total,
	}
}
