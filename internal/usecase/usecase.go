package usecase

import (
	"context"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
)

type CatalogUC interface {
	Add(ctx context.Context, draft domain.ProductDraft) (*domain.Product, error)
	Edit(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	Remove(ctx context.Context, id int64) error
	PublishSync(ctx context.Context) error
	Export(ctx context.Context) (*ExportDocument, error)
	Product(id int64) (domain.Product, error)
	Filter(f AdminFilter) []domain.Product
	Count() int
}

type StorefrontUC interface {
	Refresh(ctx context.Context) error
	ProductByID(id int64, category domain.Category) (domain.Product, error)
	All() []domain.Product
	ByCategory(category domain.Category) []domain.Product
	Filtered(category domain.Category, maxPrice int64, models []string) []domain.Product
	UniqueModels(category domain.Category) []string
	Search(query string) SearchResult
	Random(count int) []domain.Product
	CategoriesWithProducts() []domain.Category
}

type CartUC interface {
	AddItem(ctx context.Context, ref domain.ProductRef, quantity int) error
	ChangeQuantity(ctx context.Context, index, delta int) error
	RemoveItem(ctx context.Context, index int) error
	Clear(ctx context.Context) error
	Checkout(ctx context.Context) (*CheckoutHandoff, error)
	Snapshot() CartSnapshot
}
