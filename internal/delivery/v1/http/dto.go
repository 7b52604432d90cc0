package http

import (
	"fmt"
	"strings"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/shopspring/decimal"
)

// ProductRequest — тело POST /admin/products. Цена принимается строкой или числом.
type ProductRequest struct {
	Name            string            `json:"name"`
	Model           string            `json:"model"`
	Category        string            `json:"category"`
	Price           *decimal.Decimal  `json:"price" swaggertype:"string"`
	Specs           string            `json:"specs"`
	Description     string            `json:"description"`
	Status          string            `json:"status"`
	Images          []string          `json:"images"`
	MainImage       string            `json:"mainImage"`
	Characteristics map[string]string `json:"characteristics"`
}

// ProductPatchRequest — тело PATCH /admin/products/{id}. Отсутствующие поля не меняются.
type ProductPatchRequest struct {
	Name            *string            `json:"name"`
	Model           *string            `json:"model"`
	Category        *string            `json:"category"`
	Price           *decimal.Decimal   `json:"price" swaggertype:"string"`
	Specs           *string            `json:"specs"`
	Description     *string            `json:"description"`
	Status          *string            `json:"status"`
	Images          *[]string          `json:"images"`
	MainImage       *string            `json:"mainImage"`
	Characteristics *map[string]string `json:"characteristics"`
}

type AddCartItemRequest struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Quantity int    `json:"quantity"`
}

type ChangeQuantityRequest struct {
	Delta int `json:"delta"`
}

type SyncResponse struct {
	Synced bool `json:"synced"`
	Count  int  `json:"count"`
}

type CheckoutResponse struct {
	Handoff *usecase.CheckoutHandoff `json:"handoff"`
}

// toDraft проверяет черновик товара. Каталог сам черновики не отклоняет.
func (req *ProductRequest) toDraft() (domain.ProductDraft, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.Category == "" || req.Price == nil {
		return domain.ProductDraft{}, e.Wrap(fmt.Sprintf("name: %q, category: %q", name, req.Category), e.ErrMissingFields)
	}

	category := domain.Category(req.Category)
	if !category.Valid() {
		return domain.ProductDraft{}, e.Wrap(req.Category, e.ErrUnknownCategory)
	}

	price, err := parsePrice(*req.Price)
	if err != nil {
		return domain.ProductDraft{}, err
	}

	status := domain.Status(req.Status)
	if status != "" && !status.Valid() {
		return domain.ProductDraft{}, e.Wrap(req.Status, e.ErrInvalidStatus)
	}

	if len(req.Images) > domain.MaxProductImages {
		return domain.ProductDraft{}, e.ErrTooManyImages
	}

	return domain.ProductDraft{
		Name:            name,
		Model:           strings.TrimSpace(req.Model),
		Category:        category,
		Price:           price,
		Specs:           strings.TrimSpace(req.Specs),
		Description:     strings.TrimSpace(req.Description),
		Status:          status,
		Images:          req.Images,
		MainImage:       req.MainImage,
		Characteristics: req.Characteristics,
	}, nil
}

func (req *ProductPatchRequest) toPatch() (domain.ProductPatch, error) {
	var patch domain.ProductPatch

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return patch, e.Wrap("name", e.ErrMissingFields)
		}
		patch.Name = &name
	}
	if req.Category != nil {
		category := domain.Category(*req.Category)
		if !category.Valid() {
			return patch, e.Wrap(*req.Category, e.ErrUnknownCategory)
		}
		patch.Category = &category
	}
	if req.Price != nil {
		price, err := parsePrice(*req.Price)
		if err != nil {
			return patch, err
		}
		patch.Price = &price
	}
	if req.Status != nil {
		status := domain.Status(*req.Status)
		if !status.Valid() {
			return patch, e.Wrap(*req.Status, e.ErrInvalidStatus)
		}
		patch.Status = &status
	}
	if req.Images != nil && len(*req.Images) > domain.MaxProductImages {
		return patch, e.ErrTooManyImages
	}

	patch.Model = req.Model
	patch.Specs = req.Specs
	patch.Description = req.Description
	patch.Images = req.Images
	patch.MainImage = req.MainImage
	patch.Characteristics = req.Characteristics

	return patch, nil
}
