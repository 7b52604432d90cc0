package domain

import (
	"slices"
	"time"
)

// Status — наличие товара
type Status string

const (
	StatusInStock    Status = "in-stock"
	StatusOutOfStock Status = "out-of-stock"
)

// MaxProductImages — максимальное количество фото у товара
const MaxProductImages = 5

// Valid сообщает, является ли статус допустимым.
func (s Status) Valid() bool {
	return s == StatusInStock || s == StatusOutOfStock
}

// Product описывает товар каталога в том виде, в котором он хранится под ключами adminProducts/storeProducts
type Product struct {
	ID              int64             `json:"id"`
	Name            string            `json:"name"`
	Model           string            `json:"model"`
	Category        Category          `json:"category"`
	Price           int64             `json:"price"` // Цена в минимальных единицах валюты
	Specs           string            `json:"specs"`
	Description     string            `json:"description"`
	Status          Status            `json:"status"`
	Images          []string          `json:"images"`
	MainImage       string            `json:"mainImage"`
	Image           string            `json:"image,omitempty"` // устаревшее поле с единственным фото
	Characteristics map[string]string `json:"characteristics,omitempty"`
	CreatedAt       string            `json:"createdAt"`
	LastUpdated     int64             `json:"lastUpdated"`
}

// ProductDraft — данные нового товара из админки
type ProductDraft struct {
	Name            string
	Model           string
	Category        Category
	Price           int64
	Specs           string
	Description     string
	Status          Status
	Images          []string
	MainImage       string
	Characteristics map[string]string
}

// ProductPatch — частичное обновление товара. nil означает «поле не передано, оставить как есть».
type ProductPatch struct {
	Name            *string
	Model           *string
	Category        *Category
	Price           *int64
	Specs           *string
	Description     *string
	Status          *Status
	Images          *[]string
	MainImage       *string
	Characteristics *map[string]string
}

// NewProduct собирает товар из черновика. Статус по умолчанию — в наличии.
func NewProduct(id int64, draft ProductDraft, now time.Time) *Product {
	status := draft.Status
	if status == "" {
		status = StatusInStock
	}

	p := &Product{
		ID:              id,
		Name:            draft.Name,
		Model:           draft.Model,
		Category:        draft.Category,
		Price:           draft.Price,
		Specs:           draft.Specs,
		Description:     draft.Description,
		Status:          status,
		Images:          cloneImages(draft.Images),
		MainImage:       draft.MainImage,
		Characteristics: cloneCharacteristics(draft.Characteristics),
		CreatedAt:       now.UTC().Format(time.RFC3339Nano),
		LastUpdated:     now.UnixMilli(),
	}
	p.NormalizeMainImage()

	return p
}

// Apply накладывает patch поверх копии товара и возвращает результат. Исходный товар не меняется.
func (p Product) Apply(patch ProductPatch, now time.Time) Product {
	out := p.Clone()

	if patch.Name != nil {
		out.Name = *patch.Name
	}
	if patch.Model != nil {
		out.Model = *patch.Model
	}
	if patch.Category != nil {
		out.Category = *patch.Category
	}
	if patch.Price != nil {
		out.Price = *patch.Price
	}
	if patch.Specs != nil {
		out.Specs = *patch.Specs
	}
	if patch.Description != nil {
		out.Description = *patch.Description
	}
	if patch.Status != nil {
		out.Status = *patch.Status
	}
	if patch.Images != nil {
		out.Images = cloneImages(*patch.Images)
		if len(out.Images) == 0 && patch.MainImage == nil {
			out.MainImage = ""
		}
	}
	if patch.MainImage != nil {
		out.MainImage = *patch.MainImage
	}
	if patch.Characteristics != nil {
		out.Characteristics = cloneCharacteristics(*patch.Characteristics)
	}

	out.LastUpdated = now.UnixMilli()
	out.NormalizeMainImage()

	return out
}

// NormalizeMainImage гарантирует, что главное фото — одно из Images.
// Если фото есть, а главное не выбрано или не найдено, главным становится первое.
func (p *Product) NormalizeMainImage() {
	if len(p.Images) == 0 {
		return
	}
	if p.MainImage == "" || !slices.Contains(p.Images, p.MainImage) {
		p.MainImage = p.Images[0]
	}
}

// DisplayImage возвращает фото для карточки товара и корзины
func (p Product) DisplayImage() string {
	if p.MainImage != "" {
		return p.MainImage
	}
	return p.Image
}

// Clone возвращает глубокую копию товара.
func (p Product) Clone() Product {
	out := p
	out.Images = cloneImages(p.Images)
	out.Characteristics = cloneCharacteristics(p.Characteristics)
	return out
}

// CloneProducts копирует срез товаров целиком.
func CloneProducts(products []Product) []Product {
	out := make([]Product, len(products))
	for i := range products {
		out[i] = products[i].Clone()
	}
	return out
}

func cloneImages(images []string) []string {
	if images == nil {
		return []string{}
	}
	return slices.Clone(images)
}

// Пустые характеристики не сохраняются.
func cloneCharacteristics(ch map[string]string) map[string]string {
	if len(ch) == 0 {
		return nil
	}
	out := make(map[string]string, len(ch))
	for k, v := range ch {
		out[k] = v
	}
	return out
}
