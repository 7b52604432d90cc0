package http

import (
	"net/http"
	"strconv"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
	"github.com/go-chi/chi/v5"
)

const defaultRandomCount = 4

type StoreHandler struct {
	storefront usecase.StorefrontUC
	logger     logger.Logger
}

func NewStoreHandler(storefront usecase.StorefrontUC, logger logger.Logger) *StoreHandler {
	return &StoreHandler{storefront: storefront, logger: logger}
}

// listProducts
//
//	@Summary		Товары витрины
//	@Description	Без категории возвращает все товары. С категорией применяет фильтры цены и моделей
//	@Tags			store
//	@Produce		json
//	@Param			category	query		string		false	"Категория"
//	@Param			maxPrice	query		string		false	"Максимальная цена включительно"
//	@Param			models		query		[]string	false	"Модели (через запятую)"
//	@Success		200			{array}		domain.Product
//	@Failure		400			{object}	ErrorResponse
//	@Router			/store/products [get]
func (s *StoreHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	category := domain.Category(q.Get("category"))
	if category == "" {
		WriteSuccess(w, http.StatusOK, s.storefront.All())
		return
	}
	if !category.Valid() {
		WriteError(w, e.Wrap(string(category), e.ErrUnknownCategory))
		return
	}

	maxPrice, err := parsePriceQuery(q.Get("maxPrice"))
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, s.storefront.Filtered(category, maxPrice, splitList(q["models"])))
}

// getProduct
//
//	@Summary	Карточка товара
//	@Tags		store
//	@Produce	json
//	@Param		category	path		string	true	"Категория"
//	@Param		id			path		int		true	"ID товара"
//	@Success	200			{object}	domain.Product
//	@Failure	404			{object}	ErrorResponse
//	@Router		/store/products/{category}/{id} [get]
func (s *StoreHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := s.storefront.ProductByID(id, domain.Category(chi.URLParam(r, "category")))
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, product)
}

// search
//
//	@Summary	Поиск по витрине
//	@Tags		store
//	@Produce	json
//	@Param		q	query		string	true	"Запрос"
//	@Success	200	{object}	usecase.SearchResult
//	@Router		/store/search [get]
func (s *StoreHandler) search(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.storefront.Search(r.URL.Query().Get("q")))
}

// categories
//
//	@Summary	Непустые категории
//	@Tags		store
//	@Produce	json
//	@Success	200	{array}	string
//	@Router		/store/categories [get]
func (s *StoreHandler) categories(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, s.storefront.CategoriesWithProducts())
}

// models
//
//	@Summary	Модели категории
//	@Tags		store
//	@Produce	json
//	@Param		category	query		string	true	"Категория"
//	@Success	200			{array}		string
//	@Failure	400			{object}	ErrorResponse
//	@Router		/store/models [get]
func (s *StoreHandler) models(w http.ResponseWriter, r *http.Request) {
	category := domain.Category(r.URL.Query().Get("category"))
	if !category.Valid() {
		WriteError(w, e.Wrap(string(category), e.ErrUnknownCategory))
		return
	}

	WriteSuccess(w, http.StatusOK, s.storefront.UniqueModels(category))
}

// random
//
//	@Summary	Случайные товары для рекомендаций
//	@Tags		store
//	@Produce	json
//	@Param		count	query		int	false	"Количество"	default(4)
//	@Success	200		{array}		domain.Product
//	@Router		/store/random [get]
func (s *StoreHandler) random(w http.ResponseWriter, r *http.Request) {
	count := defaultRandomCount
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			WriteError(w, e.Wrap("count", e.ErrStatusBadRequest))
			return
		}
		count = n
	}

	WriteSuccess(w, http.StatusOK, s.storefront.Random(count))
}

// refresh
//
//	@Summary	Принудительное обновление витрины
//	@Tags		store
//	@Success	204
//	@Router		/store/refresh [post]
func (s *StoreHandler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.storefront.Refresh(r.Context()); err != nil {
		s.logger.Errorf(err, "storefront refresh failed")
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
