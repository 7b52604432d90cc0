package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
)

type AdminHandler struct {
	catalog usecase.CatalogUC
	logger  logger.Logger
}

func NewAdminHandler(catalog usecase.CatalogUC, logger logger.Logger) *AdminHandler {
	return &AdminHandler{catalog: catalog, logger: logger}
}

// listProducts
//
//	@Summary		Список товаров админки
//	@Tags			admin
//	@Produce		json
//	@Param			q			query		string	false	"Подстрока в названии"
//	@Param			category	query		string	false	"Категория"
//	@Param			status		query		string	false	"in-stock или out-of-stock"
//	@Success		200			{array}		domain.Product
//	@Router			/admin/products [get]
func (a *AdminHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	WriteSuccess(w, http.StatusOK, a.catalog.Filter(usecase.AdminFilter{
		Query:    q.Get("q"),
		Category: domain.Category(q.Get("category")),
		Status:   domain.Status(q.Get("status")),
	}))
}

// createProduct
//
//	@Summary		Добавление товара
//	@Description	Добавляет товар в каталог и синхронизирует витрину
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			product	body		ProductRequest	true	"Товар"
//	@Success		201		{object}	domain.Product
//	@Failure		400		{object}	ErrorResponse	"Ошибка валидации"
//	@Router			/admin/products [post]
func (a *AdminHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		a.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	draft, err := req.toDraft()
	if err != nil {
		a.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	product, err := a.catalog.Add(r.Context(), draft)
	if err != nil {
		a.logger.Errorf(err, "create product failed")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, product)
}

// getProduct
//
//	@Summary	Товар по id
//	@Tags		admin
//	@Produce	json
//	@Param		id	path		int	true	"ID товара"
//	@Success	200	{object}	domain.Product
//	@Failure	404	{object}	ErrorResponse
//	@Router		/admin/products/{id} [get]
func (a *AdminHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	product, err := a.catalog.Product(id)
	if err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, product)
}

// updateProduct
//
//	@Summary	Редактирование товара
//	@Tags		admin
//	@Accept		json
//	@Produce	json
//	@Param		id		path		int					true	"ID товара"
//	@Param		patch	body		ProductPatchRequest	true	"Изменённые поля"
//	@Success	200		{object}	domain.Product
//	@Failure	400		{object}	ErrorResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/admin/products/{id} [patch]
func (a *AdminHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	var req ProductPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		a.logger.Warnf("%d %s: %s", http.StatusBadRequest, e.ErrStatusBadRequest.Error(), err.Error())
		WriteError(w, err)
		return
	}

	product, err := a.catalog.Edit(r.Context(), id, patch)
	if err != nil {
		if !errors.Is(err, e.ErrProductNotFound) {
			a.logger.Errorf(err, "edit product %d failed", id)
		}
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, product)
}

// deleteProduct
//
//	@Summary	Удаление товара
//	@Tags		admin
//	@Param		id	path	int	true	"ID товара"
//	@Success	204
//	@Router		/admin/products/{id} [delete]
func (a *AdminHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "id")
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := a.catalog.Remove(r.Context(), id); err != nil {
		a.logger.Errorf(err, "remove product %d failed", id)
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// syncProducts
//
//	@Summary		Синхронизация витрины
//	@Description	Повторно публикует каталог для всех вкладок витрины
//	@Tags			admin
//	@Produce		json
//	@Success		200	{object}	SyncResponse
//	@Router			/admin/sync [post]
func (a *AdminHandler) syncProducts(w http.ResponseWriter, r *http.Request) {
	if err := a.catalog.PublishSync(r.Context()); err != nil {
		a.logger.Errorf(err, "manual sync failed")
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, SyncResponse{Synced: true, Count: a.catalog.Count()})
}

// exportProducts
//
//	@Summary	Выгрузка каталога в JSON
//	@Tags		admin
//	@Produce	json
//	@Success	200	{file}		file
//	@Failure	404	{object}	ErrorResponse	"Каталог пуст"
//	@Router		/admin/export [get]
func (a *AdminHandler) exportProducts(w http.ResponseWriter, r *http.Request) {
	doc, err := a.catalog.Export(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	if doc.ObjectKey != "" {
		w.Header().Set("X-Export-Object", doc.ObjectKey)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}
