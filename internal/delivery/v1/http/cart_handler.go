package http

import (
	"errors"
	"net/http"

	"github.com/DRSN-tech/storefront-sync/internal/domain"
	"github.com/DRSN-tech/storefront-sync/internal/usecase"
	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/DRSN-tech/storefront-sync/pkg/logger"
)

type CartHandler struct {
	cart       usecase.CartUC
	storefront usecase.StorefrontUC
	logger     logger.Logger
}

func NewCartHandler(cart usecase.CartUC, storefront usecase.StorefrontUC, logger logger.Logger) *CartHandler {
	return &CartHandler{cart: cart, storefront: storefront, logger: logger}
}

// getCart
//
//	@Summary	Содержимое корзины
//	@Tags		cart
//	@Produce	json
//	@Success	200	{object}	usecase.CartSnapshot
//	@Router		/cart [get]
func (c *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, http.StatusOK, c.cart.Snapshot())
}

// addItem
//
//	@Summary		Добавление товара в корзину
//	@Description	Товар ищется на витрине по паре (id, category)
//	@Tags			cart
//	@Accept			json
//	@Produce		json
//	@Param			item	body		AddCartItemRequest	true	"Товар"
//	@Success		200		{object}	usecase.CartSnapshot
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/cart/items [post]
func (c *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req AddCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	product, err := c.storefront.ProductByID(req.ID, domain.Category(req.Category))
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := c.cart.AddItem(r.Context(), domain.RefFromProduct(product), req.Quantity); err != nil {
		c.logger.Warnf("add to cart failed: %v", err)
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, c.cart.Snapshot())
}

// changeQuantity
//
//	@Summary	Изменение количества
//	@Tags		cart
//	@Accept		json
//	@Produce	json
//	@Param		index	path		int						true	"Индекс строки"
//	@Param		change	body		ChangeQuantityRequest	true	"Изменение"
//	@Success	200		{object}	usecase.CartSnapshot
//	@Failure	404		{object}	ErrorResponse
//	@Router		/cart/items/{index} [patch]
func (c *CartHandler) changeQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req ChangeQuantityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, err)
		return
	}

	if err := c.cart.ChangeQuantity(r.Context(), index, req.Delta); err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, c.cart.Snapshot())
}

// removeItem
//
//	@Summary	Удаление строки корзины
//	@Tags		cart
//	@Produce	json
//	@Param		index	path		int	true	"Индекс строки"
//	@Success	200		{object}	usecase.CartSnapshot
//	@Failure	404		{object}	ErrorResponse
//	@Router		/cart/items/{index} [delete]
func (c *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	index, err := pathIndex(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if err := c.cart.RemoveItem(r.Context(), index); err != nil {
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, c.cart.Snapshot())
}

// clear
//
//	@Summary	Очистка корзины
//	@Tags		cart
//	@Success	204
//	@Router		/cart [delete]
func (c *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	if err := c.cart.Clear(r.Context()); err != nil {
		c.logger.Errorf(err, "clear cart failed")
		WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// checkout
//
//	@Summary	Переход к оформлению заказа
//	@Tags		cart
//	@Produce	json
//	@Success	200	{object}	CheckoutResponse
//	@Failure	409	{object}	ErrorResponse	"Корзина пуста"
//	@Router		/cart/checkout [post]
func (c *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	handoff, err := c.cart.Checkout(r.Context())
	if err != nil {
		if !errors.Is(err, e.ErrEmptyCart) {
			c.logger.Errorf(err, "checkout failed")
		}
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, CheckoutResponse{Handoff: handoff})
}
