package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/DRSN-tech/storefront-sync/pkg/e"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
	"github.com/shopspring/decimal"
)

// Максимальная цена в целых единицах валюты
const maxPrice = 1_000_000_000

type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewErrorResponse(code int, message string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
	}
}

func ToHTTPResponse(err error) (int, string) {
	switch {
	case errors.Is(err, e.ErrStatusBadRequest):
		return http.StatusBadRequest, e.ErrStatusBadRequest.Error()
	case errors.Is(err, e.ErrMissingFields):
		return http.StatusBadRequest, e.ErrMissingFields.Error()
	case errors.Is(err, e.ErrInvalidPrice):
		return http.StatusBadRequest, e.ErrInvalidPrice.Error()
	case errors.Is(err, e.ErrPricePrecision):
		return http.StatusBadRequest, e.ErrPricePrecision.Error()
	case errors.Is(err, e.ErrTooManyImages):
		return http.StatusBadRequest, e.ErrTooManyImages.Error()
	case errors.Is(err, e.ErrInvalidStatus):
		return http.StatusBadRequest, e.ErrInvalidStatus.Error()
	case errors.Is(err, e.ErrInvalidIndex):
		return http.StatusBadRequest, e.ErrInvalidIndex.Error()
	case errors.Is(err, e.ErrInvalidID):
		return http.StatusBadRequest, e.ErrInvalidID.Error()
	case errors.Is(err, e.ErrUnknownCategory):
		return http.StatusBadRequest, e.ErrUnknownCategory.Error()
	case errors.Is(err, e.ErrInvalidQuantity):
		return http.StatusBadRequest, e.ErrInvalidQuantity.Error()
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, e.ErrProductNotFound.Error()
	case errors.Is(err, e.ErrOutOfRange):
		return http.StatusNotFound, e.ErrOutOfRange.Error()
	case errors.Is(err, e.ErrNothingToExport):
		return http.StatusNotFound, e.ErrNothingToExport.Error()
	case errors.Is(err, e.ErrEmptyCart):
		return http.StatusConflict, e.ErrEmptyCart.Error()
	case errors.Is(err, e.ErrStorageFailure):
		return http.StatusServiceUnavailable, e.ErrStorageFailure.Error()
	case errors.Is(err, e.ErrBusClosed):
		return http.StatusServiceUnavailable, e.ErrBusClosed.Error()
	default:
		return http.StatusInternalServerError, e.ErrInternalServerError.Error()
	}
}

func WriteError(w http.ResponseWriter, err error) {
	code, msg := ToHTTPResponse(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(NewErrorResponse(code, msg))
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// parsePrice переводит цену из запроса в целые единицы валюты.
// Дробные, отрицательные и слишком большие значения отклоняются.
func parsePrice(d decimal.Decimal) (int64, error) {
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(maxPrice)) {
		return 0, e.ErrInvalidPrice
	}
	if !d.IsInteger() {
		return 0, e.ErrPricePrecision
	}
	return d.IntPart(), nil
}

// parsePriceQuery разбирает цену из query-строки. Пустое значение означает «без ограничения».
func parsePriceQuery(s string) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return maxPrice, nil
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, e.Wrap(whereami.WhereAmI(), e.ErrInvalidPrice)
	}
	return parsePrice(d)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	const maxBodySize = 8 << 20

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("%w: %w", e.ErrStatusBadRequest, err))
	}
	return nil
}

func pathInt64(r *http.Request, name string) (int64, error) {
	v, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, e.Wrap(name, e.ErrInvalidID)
	}
	return v, nil
}

func pathIndex(r *http.Request) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		return 0, e.Wrap("index", e.ErrInvalidIndex)
	}
	return v, nil
}

// splitList принимает как повторяющиеся параметры, так и значения через запятую.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
