package e

import "fmt"

var (
	// Ошибки каталога
	ErrProductNotFound = fmt.Errorf("product not found")
	ErrUnknownCategory = fmt.Errorf("unknown category")
	ErrNothingToExport = fmt.Errorf("no products to export")

	// Ошибки корзины
	ErrOutOfRange      = fmt.Errorf("cart index out of range")
	ErrInvalidQuantity = fmt.Errorf("quantity must be positive")
	ErrEmptyCart       = fmt.Errorf("cart is empty")

	// Ошибки хранилища
	ErrStorageFailure      = fmt.Errorf("storage failure")
	ErrMalformedStoredData = fmt.Errorf("malformed stored data")
	ErrUnknownStoreDriver  = fmt.Errorf("unknown store driver")
	ErrTransactionNotFound = fmt.Errorf("transaction not found")

	// Ошибки каналов уведомлений
	ErrBusClosed = fmt.Errorf("broadcast bus is closed")

	// Конфигурация
	ErrIncorrectEnvVariable = fmt.Errorf("incorrect environment variable")

	// 400 Bad Request
	ErrStatusBadRequest    = fmt.Errorf("bad request")
	ErrMissingFields       = fmt.Errorf("missing required fields")
	ErrInvalidPrice        = fmt.Errorf("invalid price")
	ErrPricePrecision      = fmt.Errorf("price must be a whole number of currency units")
	ErrTooManyImages       = fmt.Errorf("too many images")
	ErrInvalidStatus       = fmt.Errorf("invalid product status")
	ErrInvalidIndex        = fmt.Errorf("invalid cart index")
	ErrInvalidID           = fmt.Errorf("invalid product id")
	ErrInternalServerError = fmt.Errorf("internal server error")
)

// Wrap оборачивает ошибку
func Wrap(msg string, err error) error {
	return fmt.Errorf("%s: %w", msg, err)
}
