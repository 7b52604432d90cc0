package keyed

// Ключи хранилища. Значения — JSON, кроме productsLastUpdate, cartCount и cartTotal (строки с числом).
const (
	KeyAdminProducts   = "adminProducts"
	KeyStoreProducts   = "storeProducts"
	KeyProductsUpdated = "productsLastUpdate"

	KeyCart            = "cart"
	KeyCartCount       = "cartCount"
	KeyCartTotal       = "cartTotal"
	KeyDeliveryData    = "deliveryData"
	KeyPaymentData     = "paymentData"
	KeySelectedPayment = "selectedPayment"
	KeyCurrentOrder    = "currentOrder"
)
