package domain

// MaxLineQuantity — предел количества в одной строке корзины.
const MaxLineQuantity = 999

// CartItem — строка корзины. Пара (ID, Category) однозначно определяет товар.
type CartItem struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Model    string   `json:"model"`
	Price    int64    `json:"price"`
	Image    string   `json:"image"`
	Category Category `json:"category"`
	Quantity int      `json:"quantity"`
}

// ProductRef — данные товара, которые попадают в корзину.
type ProductRef struct {
	ID       int64
	Category Category
	Name     string
	Model    string
	Price    int64
	Image    string
}

// RefFromProduct строит ссылку на товар для корзины.
func RefFromProduct(p Product) ProductRef {
	return ProductRef{
		ID:       p.ID,
		Category: p.Category,
		Name:     p.Name,
		Model:    p.Model,
		Price:    p.Price,
		Image:    p.DisplayImage(),
	}
}

// Matches сообщает, относится ли строка корзины к товару ref.
func (c CartItem) Matches(ref ProductRef) bool {
	return c.ID == ref.ID && c.Category == ref.Category
}

// Subtotal — стоимость строки.
func (c CartItem) Subtotal() int64 {
	return c.Price * int64(c.Quantity)
}

// ValidQuantity сообщает, допустимо ли количество для строки корзины.
func ValidQuantity(q int) bool {
	return q >= 1 && q <= MaxLineQuantity
}

// NewCartItem создаёт строку корзины из ссылки на товар.
func NewCartItem(ref ProductRef, quantity int) CartItem {
	return CartItem{
		ID:       ref.ID,
		Name:     ref.Name,
		Model:    ref.Model,
		Price:    ref.Price,
		Image:    ref.Image,
		Category: ref.Category,
		Quantity: quantity,
	}
}
