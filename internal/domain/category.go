package domain

// Category — категория витрины. Набор категорий фиксирован.
type Category string

const (
	CategoryIPhone     Category = "iphone"
	CategoryIPad       Category = "ipad"
	CategoryMacBook    Category = "macbook"
	CategoryAppleWatch Category = "apple-watch"
)

// Categories возвращает все категории в порядке отображения на витрине.
func Categories() []Category {
	return []Category{CategoryIPhone, CategoryIPad, CategoryMacBook, CategoryAppleWatch}
}

// Valid сообщает, входит ли категория в фиксированный набор.
func (c Category) Valid() bool {
	switch c {
	case CategoryIPhone, CategoryIPad, CategoryMacBook, CategoryAppleWatch:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}
