package models

// Category представляет категорию товаров
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"` // уникальный идентификатор категории в URL
}
