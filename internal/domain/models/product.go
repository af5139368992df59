package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product представляет товар каталога
type Product struct {
	ID          int64           `json:"id"`
	CategoryID  int64           `json:"category_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Brand       string          `json:"brand"`
	Price       decimal.Decimal `json:"price"` // текущая цена в каталоге
	CreatedAt   time.Time       `json:"created_at"`
}
