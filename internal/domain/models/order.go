package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order представляет заказ, созданный при оформлении корзины
type Order struct {
	ID        int64        `json:"id"`
	UserID    *int64       `json:"user_id,omitempty"` // nil для гостевого заказа
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Email     string       `json:"email"`
	CreatedAt time.Time    `json:"created_at"`
	Items     []*OrderItem `json:"items,omitempty"`
}

// OrderItem — одна позиция заказа. Цена копируется из строки корзины
// в момент оформления и больше не меняется.
type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"` // заполняется через JOIN с таблицей products
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}
