package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/online-store/internal/domain/models"
	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами.
// Запись заказа и его позиций идет только внутри транзакции оформления.
type OrderStorage interface {
	CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error)
	CreateOrderItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64, price decimal.Decimal, quantity int) error
	// GetOrdersByUserID возвращает заказы пользователя, новые первыми.
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
	// GetOrderByID возвращает заказ вместе с позициями; чужой заказ — ErrOrderNotFound.
	GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

func (r *orderRepository) CreateOrderTx(ctx context.Context, tx *sql.Tx, order *models.Order) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, first_name, last_name, email, created_at)
		 VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
		order.UserID, order.FirstName, order.LastName, order.Email,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create order: %w", err)
	}
	return id, nil
}

func (r *orderRepository) CreateOrderItemTx(ctx context.Context, tx *sql.Tx, orderID, productID int64, price decimal.Decimal, quantity int) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, price, quantity)
		 VALUES ($1, $2, $3, $4)`,
		orderID, productID, price, quantity)
	if err != nil {
		return fmt.Errorf("failed to create order item: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	query := `
		SELECT id, user_id, first_name, last_name, email, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order := &models.Order{}
		if err := rows.Scan(&order.ID, &order.UserID, &order.FirstName, &order.LastName, &order.Email, &order.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) GetOrderByID(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	order := &models.Order{}
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, first_name, last_name, email, created_at
		 FROM orders WHERE id = $1 AND user_id = $2`, orderID, userID)
	if err := row.Scan(&order.ID, &order.UserID, &order.FirstName, &order.LastName, &order.Email, &order.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	items, err := r.getOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// getOrderItems возвращает позиции заказа с JOIN, чтобы получить имя товара.
func (r *orderRepository) getOrderItems(ctx context.Context, orderID int64) ([]*models.OrderItem, error) {
	query := `
		SELECT i.id, i.order_id, i.product_id, p.name, i.price, i.quantity
		FROM order_items i
		JOIN products p ON i.product_id = p.id
		WHERE i.order_id = $1
		ORDER BY i.id`
	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*models.OrderItem
	for rows.Next() {
		item := &models.OrderItem{}
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Price, &item.Quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
