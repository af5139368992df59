package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/linemk/online-store/internal/domain/models"
	"github.com/shopspring/decimal"
)

var ErrProductNotFound = errors.New("product not found")

// ProductFilter — набор независимых фильтров каталога.
// Пустое поле означает отсутствие фильтра, все условия складываются по AND.
type ProductFilter struct {
	CategorySlug string
	Query        string // подстрока в имени или описании, без учета регистра
	MinPrice     *decimal.Decimal
	MaxPrice     *decimal.Decimal
	Brand        string // подстрока в бренде, без учета регистра
}

// ProductStorage описывает методы для работы с таблицей товаров.
type ProductStorage interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error)
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	// GetProductByIDTx получает товар внутри транзакции оформления заказа.
	GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error)
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *productRepository {
	return &productRepository{db: db}
}

const productColumns = "p.id, p.category_id, p.name, p.slug, p.description, p.brand, p.price, p.created_at"

// ListProducts собирает запрос из активных фильтров
func (r *productRepository) ListProducts(ctx context.Context, filter ProductFilter) ([]*models.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products p JOIN categories c ON p.category_id = c.id", productColumns)

	var conds []string
	var args []interface{}

	if filter.CategorySlug != "" {
		args = append(args, filter.CategorySlug)
		conds = append(conds, fmt.Sprintf("c.slug = $%d", len(args)))
	}
	if filter.Query != "" {
		args = append(args, "%"+filter.Query+"%")
		conds = append(conds, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		conds = append(conds, fmt.Sprintf("p.price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		conds = append(conds, fmt.Sprintf("p.price <= $%d", len(args)))
	}
	if filter.Brand != "" {
		args = append(args, "%"+filter.Brand+"%")
		conds = append(conds, fmt.Sprintf("p.brand ILIKE $%d", len(args)))
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY p.id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		product := &models.Product{}
		if err := rows.Scan(&product.ID, &product.CategoryID, &product.Name, &product.Slug,
			&product.Description, &product.Brand, &product.Price, &product.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	row := r.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM products p WHERE p.id = $1", productColumns), id)
	return scanProduct(row)
}

func (r *productRepository) GetProductByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Product, error) {
	row := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM products p WHERE p.id = $1", productColumns), id)
	return scanProduct(row)
}

func scanProduct(row *sql.Row) (*models.Product, error) {
	product := &models.Product{}
	if err := row.Scan(&product.ID, &product.CategoryID, &product.Name, &product.Slug,
		&product.Description, &product.Brand, &product.Price, &product.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}
