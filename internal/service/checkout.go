package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/online-store/internal/cart"
	"github.com/linemk/online-store/internal/domain/models"
	"github.com/linemk/online-store/internal/storage"
)

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrUnavailableLines = errors.New("cart contains unavailable items")
)

// ContactInfo — контактные поля формы оформления заказа.
type ContactInfo struct {
	FirstName string
	LastName  string
	Email     string
}

// CheckoutService превращает корзину в заказ.
type CheckoutService interface {
	Checkout(ctx context.Context, crt *cart.Cart, contact ContactInfo, userID *int64) (*models.Order, error)
}

type checkoutService struct {
	log         *slog.Logger
	db          *sql.DB
	productRepo storage.ProductStorage
	orderRepo   storage.OrderStorage
}

func NewCheckoutService(log *slog.Logger, db *sql.DB, productRepo storage.ProductStorage, orderRepo storage.OrderStorage) CheckoutService {
	return &checkoutService{
		log:         log,
		db:          db,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

// Checkout создаёт заказ и по одной позиции на каждую строку корзины —
// с ценой и количеством из строки, а не из каталога. Заказ и позиции пишутся
// в одной транзакции: при любой ошибке всё откатывается, корзина не трогается.
// Корзина очищается только после успешного коммита; если очистка не удалась,
// заказ уже существует — это логируется как громкая ошибка.
func (s *checkoutService) Checkout(ctx context.Context, crt *cart.Cart, contact ContactInfo, userID *int64) (*models.Order, error) {
	const op = "service.CheckoutService.Checkout"
	logger := s.log.With(slog.String("op", op))

	lines := crt.Lines()
	if len(lines) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyCart)
	}
	logger.Info("starting checkout transaction", slog.Int("lines", len(lines)))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logger.Error("failed to begin transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	order := &models.Order{
		UserID:    userID,
		FirstName: contact.FirstName,
		LastName:  contact.LastName,
		Email:     contact.Email,
	}
	orderID, err := s.orderRepo.CreateOrderTx(ctx, tx, order)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("transaction rollback failed", slog.Any("error", rbErr))
		}
		logger.Error("failed to create order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to create order: %w", op, err)
	}
	order.ID = orderID

	for _, line := range lines {
		// Товар проверяется внутри транзакции: исчезнувшая из каталога строка
		// не выбрасывается молча, а останавливает оформление целиком.
		product, err := s.productRepo.GetProductByIDTx(ctx, tx, line.ProductID)
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			if errors.Is(err, storage.ErrProductNotFound) {
				logger.Warn("cart line references missing product", slog.Int64("productID", line.ProductID))
				return nil, fmt.Errorf("%s: %w", op, ErrUnavailableLines)
			}
			logger.Error("failed to get product", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to get product: %w", op, err)
		}

		if err := s.orderRepo.CreateOrderItemTx(ctx, tx, orderID, line.ProductID, line.Price, line.Quantity); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			logger.Error("failed to create order item", slog.Any("error", err))
			return nil, fmt.Errorf("%s: failed to create order item: %w", op, err)
		}

		order.Items = append(order.Items, &models.OrderItem{
			OrderID:     orderID,
			ProductID:   line.ProductID,
			ProductName: product.Name,
			Price:       line.Price,
			Quantity:    line.Quantity,
		})
	}

	if err := tx.Commit(); err != nil {
		logger.Error("failed to commit transaction", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	// Очистка корзины идёт отдельной записью в сессионное хранилище и в транзакцию
	// заказа не входит. Неудача здесь означает уже оформленный заказ при полной корзине.
	if err := crt.Clear(ctx); err != nil {
		logger.Error("order committed but cart clear failed",
			slog.Int64("orderID", orderID), slog.Any("error", err))
	}

	logger.Info("checkout completed successfully", slog.Int64("orderID", orderID))
	return order, nil
}
