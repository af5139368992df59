package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/linemk/online-store/internal/domain/models"
	"github.com/linemk/online-store/internal/storage"
)

// OrderService отдаёт историю заказов пользователя.
// Чужие заказы недоступны: принадлежность проверяется на уровне запроса.
type OrderService interface {
	ListOrders(ctx context.Context, userID int64) ([]*models.Order, error)
	GetOrder(ctx context.Context, orderID, userID int64) (*models.Order, error)
}

type orderService struct {
	log       *slog.Logger
	orderRepo storage.OrderStorage
}

func NewOrderService(log *slog.Logger, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:       log,
		orderRepo: orderRepo,
	}
}

func (s *orderService) ListOrders(ctx context.Context, userID int64) ([]*models.Order, error) {
	const op = "service.OrderService.ListOrders"

	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to list orders", slog.String("op", op), slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to list orders: %w", op, err)
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID, userID int64) (*models.Order, error) {
	const op = "service.OrderService.GetOrder"

	order, err := s.orderRepo.GetOrderByID(ctx, orderID, userID)
	if err != nil {
		s.log.Warn("failed to get order", slog.String("op", op),
			slog.Int64("orderID", orderID), slog.Int64("userID", userID), slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return order, nil
}
