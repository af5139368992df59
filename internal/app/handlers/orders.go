package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/online-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/online-store/internal/service"
	"github.com/linemk/online-store/internal/storage"
)

// OrderListHandler обрабатывает GET /orders: история заказов текущего пользователя.
func OrderListHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderListHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orders, err := orderService.ListOrders(r.Context(), userID)
		if err != nil {
			logger.Error("failed to list orders", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, orders)
	}
}

// OrderDetailHandler обрабатывает GET /orders/{id}.
// Чужой заказ неотличим от несуществующего: в обоих случаях 404.
func OrderDetailHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.OrderDetailHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid order id", slog.Any("error", err))
			http.Error(w, "invalid order id", http.StatusBadRequest)
			return
		}

		order, err := orderService.GetOrder(r.Context(), orderID, userID)
		if err != nil {
			if errors.Is(err, storage.ErrOrderNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get order", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, order)
	}
}
