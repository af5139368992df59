package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linemk/online-store/internal/cart"
	"github.com/linemk/online-store/internal/service"
	"github.com/linemk/online-store/internal/session"
	"github.com/linemk/online-store/internal/storage"
	"github.com/shopspring/decimal"
)

// CartAddRequest — тело POST /cart/add/{id}. Update=true заменяет количество
// в строке, update=false прибавляет к нему.
type CartAddRequest struct {
	Quantity int  `json:"quantity" validate:"required,gte=1"`
	Update   bool `json:"update"`
}

// CartResponse — текущее содержимое корзины.
type CartResponse struct {
	Items      []cart.Item     `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Length     int             `json:"length"`
}

func cartFromRequest(r *http.Request, engine *cart.Engine) (*cart.Cart, bool) {
	sessionID, ok := session.FromContext(r.Context())
	if !ok {
		return nil, false
	}
	return engine.Load(r.Context(), sessionID), true
}

func cartResponse(r *http.Request, c *cart.Cart) CartResponse {
	return CartResponse{
		Items:      c.Items(r.Context()),
		TotalPrice: c.TotalPrice(),
		Length:     c.Len(),
	}
}

// CartDetailHandler обрабатывает GET /cart.
func CartDetailHandler(log *slog.Logger, engine *cart.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartDetailHandler"
		logger := log.With(slog.String("op", op))

		c, ok := cartFromRequest(r, engine)
		if !ok {
			logger.Error("sessionID not found in context")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, cartResponse(r, c))
	}
}

// CartAddHandler обрабатывает GET/POST /cart/add/{id}.
// GET кладёт одну единицу товара, POST несёт количество и флаг update.
func CartAddHandler(log *slog.Logger, catalog service.CatalogService, engine *cart.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartAddHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		// добавление одной единицы, как при клике по кнопке на витрине
		quantity := 1
		update := false
		if r.Method == http.MethodPost {
			var req CartAddRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				logger.Error("invalid request: decoding error", slog.Any("error", err))
				http.Error(w, "invalid request", http.StatusBadRequest)
				return
			}
			if err := validate.Struct(req); err != nil {
				logger.Error("invalid request: validation error", slog.Any("error", err))
				writeValidationErrors(w, err)
				return
			}
			quantity = req.Quantity
			update = req.Update
		}

		product, err := catalog.GetProduct(r.Context(), productID)
		if err != nil {
			if errors.Is(err, storage.ErrProductNotFound) {
				http.Error(w, "product not found", http.StatusNotFound)
				return
			}
			logger.Error("failed to get product", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		c, ok := cartFromRequest(r, engine)
		if !ok {
			logger.Error("sessionID not found in context")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if err := c.Add(r.Context(), product, quantity, update); err != nil {
			if errors.Is(err, cart.ErrInvalidQuantity) {
				http.Error(w, "quantity must be at least 1", http.StatusBadRequest)
				return
			}
			logger.Error("failed to add to cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, cartResponse(r, c))
	}
}

// CartRemoveHandler обрабатывает GET/POST /cart/remove/{id}.
// Удаление отсутствующей строки — не ошибка.
func CartRemoveHandler(log *slog.Logger, engine *cart.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CartRemoveHandler"
		logger := log.With(slog.String("op", op))

		productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			logger.Error("invalid product id", slog.Any("error", err))
			http.Error(w, "invalid product id", http.StatusBadRequest)
			return
		}

		c, ok := cartFromRequest(r, engine)
		if !ok {
			logger.Error("sessionID not found in context")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		if err := c.Remove(r.Context(), productID); err != nil {
			logger.Error("failed to remove from cart", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, cartResponse(r, c))
	}
}
