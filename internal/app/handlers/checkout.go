package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/online-store/internal/cart"
	"github.com/linemk/online-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/online-store/internal/service"
)

// CheckoutRequest — контактные поля формы оформления заказа.
type CheckoutRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// CheckoutFormResponse — данные для формы: корзина и контактные поля,
// предзаполненные для авторизованного пользователя.
type CheckoutFormResponse struct {
	Cart    CartResponse         `json:"cart"`
	Contact *service.ProfileInfo `json:"contact,omitempty"`
}

// CheckoutFormHandler обрабатывает GET /checkout.
func CheckoutFormHandler(log *slog.Logger, engine *cart.Engine, profileService service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutFormHandler"
		logger := log.With(slog.String("op", op))

		c, ok := cartFromRequest(r, engine)
		if !ok {
			logger.Error("sessionID not found in context")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		resp := CheckoutFormResponse{Cart: cartResponse(r, c)}

		// для авторизованного пользователя форма предзаполняется его данными
		if userID, ok := jwtmiddleware.FromContext(r.Context()); ok {
			contact, err := profileService.GetProfile(r.Context(), userID)
			if err != nil {
				logger.Warn("failed to prefill contact fields", slog.Any("error", err))
			} else {
				resp.Contact = contact
			}
		}

		writeJSON(w, logger, resp)
	}
}

// CheckoutSubmitHandler обрабатывает POST /checkout. Невалидная форма не
// оставляет следов: корзина и заказы не меняются. Ошибка записи заказа —
// фатальный для запроса исход, а не тихая деградация.
func CheckoutSubmitHandler(log *slog.Logger, engine *cart.Engine, checkoutService service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CheckoutSubmitHandler"
		logger := log.With(slog.String("op", op))

		var req CheckoutRequest
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

		c, ok := cartFromRequest(r, engine)
		if !ok {
			logger.Error("sessionID not found in context")
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		// заказ привязывается к пользователю только при валидном токене
		var userID *int64
		if id, ok := jwtmiddleware.FromContext(r.Context()); ok {
			userID = &id
		}

		contact := service.ContactInfo{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
		}
		order, err := checkoutService.Checkout(r.Context(), c, contact, userID)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmptyCart):
				http.Error(w, "cart is empty", http.StatusBadRequest)
			case errors.Is(err, service.ErrUnavailableLines):
				http.Error(w, "cart contains unavailable items", http.StatusConflict)
			default:
				logger.Error("checkout failed", slog.Any("error", err))
				http.Error(w, "checkout failed", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, logger, order)
	}
}
