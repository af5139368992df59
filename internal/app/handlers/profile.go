package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/linemk/online-store/internal/jwt-new/jwtmiddleware"
	"github.com/linemk/online-store/internal/service"
)

// ProfileUpdateRequest — изменяемые поля профиля; пустое поле оставляет прежнее значение.
type ProfileUpdateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// ProfileHandler обрабатывает GET /profile: профиль создаётся при первом
// обращении, если его ещё нет.
func ProfileHandler(log *slog.Logger, profileService service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProfileHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		profile, err := profileService.GetProfile(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get profile", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, profile)
	}
}

// ProfileUpdateHandler обрабатывает POST /profile.
func ProfileUpdateHandler(log *slog.Logger, profileService service.ProfileService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.ProfileUpdateHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req ProfileUpdateRequest
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

		profile, err := profileService.UpdateProfile(r.Context(), userID, service.ProfileUpdate{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Address:   req.Address,
		})
		if err != nil {
			logger.Error("failed to update profile", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, profile)
	}
}
