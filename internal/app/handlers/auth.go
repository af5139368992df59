package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/linemk/online-store/internal/service"
	"github.com/linemk/online-store/internal/storage"
)

var validate = validator.New()

// RegisterRequest представляет структуру запроса регистрации с тегами валидации
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
}

// LoginRequest представляет структуру запроса аутентификации
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse представляет структуру ответа с JWT-токеном
type AuthResponse struct {
	Token string `json:"token"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// writeValidationErrors отдаёт клиенту пофилдовые сообщения об ошибках формы
func writeValidationErrors(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		for _, fe := range vErrs {
			fields[fe.Field()] = fe.Tag()
		}
	}
	writeFieldErrors(w, fields)
}

func writeFieldErrors(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  "validation error",
		"fields": fields,
	})
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// RegisterHandler обрабатывает POST /register: создаёт пользователя с профилем и сразу логинит.
func RegisterHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.RegisterHandler"
		logger := log.With(slog.String("op", op))

		var req RegisterRequest
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

		token, err := authService.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
		if err != nil {
			// занятый email — ошибка конкретного поля формы, а не всей регистрации
			if errors.Is(err, storage.ErrEmailTaken) {
				logger.Warn("email already registered", slog.String("email", req.Email))
				writeFieldErrors(w, map[string]string{"email": "taken"})
				return
			}
			logger.Error("registration failed", slog.Any("error", err))
			http.Error(w, "registration failed", http.StatusBadRequest)
			return
		}

		writeJSON(w, logger, AuthResponse{Token: token})
	}
}

// LoginHandler обрабатывает POST /login.
func LoginHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.LoginHandler"
		logger := log.With(slog.String("op", op))

		var req LoginRequest
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

		token, err := authService.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			logger.Error("login failed", slog.Any("error", err))
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}

		writeJSON(w, logger, AuthResponse{Token: token})
	}
}

// LogoutHandler обрабатывает POST /logout: гасит сессионную куку,
// сам JWT-токен считается выброшенным на клиенте.
func LogoutHandler(log *slog.Logger, cookieName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
		})
		writeJSON(w, log, MessageResponse{Message: "logged out"})
	}
}

// PasswordResetRequest — запрос на сброс пароля.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest — подтверждение сброса одноразовым токеном.
type PasswordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// PasswordResetHandler обрабатывает POST /password-reset.
// Ответ одинаков для существующего и несуществующего email.
func PasswordResetHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PasswordResetHandler"
		logger := log.With(slog.String("op", op))

		var req PasswordResetRequest
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

		if _, err := authService.RequestPasswordReset(r.Context(), req.Email); err != nil {
			logger.Error("failed to request password reset", slog.Any("error", err))
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, logger, MessageResponse{Message: "password reset requested"})
	}
}

// PasswordResetConfirmHandler обрабатывает POST /password-reset/confirm.
func PasswordResetConfirmHandler(log *slog.Logger, authService service.AuthServiceInterface) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PasswordResetConfirmHandler"
		logger := log.With(slog.String("op", op))

		var req PasswordResetConfirmRequest
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

		if err := authService.ConfirmPasswordReset(r.Context(), req.Token, req.Password); err != nil {
			logger.Error("failed to confirm password reset", slog.Any("error", err))
			http.Error(w, "invalid or expired token", http.StatusBadRequest)
			return
		}

		writeJSON(w, logger, MessageResponse{Message: "password updated"})
	}
}
