package jwtmiddleware

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const UserIDKey contextKey = "userID"

// NewJWTMiddleware создаёт middleware для проверки JWT, секрет берётся из переменной окружения.
// Запрос без валидного токена отклоняется со статусом 401.
func NewJWTMiddleware() func(http.Handler) http.Handler {
	secret := mustSecret()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := parseRequestToken(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			// Устанавливаем userID в контекст запроса
			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewOptionalJWTMiddleware — вариант для маршрутов, доступных и гостям (например, оформление заказа).
// Валидный токен кладёт userID в контекст, отсутствие или невалидность токена пропускает запрос дальше.
func NewOptionalJWTMiddleware() func(http.Handler) http.Handler {
	secret := mustSecret()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := parseRequestToken(r, secret)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func mustSecret() string {
	// Можно также принять секрет как параметр, если не хочется брать его внутри.
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		panic("JWT_SECRET is not set")
	}
	return secret
}

// parseRequestToken извлекает и проверяет токен из заголовка Authorization (формат: "Bearer <token>")
func parseRequestToken(r *http.Request, secret string) (int64, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return 0, errors.New("missing token")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return 0, errors.New("invalid token format")
	}
	tokenStr := parts[1]

	// Парсинг и проверка токена
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		// Проверка алгоритма
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, errors.New("invalid token claims")
	}

	// Извлекаем идентификатор пользователя из поля "sub"
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, errors.New("invalid token claims: sub not found")
	}

	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return 0, errors.New("invalid token claims: invalid user id")
	}

	return userID, nil
}

// FromContext извлекает userID из контекста.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(UserIDKey).(int64)
	return id, ok
}
