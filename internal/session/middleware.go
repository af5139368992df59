package session

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const SessionIDKey contextKey = "sessionID"

// Middleware выдаёт посетителю сессионную куку, если её ещё нет,
// и кладёт идентификатор сессии в контекст запроса.
func Middleware(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sessionID string

			cookie, err := r.Cookie(cookieName)
			if err == nil && cookie.Value != "" {
				sessionID = cookie.Value
			} else {
				sessionID = uuid.NewString()
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromContext извлекает идентификатор сессии из контекста.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok
}
