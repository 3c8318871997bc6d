package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"taskScheduler/internal/logger"
	"taskScheduler/internal/service"

	"go.uber.org/zap"
)

type SessionResolver interface {
	CurrentUser(ctx context.Context, token string) (int64, error)
}

// SessionToken достаёт токен из заголовка Authorization: Bearer или из cookie сессии.
func SessionToken(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	cookie, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RequireWebSession пропускает только вошедших пользователей, остальных отправляет на loginPath.
func RequireWebSession(resolver SessionResolver, cookieName, loginPath string) func(http.Handler) http.Handler {
	return requireSession(resolver, cookieName, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
	})
}

// RequireAPISession отвечает 401 в JSON, если сессии нет.
func RequireAPISession(resolver SessionResolver, cookieName string) func(http.Handler) http.Handler {
	return requireSession(resolver, cookieName, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{
			"error":   service.CodeUnauthenticated,
			"message": "Требуется вход в систему",
		})
	})
}

func requireSession(resolver SessionResolver, cookieName string, deny http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, cookieName)
			if token == "" {
				deny(w, r)
				return
			}

			userID, err := resolver.CurrentUser(r.Context(), token)
			if err != nil {
				if service.HasCode(err, service.CodeUnauthenticated) {
					logger.Debug("HTTP: Сессия недействительна",
						zap.String("request_id", GetRequestID(r.Context())))
					deny(w, r)
					return
				}

				logger.Error("HTTP: Ошибка проверки сессии", err,
					zap.String("request_id", GetRequestID(r.Context())))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
