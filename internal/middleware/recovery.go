package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"taskScheduler/internal/logger"

	"go.uber.org/zap"
)

// Recovery превращает панику обработчика в ответ 500, процесс продолжает работу.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			logger.Error("HTTP: Паника при обработке запроса", fmt.Errorf("%v", rec),
				zap.String("request_id", GetRequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", RedactPath(r.URL.Path)),
				zap.ByteString("stack", debug.Stack()),
			)

			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
