package middleware

import (
	"net/http"

	"github.com/brizzai/simple-auth/internal/auth/constants"
	"github.com/brizzai/simple-auth/internal/logger"
	"github.com/brizzai/simple-auth/internal/utils"
	"go.uber.org/zap"
)

// Recoverer turns a panic in next into a 500 JSON answer
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			logger.Error("Panic recovered",
				zap.Any("panic", rec),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Stack("stack"),
			)
			utils.WriteError(w, constants.ErrCodeInternal, "internal server error", http.StatusInternalServerError)
		}()
		next.ServeHTTP(w, r)
	})
}
