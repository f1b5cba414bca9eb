package middleware

import (
	"net/http"

	"github.com/upb/catering-erp/utils"
	"go.uber.org/zap"
)

// Recoverer turns a handler panic into a logged 500 envelope.
// http.ErrAbortHandler is re-raised so the server can abort the connection.
func Recoverer(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("handler panic",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Any("panic", rec),
					zap.Stack("stack"))

				if r.Header.Get("Connection") != "Upgrade" {
					_ = utils.WriteInternalServerError(w, "")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
