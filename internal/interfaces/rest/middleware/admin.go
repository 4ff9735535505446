package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/storefront-payments/internal/application"
	"github.com/DanielPopoola/storefront-payments/internal/interfaces/rest"
)

const AdminTokenHeader = "X-Admin-Token"

// AdminToken rejects requests whose X-Admin-Token header does not match token.
// An empty configured token rejects everything.
func AdminToken(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	expected := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := []byte(r.Header.Get(AdminTokenHeader))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				logger.Warn("admin request rejected", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
				rest.WriteError(w, application.NewUnauthorizedError(), logger)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
