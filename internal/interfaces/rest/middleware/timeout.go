package middleware

import (
	"net/http"
	"time"
)

// Timeout bounds the whole request, including PayPal calls made on its
// context. The client sees the standard error envelope with code TIMEOUT.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(
			next,
			timeout,
			`{"success":false,"error":{"code":"TIMEOUT","message":"Request timeout"}}`,
		)
	}
}
