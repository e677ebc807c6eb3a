package middleware

import (
	"net/http"
	"runtime/debug"

	"location_form/logger"
)

// RecoveryMiddleware turns a panic in a handler into a JSON 500.
func RecoveryMiddleware(next http.Handler) http.Handler {
	log := logger.For(logger.ComponentHTTP)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Errorw("Panic recovered", "error", err, "path", r.URL.Path, "stack", string(debug.Stack()))

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error": "Internal server error", "code": 500}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
