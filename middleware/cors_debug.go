package middleware

import (
	"net/http"

	"location_form/logger"
)

// CORSDebugMiddleware logs the CORS-relevant parts of every request. It only
// observes; rs/cors answers preflights.
func CORSDebugMiddleware(next http.Handler) http.Handler {
	log := logger.For(logger.ComponentHTTP).Named("cors")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debugw("CORS request",
			"origin", r.Header.Get("Origin"),
			"method", r.Method,
			"request_method", r.Header.Get("Access-Control-Request-Method"),
			"request_headers", r.Header.Get("Access-Control-Request-Headers"),
		)

		next.ServeHTTP(w, r)

		log.Debugw("CORS response",
			"allow_origin", w.Header().Get("Access-Control-Allow-Origin"),
			"vary", w.Header().Values("Vary"),
		)
	})
}
