package middleware

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
)

// CompressHandler gzips responses for clients that accept it.
func CompressHandler(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
