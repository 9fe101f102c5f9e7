package middleware

import "net/http"

const (
	corsAllowOrigin  = "*"
	corsAllowMethods = "POST, GET, OPTIONS"
	corsAllowHeaders = "X-Requested-With, X-Prototype-Version"
	corsMaxAge       = "1728000"
)

// CORS opens the public donation endpoints to any origin.
//
// Preflight (OPTIONS) requests are answered here with an empty text/plain
// body and never reach the wrapped handler. Every other response gets the
// origin, methods and max-age headers.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", corsAllowOrigin)
		h.Set("Access-Control-Allow-Methods", corsAllowMethods)
		h.Set("Access-Control-Max-Age", corsMaxAge)

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
