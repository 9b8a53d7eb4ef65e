package middleware

import (
	"net/http"
	"strings"
)

// corsHeaders describe a read-only API: any origin may GET, nothing else.
var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":   "*",
	"Access-Control-Allow-Methods":  strings.Join([]string{http.MethodGet, http.MethodHead, http.MethodOptions}, ","),
	"Access-Control-Allow-Headers":  "Content-Type," + RequestIDHeader,
	"Access-Control-Expose-Headers": RequestIDHeader,
	"Access-Control-Max-Age":        "600",
}

// CORS lets browser apps call the search API. Preflight requests are
// answered here and never reach the router.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range corsHeaders {
			w.Header().Set(k, v)
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
