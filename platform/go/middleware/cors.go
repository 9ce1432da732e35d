package middleware

import (
	"net/http"
	"strings"
)

// DefaultCORS allows any origin; local dev only.
func DefaultCORS() func(http.Handler) http.Handler {
	return CORS(nil)
}

// CORS answers preflight requests and reflects allowed origins. An empty list allows any origin.
// Tenant domains differ per customer, so the allow list is usually the central admin origins plus
// a wildcard suffix such as ".palmyra.pro".
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	exact := make(map[string]struct{}, len(allowedOrigins))
	var suffixes []string
	for _, o := range allowedOrigins {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "":
		case strings.HasPrefix(o, "."):
			suffixes = append(suffixes, o)
		default:
			exact[o] = struct{}{}
		}
	}
	anyOrigin := len(exact) == 0 && len(suffixes) == 0

	allowed := func(origin string) bool {
		origin = strings.ToLower(origin)
		if _, ok := exact[origin]; ok {
			return true
		}
		for _, s := range suffixes {
			if strings.HasSuffix(origin, s) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			switch {
			case anyOrigin:
				w.Header().Set("Access-Control-Allow-Origin", "*")
			case origin != "" && allowed(origin):
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Add("Vary", "Origin")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,Idempotency-Key")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
