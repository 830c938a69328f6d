package middleware

import (
	"net/http"
	"strconv"
)

const (
	corsMethods = "GET, POST, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, Authorization, X-Request-ID"
	corsExpose  = "X-Request-ID, X-Total-Count"
	corsMaxAge  = 600
)

// OriginAllowed devolve o teste de origem usado pelo CORS e pelo upgrade do WebSocket.
// "*" libera qualquer origem.
func OriginAllowed(origins []string) func(origin string) bool {
	set := make(map[string]struct{}, len(origins))
	all := false
	for _, o := range origins {
		if o == "*" {
			all = true
		}
		set[o] = struct{}{}
	}
	return func(origin string) bool {
		if all {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func CORS(origins []string) func(http.Handler) http.Handler {
	allowed := OriginAllowed(origins)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hdr := w.Header()
			if origin := r.Header.Get("Origin"); origin != "" && allowed(origin) {
				hdr.Set("Access-Control-Allow-Origin", origin)
				hdr.Set("Access-Control-Allow-Credentials", "true")
				hdr.Add("Vary", "Origin")
			}
			hdr.Set("Access-Control-Expose-Headers", corsExpose)
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			hdr.Set("Access-Control-Allow-Methods", corsMethods)
			hdr.Set("Access-Control-Allow-Headers", corsHeaders)
			hdr.Set("Access-Control-Max-Age", strconv.Itoa(corsMaxAge))
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
