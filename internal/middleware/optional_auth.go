package middleware

import (
	"net/http"

	"github.com/ELIEDSON-GUSTAVO/CONSULTA/internal/auth"
)

// OptionalAuth tenta ler o Bearer token, mas não bloqueia se estiver ausente/inválido.
// Se válido, injeta claims no context (o rate limit usa o subject como chave).
func OptionalAuth(v *auth.Verifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := extractToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := v.Verify(r.Context(), raw)
		if err == nil && claims != nil {
			r = r.WithContext(auth.WithClaims(r.Context(), claims))
		}
		next.ServeHTTP(w, r)
	})
}

func OptionalAuthMiddleware(v *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler { return OptionalAuth(v, next) }
}
