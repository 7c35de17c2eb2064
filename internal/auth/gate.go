package auth

import (
	"net/http"

	"bodega/pkg/kit"
)

// TokenValidator reports whether a raw bearer value grants admin rights.
type TokenValidator interface {
	Valid(token string) bool
}

// RequireToken rejects requests whose Authorization header is not an issued
// token. The header value is used verbatim, without a "Bearer " scheme.
// Missing and unknown tokens get the same 403 reply.
func RequireToken(tokens TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := r.Header.Get("Authorization")
			if tok == "" || !tokens.Valid(tok) {
				kit.WriteError(w, r, http.StatusForbidden, "no autorizado", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
