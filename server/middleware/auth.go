package middleware

import (
	"net/http"
	"strings"

	"github.com/kbukum/flowgraph/auth"
	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/observability"
)

// Auth requires a valid bearer token on every request whose path does not
// start with one of skipPaths. Verified claims are stored in the request
// context (auth.ClaimsFrom) and their subject on the operation context.
func Auth(validator auth.TokenValidator, skipPaths ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, skip := range skipPaths {
				if strings.HasPrefix(r.URL.Path, skip) {
					next.ServeHTTP(w, r)
					return
				}
			}

			header := r.Header.Get("Authorization")
			if header == "" {
				WriteError(w, errors.Unauthorized("Authorization header required."))
				return
			}
			scheme, token, ok := strings.Cut(header, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				WriteError(w, errors.Unauthorized("Invalid authorization header format."))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				WriteError(w, errors.Unauthorized("Invalid token.").WithCause(err))
				return
			}

			ctx := auth.WithClaims(r.Context(), claims)
			if oc := observability.OperationContextFromContext(ctx); oc != nil {
				oc.Subject = claims.Subject
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
