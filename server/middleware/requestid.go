package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/kbukum/flowgraph/logger"
)

// RequestID makes sure every request carries an X-Request-Id. An incoming
// id is kept; otherwise a UUID is generated. The id is echoed on the
// response and stored in the context for the logger.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(HeaderRequestID, id)
			}
			w.Header().Set(HeaderRequestID, id)
			next.ServeHTTP(w, r.WithContext(logger.ContextWithRequestID(r.Context(), id)))
		})
	}
}
