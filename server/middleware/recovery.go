package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/logger"
)

// Recovery recovers from panics, logs the stack and answers 500 with the
// INTERNAL_ERROR envelope.
func Recovery(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithContext(r.Context()).Error("Panic recovered", logger.Fields(
					logger.FieldError, fmt.Sprintf("%v", rec),
					"stack", string(debug.Stack()),
					logger.FieldPath, r.URL.Path,
					logger.FieldMethod, r.Method,
				))
				WriteError(w, errors.Internal(fmt.Errorf("panic: %v", rec)))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
