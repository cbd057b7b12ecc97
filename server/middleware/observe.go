package middleware

import (
	"net/http"
	"strconv"

	"github.com/kbukum/flowgraph/observability"
)

// Observe opens a server span per request and records the HTTP request
// metrics. metrics may be nil. Probe endpoints are not observed.
func Observe(service string, metrics *observability.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbeEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			oc := observability.NewOperationContext(service, r.URL.Path, r.Header.Get(HeaderRequestID), metrics)
			ctx := observability.WithOperationContext(r.Context(), oc)
			ctx, span := oc.StartSpanForOperation(ctx, observability.SpanHTTPRequest)

			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r.WithContext(ctx))

			oc.EndOperation(ctx, span, r.Method, strconv.Itoa(sw.status), nil)
		})
	}
}
