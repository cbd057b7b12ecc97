package middleware

import (
	"net/http"
	"time"

	"github.com/kbukum/flowgraph/logger"
)

// RequestLogger logs every request with method, path, status code and
// duration. Probe endpoints are skipped.
func RequestLogger(log *logger.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbeEndpoint(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := logger.Fields(
				logger.FieldMethod, r.Method,
				logger.FieldPath, r.URL.Path,
				logger.FieldStatus, sw.status,
			)
			fields = logger.MergeWithDuration(fields, time.Since(start))
			logByStatus(log.WithContext(r.Context()), fields, sw.status)
		})
	}
}

var probePaths = map[string]bool{
	"/health": true,
	"/alive":  true,
}

func isProbeEndpoint(path string) bool {
	return probePaths[path]
}

// logByStatus logs request fields at the level matching the HTTP status.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
