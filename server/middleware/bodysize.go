package middleware

import (
	"net/http"

	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/util"
)

// DefaultMaxBodySize applies when the configured size does not parse.
const DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

// BodySizeLimit restricts the request body to the given size string
// (e.g. "10MB", "512KB"). A declared length over the limit is refused up
// front; reads past the limit fail with *http.MaxBytesError.
func BodySizeLimit(maxSize string) Middleware {
	size := util.ParseSize(maxSize, DefaultMaxBodySize)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > size {
				WriteError(w, errors.PayloadTooLarge(size))
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
