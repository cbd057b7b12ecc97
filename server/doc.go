// Package server exposes the compiler to the browser editor over HTTP.
//
// A Server is a Gin engine behind a net/http middleware chain (recovery,
// request id, tracing and metrics, request logging, CORS, body-size limit)
// and is served over HTTP/1.1 and h2c, or over HTTPS when a certificate is
// configured (optionally requiring client certificates). Routes:
//
//	POST /api/v1/workflows/validate       validate a document
//	POST /api/v1/workflows/compile        compile a document
//	POST /api/v1/workflows/compile/batch  compile many documents
//	GET  /health                          aggregated component health
//	GET  /alive                           liveness probe
//	GET  /info                            build information
//
// Successful answers use the {"data": ...} envelope; failures use the
// {"error": {"code", "message", "retryable", "details"}} envelope of the
// errors package. The API group can require an HMAC bearer token and can
// be rate limited per token subject.
package server
