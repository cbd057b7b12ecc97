package middleware_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/flowgraph/auth"
	"github.com/kbukum/flowgraph/errors"
	"github.com/kbukum/flowgraph/logger"
	"github.com/kbukum/flowgraph/observability"
	"github.com/kbukum/flowgraph/server/middleware"
)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) errors.ErrorBody {
	t.Helper()
	var body errors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not valid JSON: %v (%s)", err, rr.Body.String())
	}
	return body.Error
}

// ---------------------------------------------------------------------------
// Recovery
// ---------------------------------------------------------------------------

func TestRecovery_NoPanic(t *testing.T) {
	handler := middleware.Recovery(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRecovery_Panic(t *testing.T) {
	handler := middleware.Recovery(logger.NewNop())(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("test panic")
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/test", http.NoBody))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Code != errors.ErrCodeInternal {
		t.Fatalf("unexpected error code: %s", body.Code)
	}
}

// ---------------------------------------------------------------------------
// RequestID
// ---------------------------------------------------------------------------

func TestRequestID_GeneratesID(t *testing.T) {
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(middleware.HeaderRequestID) == "" {
			t.Error("expected X-Request-Id in request headers")
		}
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", http.NoBody))

	if rr.Header().Get(middleware.HeaderRequestID) == "" {
		t.Error("expected X-Request-Id in response headers")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	handler := middleware.RequestID()(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "custom-id-123")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get(middleware.HeaderRequestID); got != "custom-id-123" {
		t.Fatalf("expected custom-id-123, got %s", got)
	}
}

// ---------------------------------------------------------------------------
// CORS
// ---------------------------------------------------------------------------

func TestCORS_SetHeaders(t *testing.T) {
	cfg := &middleware.CORSConfig{
		AllowedOrigins: []string{"https://editor.example.com"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}
	handler := middleware.CORS(cfg)(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/workflows/compile", http.NoBody)
	req.Header.Set("Origin", "https://editor.example.com")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://editor.example.com" {
		t.Fatalf("expected https://editor.example.com, got %s", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Fatalf("expected 'GET, POST', got %s", got)
	}
	if got := rr.Header().Get("Access-Control-Expose-Headers"); got != middleware.HeaderRequestID {
		t.Fatalf("expected request id to be exposed, got %s", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := &middleware.CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
	}
	handler := middleware.CORS(cfg)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not be called for OPTIONS preflight")
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("OPTIONS", "/api/v1/workflows/validate", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for OPTIONS preflight, got %d", rr.Code)
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	cfg := &middleware.CORSConfig{AllowedOrigins: []string{"https://allowed.com"}}
	handler := middleware.CORS(cfg)(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "https://evil.com")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header for disallowed origin, got %s", got)
	}
}

func TestCORS_Credentials(t *testing.T) {
	cfg := &middleware.CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true}
	handler := middleware.CORS(cfg)(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", http.NoBody)
	req.Header.Set("Origin", "https://app.example.com")
	handler.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected 'true', got %s", got)
	}
}

// ---------------------------------------------------------------------------
// RequestLogger
// ---------------------------------------------------------------------------

func TestRequestLogger_LogsRequest(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	handler := middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/api/v1/workflows/compile", http.NoBody))

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	out := buf.String()
	if !strings.Contains(out, `"status":422`) || !strings.Contains(out, `"path":"/api/v1/workflows/compile"`) {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestRequestLogger_SkipsHealth(t *testing.T) {
	var buf strings.Builder
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &buf)
	called := false
	handler := middleware.RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/health", http.NoBody))

	if !called {
		t.Error("handler should still be called for health endpoints")
	}
	if buf.Len() != 0 {
		t.Errorf("health requests should not be logged: %s", buf.String())
	}
}

// ---------------------------------------------------------------------------
// BodySizeLimit
// ---------------------------------------------------------------------------

func TestBodySizeLimit(t *testing.T) {
	handler := middleware.BodySizeLimit("1KB")(http.HandlerFunc(okHandler))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/upload", strings.NewReader("small")))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/upload", strings.NewReader(strings.Repeat("x", 2048))))
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Code != errors.ErrCodePayloadTooLarge {
		t.Fatalf("unexpected error code: %s", body.Code)
	}
}

// ---------------------------------------------------------------------------
// Auth
// ---------------------------------------------------------------------------

func stubValidator(token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, fmt.Errorf("bad token")
	}
	c := &auth.Claims{Scope: "compile"}
	c.Subject = "editor"
	return c, nil
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing header", "/api/v1/workflows/compile", "", http.StatusUnauthorized},
		{"wrong scheme", "/api/v1/workflows/compile", "Basic Zm9v", http.StatusUnauthorized},
		{"invalid token", "/api/v1/workflows/compile", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "/api/v1/workflows/compile", "Bearer good", http.StatusOK},
		{"lowercase scheme", "/api/v1/workflows/compile", "bearer good", http.StatusOK},
		{"skipped path", "/api/v1/public/ping", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			mw := middleware.Auth(auth.TokenValidatorFunc(stubValidator), "/api/v1/public")
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject = auth.Subject(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			rr := httptest.NewRecorder()
			req := httptest.NewRequest("POST", tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
			if tt.want == http.StatusUnauthorized {
				if body := decodeError(t, rr); body.Code != errors.ErrCodeUnauthorized {
					t.Errorf("unexpected error code: %s", body.Code)
				}
			}
			if tt.header == "Bearer good" && subject != "editor" {
				t.Errorf("expected subject in context, got %q", subject)
			}
		})
	}
}

func TestAuth_SetsOperationSubject(t *testing.T) {
	oc := observability.NewOperationContext("flowgraph", "/api/v1/workflows/compile", "req-1", nil)
	handler := middleware.Auth(auth.TokenValidatorFunc(stubValidator))(http.HandlerFunc(okHandler))

	req := httptest.NewRequest("POST", "/api/v1/workflows/compile", http.NoBody)
	req = req.WithContext(observability.WithOperationContext(req.Context(), oc))
	req.Header.Set("Authorization", "Bearer good")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if oc.Subject != "editor" {
		t.Errorf("expected subject on operation context, got %q", oc.Subject)
	}
}

// ---------------------------------------------------------------------------
// Observe
// ---------------------------------------------------------------------------

func TestObserve_ExposesOperationContext(t *testing.T) {
	var oc *observability.OperationContext
	handler := middleware.Chain(middleware.RequestID(), middleware.Observe("flowgraph", nil))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			oc = observability.OperationContextFromContext(r.Context())
			w.WriteHeader(http.StatusAccepted)
		}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/workflows/validate", http.NoBody)
	req.Header.Set(middleware.HeaderRequestID, "req-7")
	handler.ServeHTTP(rr, req)

	if oc == nil {
		t.Fatal("expected an operation context")
	}
	if oc.RequestID != "req-7" || oc.OperationName != "/api/v1/workflows/validate" {
		t.Errorf("operation context = %+v", oc)
	}
	if rr.Code != http.StatusAccepted {
		t.Errorf("expected 202, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Chain and GinWrap
// ---------------------------------------------------------------------------

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) middleware.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name+"-before")
				next.ServeHTTP(w, r)
				order = append(order, name+"-after")
			})
		}
	}

	handler := middleware.Chain(mark("m1"), mark("m2"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		order = append(order, "handler")
		w.WriteHeader(http.StatusOK)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", http.NoBody))

	expected := []string{"m1-before", "m2-before", "handler", "m2-after", "m1-after"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Fatalf("expected %v, got %v", expected, order)
	}
}

func TestGinWrap_AbortsOnRejection(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	reached := false
	group := engine.Group("/api", middleware.GinWrap(middleware.Auth(auth.TokenValidatorFunc(stubValidator))))
	group.GET("/ping", func(c *gin.Context) {
		reached = true
		_, ok := auth.ClaimsFrom(c.Request.Context())
		if !ok {
			t.Error("expected claims in the gin request context")
		}
		c.Status(http.StatusOK)
	})

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/api/ping", http.NoBody))
	if rr.Code != http.StatusUnauthorized || reached {
		t.Fatalf("expected 401 without reaching the handler, got %d (reached=%v)", rr.Code, reached)
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/ping", http.NoBody)
	req.Header.Set("Authorization", "Bearer good")
	engine.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || !reached {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// RateLimit
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := gin.New()
	engine.Use(middleware.RateLimit(ctx, middleware.RateLimitConfig{RequestsPerMinute: 2, KeyFunc: middleware.IPBasedKey}))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		rr := httptest.NewRecorder()
		engine.ServeHTTP(rr, httptest.NewRequest("GET", "/ping", http.NoBody))
		codes[i] = rr.Code
		if i == 2 {
			if body := decodeError(t, rr); body.Code != errors.ErrCodeRateLimited || !body.Retryable {
				t.Errorf("unexpected error body: %+v", body)
			}
		}
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestConcurrencyLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	entered := make(chan struct{})
	release := make(chan struct{})

	engine := gin.New()
	engine.Use(middleware.ConcurrencyLimit(middleware.ConcurrencyConfig{Enabled: true, MaxInFlight: 1}, logger.NewNop()))
	engine.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	engine.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.ServeHTTP(first, httptest.NewRequest("GET", "/slow", http.NoBody))
	}()
	<-entered

	rr := httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/fast", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 while the slot is taken, got %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Code != errors.ErrCodeOverloaded || !body.Retryable {
		t.Errorf("unexpected error body: %+v", body)
	}

	close(release)
	<-done
	if first.Code != http.StatusOK {
		t.Errorf("slow request = %d", first.Code)
	}

	rr = httptest.NewRecorder()
	engine.ServeHTTP(rr, httptest.NewRequest("GET", "/fast", http.NoBody))
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200 once the slot is free, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// statusWriter: Flush support
// ---------------------------------------------------------------------------

type flushRecorder struct {
	http.ResponseWriter
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestStatusWriter_Flush(t *testing.T) {
	fr := &flushRecorder{ResponseWriter: httptest.NewRecorder()}

	handler := middleware.RequestLogger(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(fr, httptest.NewRequest("GET", "/stream", http.NoBody))

	if !fr.flushed {
		t.Error("expected Flush to be delegated to underlying writer")
	}
}
