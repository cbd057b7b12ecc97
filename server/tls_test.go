package server

import (
	"context"
	"crypto/tls"
	"net/http"
	"testing"

	"github.com/kbukum/flowgraph/logger"
	"github.com/kbukum/flowgraph/security"
	"github.com/kbukum/flowgraph/security/tlstest"
)

func startTLSServer(t *testing.T, tlsCfg security.TLSConfig) *Server {
	t.Helper()
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Host, cfg.Port = "127.0.0.1", 0
	cfg.TLS = tlsCfg

	s := New(cfg, logger.NewNop())
	s.RegisterDefaultEndpoints("flowgraph", "test")
	s.ApplyMiddleware("flowgraph", nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func tlsClient(clientTLS *tls.Config) *http.Client {
	return &http.Client{Transport: &http.Transport{TLSClientConfig: clientTLS}}
}

func TestServer_TLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	s := startTLSServer(t, security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile})

	resp, err := tlsClient(&tls.Config{RootCAs: certs.CertPool}).Get("https://" + s.Addr() + "/alive")
	if err != nil {
		t.Fatalf("GET /alive over TLS: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.TLS == nil {
		t.Error("response did not come over TLS")
	}
}

func TestServer_MutualTLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)
	s := startTLSServer(t, security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile, ClientCAFile: certs.CAFile})
	url := "https://" + s.Addr() + "/alive"

	if resp, err := tlsClient(&tls.Config{RootCAs: certs.CertPool}).Get(url); err == nil {
		_ = resp.Body.Close()
		t.Fatal("expected the handshake to fail without a client certificate")
	}

	resp, err := tlsClient(&tls.Config{RootCAs: certs.CertPool, Certificates: []tls.Certificate{certs.Leaf}}).Get(url)
	if err != nil {
		t.Fatalf("GET with client certificate: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestServer_TLSStartError(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	cfg.Host, cfg.Port = "127.0.0.1", 0
	cfg.TLS = security.TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: "/nonexistent/key.pem"}

	s := New(cfg, logger.NewNop())
	if err := s.Start(context.Background()); err == nil {
		_ = s.Stop(context.Background())
		t.Fatal("expected Start to fail with unreadable certificates")
	}
	if s.Serving() {
		t.Error("server reports serving after a failed start")
	}
}
