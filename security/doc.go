// Package security holds the TLS settings of the flowgraph API listener.
//
//	cfg := security.TLSConfig{
//	    CertFile:     "/etc/flowgraph/tls/cert.pem",
//	    KeyFile:      "/etc/flowgraph/tls/key.pem",
//	    ClientCAFile: "/etc/flowgraph/tls/editors-ca.pem", // optional mTLS
//	}
//
//	tlsConfig, err := cfg.Build()
package security
