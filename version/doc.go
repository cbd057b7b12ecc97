// Package version provides build version information.
//
// Version, git commit and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/flowgraph/version.Version=1.0.0" ./cmd/flowgraph
package version
