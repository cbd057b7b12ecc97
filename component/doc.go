// Package component manages the lifecycle of the long-running parts of a
// flowgraph binary.
//
// A Component starts, stops and reports its health. The Registry starts
// components in registration order, stops them in reverse, and exposes them
// as observability.HealthChecker values for the /health endpoint.
package component
