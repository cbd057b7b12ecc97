// Package errors provides unified error handling for flowgraph.
// Validator diagnostics and compile contract violations are AppErrors carrying
// a machine-readable code, an HTTP status mapping and, where one exists, the
// offending node id so an editor can highlight it.
package errors
