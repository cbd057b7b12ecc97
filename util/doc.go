// Package util provides small generic helpers shared across flowgraph
// packages: slice and map utilities, size parsing, and string sanitization.
package util
