// Package payload gives the editor's program node configurations a typed
// schema. The compiler carries payloads through untouched; this package is
// only consulted when payload checking is switched on.
package payload
