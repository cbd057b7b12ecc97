// Package auth issues and verifies the HMAC-signed bearer tokens that guard
// the flowgraph HTTP API.
//
// Authentication is optional. When enabled, the server's auth middleware
// resolves the token through a TokenValidator and stores the Claims in the
// request context:
//
//	auth:
//	  enabled: true
//	  secret: "change-me-change-me"
//	  issuer: "flowgraph"
package auth
