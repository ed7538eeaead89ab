// Package httputil provides HTTP handler utilities for consistent error
// responses, JSON encoding, and request middleware.
//
// Error responses follow the login endpoint's wire contract:
//
//	{"error": "<code>", "message": "<human text>"}
package httputil
