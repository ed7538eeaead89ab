// Package cache provides the shared TTL key-value store used for nonce
// tracking, rate-limit counters, and login sessions.
//
// The store is backed by Redis and is the only state shared between
// ssobridge instances; every record it holds expires on its own TTL,
// so no cleanup jobs are required.
package cache
