// Package audit records an append-only trail of login activity. The trail
// is the forensic record for an authentication endpoint: every accepted
// login, every rejection and every logout lands here with enough context to
// reconstruct an incident without ever storing token material.
package audit

import (
	"context"
	"time"
)

// EventType categorizes audit events.
type EventType string

const (
	EventLoginAccepted EventType = "login.accepted"
	EventLoginRejected EventType = "login.rejected"
	EventLogout        EventType = "logout"
)

// Event is a single audit record. UserID is nil when no local user was
// resolved. Code carries the reject code for rejected logins.
type Event struct {
	Type      EventType
	UserID    *int64
	Email     string
	ClientIP  string
	RequestID string
	Code      string
	Message   string
	CreatedAt time.Time
}

// Logger persists audit events.
type Logger interface {
	Record(ctx context.Context, event *Event) error
	Close() error
}

// NopLogger discards all events. Used when auditing is disabled and in
// tests that do not care about the trail.
type NopLogger struct{}

func (NopLogger) Record(ctx context.Context, event *Event) error { return nil }
func (NopLogger) Close() error                                   { return nil }
