package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DBLogger writes audit events to PostgreSQL.
type DBLogger struct {
	db *sql.DB
}

// NewDBLogger creates a database-backed audit logger and ensures the
// audit_events table exists.
func NewDBLogger(db *sql.DB) (*DBLogger, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	logger := &DBLogger{db: db}
	if err := logger.ensureTable(); err != nil {
		return nil, fmt.Errorf("ensure audit_events table: %w", err)
	}
	return logger, nil
}

func (l *DBLogger) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_events (
		id         BIGSERIAL PRIMARY KEY,
		event_type VARCHAR(50) NOT NULL,
		user_id    BIGINT,
		email      VARCHAR(255),
		ip_address VARCHAR(45),
		request_id VARCHAR(100),
		code       VARCHAR(50),
		message    TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audit_events_created_at ON audit_events(created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_events_event_type ON audit_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_audit_events_user_id ON audit_events(user_id);
	CREATE INDEX IF NOT EXISTS idx_audit_events_ip_address ON audit_events(ip_address);
	`
	_, err := l.db.Exec(query)
	return err
}

// Record inserts the event.
func (l *DBLogger) Record(ctx context.Context, event *Event) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_events (event_type, user_id, email, ip_address, request_id, code, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		string(event.Type),
		event.UserID,
		nullString(event.Email),
		nullString(event.ClientIP),
		nullString(event.RequestID),
		nullString(event.Code),
		nullString(event.Message),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// Close is a no-op; the logger does not own the database handle.
func (l *DBLogger) Close() error {
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
