package sso

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// PostgresIdentityStore resolves local users from a Postgres database.
type PostgresIdentityStore struct {
	db *sql.DB
}

// NewPostgresIdentityStore builds a store on db.
func NewPostgresIdentityStore(db *sql.DB) *PostgresIdentityStore {
	return &PostgresIdentityStore{db: db}
}

// ResolveByEmail looks up an active user by email, case-insensitively, and
// loads their capabilities.
func (s *PostgresIdentityStore) ResolveByEmail(ctx context.Context, email string) (*LocalUser, error) {
	email = strings.TrimSpace(email)

	var user LocalUser
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, username
		FROM users
		WHERE lower(email) = lower($1) AND is_active
	`, email).Scan(&user.ID, &user.Email, &user.Username)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT capability
		FROM user_capabilities
		WHERE user_id = $1
		ORDER BY capability
	`, user.ID)
	if err != nil {
		return nil, fmt.Errorf("query user capabilities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan capability: %w", err)
		}
		user.Capabilities = append(user.Capabilities, Capability(c))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate capabilities: %w", err)
	}
	return &user, nil
}

// GrantCapability adds a capability to a user. Granting an already-held
// capability is a no-op.
func (s *PostgresIdentityStore) GrantCapability(ctx context.Context, userID int64, c Capability) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_capabilities (user_id, capability)
		VALUES ($1, $2)
		ON CONFLICT (user_id, capability) DO NOTHING
	`, userID, string(c))
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return ErrUserNotFound
		}
		return fmt.Errorf("grant capability: %w", err)
	}
	return nil
}
