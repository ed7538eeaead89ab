package sso

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned by identity stores when no user matches.
var ErrUserNotFound = errors.New("user not found")

// IdentityResolver maps a token subject to a local user. Implementations
// must match emails case-insensitively and ignore surrounding whitespace.
type IdentityResolver interface {
	ResolveByEmail(ctx context.Context, email string) (*LocalUser, error)
}
