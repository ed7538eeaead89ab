package sso

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/ssobridge/pkg/cache"
	"github.com/platinummonkey/ssobridge/pkg/observability"
)

const (
	sessionKeyPrefix = "sso:session:"

	// SessionCookieName is the cookie carrying the session identifier.
	SessionCookieName = "ssobridge_session"

	// DefaultSessionTTL bounds how long an accepted login stays valid
	// before the user must present a fresh token.
	DefaultSessionTTL = 12 * time.Hour
)

// ErrSessionNotFound is returned when a session id resolves to nothing,
// either because it never existed or because it expired.
var ErrSessionNotFound = errors.New("session not found")

// Session is an established local session minted from an accepted login.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionManager stores sessions in the TTL store. Session ids are random
// UUIDs; the store's expiry is the single source of truth for session
// lifetime.
type SessionManager struct {
	store   *cache.Client
	ttl     time.Duration
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

// NewSessionManager builds a manager with the given session lifetime.
// A non-positive ttl falls back to DefaultSessionTTL.
func NewSessionManager(store *cache.Client, ttl time.Duration, logger *observability.Logger, metrics *observability.Metrics) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionManager{
		store:   store,
		ttl:     ttl,
		logger:  logger.Named("session"),
		metrics: metrics,
		now:     time.Now,
	}
}

// Create mints a session for user.
func (m *SessionManager) Create(ctx context.Context, user *LocalUser) (*Session, error) {
	now := m.now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, sessionKey(session.ID), string(data), m.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	m.metrics.SessionsCreatedTotal.Inc()
	m.metrics.SessionsActive.Inc()
	m.logger.WithFields(map[string]interface{}{
		"user_id": user.ID,
	}).Info("session created")
	return session, nil
}

// Get returns the session for id, or ErrSessionNotFound.
func (m *SessionManager) Get(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	data, err := m.store.Get(ctx, sessionKey(id))
	if err != nil {
		if cache.IsNotFound(err) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var session Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Delete removes the session for id. Deleting a missing session is not an
// error.
func (m *SessionManager) Delete(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Del(ctx, sessionKey(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	m.metrics.SessionsActive.Dec()
	return nil
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// SetSessionCookie writes the session cookie on w. The cookie is HttpOnly
// and Secure; the token endpoint only accepts TLS requests, so there is no
// plaintext flow to support.
func SetSessionCookie(w http.ResponseWriter, session *Session, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on w.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
