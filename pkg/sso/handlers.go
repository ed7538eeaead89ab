package sso

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/ssobridge/pkg/audit"
	"github.com/platinummonkey/ssobridge/pkg/httputil"
	"github.com/platinummonkey/ssobridge/pkg/observability"
)

// Handlers exposes the bridge over HTTP.
type Handlers struct {
	auth     *Authenticator
	sessions *SessionManager
	trail    audit.Logger
	addr     ClientAddressResolver
	logger   *observability.Logger
}

// NewHandlers builds the HTTP surface.
func NewHandlers(auth *Authenticator, sessions *SessionManager, trail audit.Logger, logger *observability.Logger) *Handlers {
	return &Handlers{
		auth:     auth,
		sessions: sessions,
		trail:    trail,
		logger:   logger.Named("http"),
	}
}

// RegisterRoutes mounts the bridge endpoints on router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/sso/v1/login", h.handleLogin)
	router.HandleFunc("/sso/v1/logout", h.handleLogout).Methods(http.MethodGet, http.MethodPost)
	router.HandleFunc("/sso/v1/session", h.handleSession).Methods(http.MethodGet)
}

// handleLogin accepts every method on purpose; the eligibility gate inside
// the pipeline is what refuses non-GET requests, so they are rejected with
// the documented error body instead of a bare 405.
func (h *Handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req := AuthRequestFromHTTP(r, h.addr)

	accept, rejection, err := h.auth.Authenticate(ctx, req)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Error("login attempt failed")
		httputil.WriteInternalError(w)
		return
	}
	if rejection != nil {
		h.record(ctx, &audit.Event{
			Type:      audit.EventLoginRejected,
			ClientIP:  req.ClientIP,
			RequestID: observability.GetRequestID(ctx),
			Code:      string(rejection.Code),
			Message:   rejection.Message,
		})
		httputil.WriteErrorCode(w, rejection.StatusCode(), string(rejection.Code), rejection.Message)
		return
	}

	session, err := h.sessions.Create(ctx, accept.User)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Error("session creation failed")
		httputil.WriteInternalError(w)
		return
	}
	h.record(ctx, &audit.Event{
		Type:      audit.EventLoginAccepted,
		UserID:    &accept.User.ID,
		Email:     accept.User.Email,
		ClientIP:  req.ClientIP,
		RequestID: observability.GetRequestID(ctx),
	})
	SetSessionCookie(w, session, h.sessions.TTL())
	http.Redirect(w, r, accept.RedirectPath, http.StatusFound)
}

// record writes an audit event. The trail is best-effort relative to the
// login flow; a failed insert is logged but never turns into a user-facing
// error.
func (h *Handlers) record(ctx context.Context, event *audit.Event) {
	if h.trail == nil {
		return
	}
	if err := h.trail.Record(ctx, event); err != nil {
		observability.FromContext(ctx).WithError(err).Warn("audit record failed")
	}
}

func (h *Handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if session, err := h.sessions.Get(ctx, cookie.Value); err == nil {
			h.record(ctx, &audit.Event{
				Type:      audit.EventLogout,
				UserID:    &session.UserID,
				Email:     session.Email,
				RequestID: observability.GetRequestID(ctx),
			})
		}
		if err := h.sessions.Delete(ctx, cookie.Value); err != nil {
			observability.FromContext(ctx).WithError(err).Warn("session deletion failed")
		}
	}
	ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusFound)
}

// sessionInfo is the introspection response for an authenticated session.
type sessionInfo struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handlers) handleSession(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		httputil.WriteErrorCode(w, http.StatusUnauthorized, "no_session", "no active session")
		return
	}
	session, err := h.sessions.Get(r.Context(), cookie.Value)
	if err == ErrSessionNotFound {
		httputil.WriteErrorCode(w, http.StatusUnauthorized, "no_session", "no active session")
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("session lookup failed")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sessionInfo{
		UserID:    session.UserID,
		Email:     session.Email,
		Username:  session.Username,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
}
