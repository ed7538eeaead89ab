package sso

import (
	"net/http"
	"net/url"
	"strings"
)

// AuthRequest is the slice of an incoming HTTP request the login pipeline
// inspects. Extracting it up front keeps the pipeline testable without
// synthesizing full *http.Request values in every test.
type AuthRequest struct {
	Method   string
	Secure   bool
	Host     string
	Query    url.Values
	HasBody  bool
	ClientIP string
}

// AuthRequestFromHTTP extracts an AuthRequest from r. TLS is recognized
// either directly or via the X-Forwarded-Proto header a terminating proxy
// sets.
func AuthRequestFromHTTP(r *http.Request, addr ClientAddressResolver) *AuthRequest {
	secure := r.TLS != nil
	if !secure {
		secure = strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	}
	return &AuthRequest{
		Method:   r.Method,
		Secure:   secure,
		Host:     r.Host,
		Query:    r.URL.Query(),
		HasBody:  r.ContentLength != 0,
		ClientIP: addr.Resolve(r),
	}
}

// Token returns the presented token, if any.
func (r *AuthRequest) Token() string {
	return r.Query.Get("token")
}

// RequestGate decides whether a request is even eligible for token login.
// Ineligible requests are refused before any token material is touched.
type RequestGate struct{}

// Check returns nil for eligible requests. A request is eligible when it is
// a GET over TLS whose only query parameter is the token and which carries
// no body. Anything else on the request line is a sign the token
// endpoint is being driven in a way it was never meant to be.
func (RequestGate) Check(req *AuthRequest) *Rejection {
	if req.Method != http.MethodGet {
		return rejectWith(RejectIneligibleRequest, "token login requires a GET request")
	}
	if !req.Secure {
		return rejectWith(RejectIneligibleRequest, "token login requires a TLS connection")
	}
	for param := range req.Query {
		if param != "token" {
			return rejectWith(RejectIneligibleRequest, "unexpected query parameter on token login request")
		}
	}
	if req.HasBody {
		return rejectWith(RejectIneligibleRequest, "token login request must not carry a body")
	}
	return nil
}
