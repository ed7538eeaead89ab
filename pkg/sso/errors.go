package sso

import "net/http"

// RejectCode identifies a terminal rejection state of the login pipeline.
// Codes are stable wire values returned to clients as machine-readable
// JSON, so existing values must never be renamed.
type RejectCode string

const (
	RejectIneligibleRequest RejectCode = "ineligible_request"
	RejectDisabled          RejectCode = "disabled"
	RejectRateLimited       RejectCode = "rate_limited"
	RejectMissingToken      RejectCode = "missing_token"
	RejectNotConfigured     RejectCode = "not_configured"
	RejectInvalidToken      RejectCode = "invalid_token"
	RejectInvalidJTI        RejectCode = "invalid_jti"
	RejectReplay            RejectCode = "replay"
	RejectInvalidClaims     RejectCode = "invalid_claims"
	RejectExpired           RejectCode = "expired"
	RejectInvalidIssuer     RejectCode = "invalid_iss"
	RejectInvalidAudience   RejectCode = "invalid_aud"
	RejectInvalidSiteID     RejectCode = "invalid_sid"
	RejectHostMismatch      RejectCode = "host_mismatch"
	RejectRedeemFailed      RejectCode = "redeem_failed"
	RejectInvalidSubject    RejectCode = "invalid_sub"
	RejectNoUser            RejectCode = "no_user"
	RejectForbidden         RejectCode = "forbidden"
)

// rejectStatus maps each reject code to the HTTP status it is served with.
var rejectStatus = map[RejectCode]int{
	RejectIneligibleRequest: http.StatusBadRequest,
	RejectDisabled:          http.StatusForbidden,
	RejectRateLimited:       http.StatusTooManyRequests,
	RejectMissingToken:      http.StatusBadRequest,
	RejectNotConfigured:     http.StatusInternalServerError,
	RejectInvalidToken:      http.StatusUnauthorized,
	RejectInvalidJTI:        http.StatusUnauthorized,
	RejectReplay:            http.StatusUnauthorized,
	RejectInvalidClaims:     http.StatusUnauthorized,
	RejectExpired:           http.StatusUnauthorized,
	RejectInvalidIssuer:     http.StatusUnauthorized,
	RejectInvalidAudience:   http.StatusUnauthorized,
	RejectInvalidSiteID:     http.StatusUnauthorized,
	RejectHostMismatch:      http.StatusUnauthorized,
	RejectRedeemFailed:      http.StatusUnauthorized,
	RejectInvalidSubject:    http.StatusUnauthorized,
	RejectNoUser:            http.StatusForbidden,
	RejectForbidden:         http.StatusForbidden,
}

var rejectMessages = map[RejectCode]string{
	RejectIneligibleRequest: "request is not eligible for token login",
	RejectDisabled:          "token login is disabled",
	RejectRateLimited:       "too many failed attempts, try again later",
	RejectMissingToken:      "no token was provided",
	RejectNotConfigured:     "token login is not configured",
	RejectInvalidToken:      "the token is malformed or its signature is invalid",
	RejectInvalidJTI:        "the token has no usable identifier",
	RejectReplay:            "the token has already been used",
	RejectInvalidClaims:     "the token claims are incomplete or inconsistent",
	RejectExpired:           "the token has expired",
	RejectInvalidIssuer:     "the token issuer is not recognized",
	RejectInvalidAudience:   "the token audience does not match this site",
	RejectInvalidSiteID:     "the token site binding does not match this site",
	RejectHostMismatch:      "the token was issued for a different host",
	RejectRedeemFailed:      "the token could not be redeemed with the identity application",
	RejectInvalidSubject:    "the token has no usable subject",
	RejectNoUser:            "no matching local user exists",
	RejectForbidden:         "the local user is not permitted to sign in this way",
}

// Rejection is the typed outcome of any terminal reject state. It carries
// the stable code and a human-readable message; it never carries the raw
// token or any secret material.
type Rejection struct {
	Code    RejectCode
	Message string
}

func (r *Rejection) Error() string {
	return string(r.Code) + ": " + r.Message
}

// StatusCode returns the HTTP status the rejection is served with.
// Unknown codes fall back to 401 so a missed mapping can never widen access.
func (r *Rejection) StatusCode() int {
	if status, ok := rejectStatus[r.Code]; ok {
		return status
	}
	return http.StatusUnauthorized
}

// reject builds a Rejection with the default message for the code.
func reject(code RejectCode) *Rejection {
	return &Rejection{Code: code, Message: rejectMessages[code]}
}

// rejectWith builds a Rejection with a custom message.
func rejectWith(code RejectCode, message string) *Rejection {
	return &Rejection{Code: code, Message: message}
}
