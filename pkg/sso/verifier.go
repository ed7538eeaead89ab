package sso

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// tokenAlgorithm is the only signing algorithm ever accepted. The header
// value must match it byte for byte; there is no negotiation and no "none".
const tokenAlgorithm = "HS256"

// TokenVerifier checks the structural integrity and HMAC signature of
// presented tokens. It performs no claim validation; that happens only
// after the token's identifier has been burned.
type TokenVerifier struct{}

type tokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Verify parses token and checks its signature against each candidate
// secret in order, returning the decoded claims and the index of the secret
// that matched. Any structural or signature failure returns an
// invalid_token rejection; the caller can not distinguish a malformed token
// from a forged one, which is deliberate.
func (TokenVerifier) Verify(token string, secrets []string) (*Claims, int, *Rejection) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, -1, reject(RejectInvalidToken)
	}

	headerRaw, err := decodeSegment(parts[0])
	if err != nil {
		return nil, -1, reject(RejectInvalidToken)
	}
	payloadRaw, err := decodeSegment(parts[1])
	if err != nil {
		return nil, -1, reject(RejectInvalidToken)
	}
	signature, err := decodeSegment(parts[2])
	if err != nil {
		return nil, -1, reject(RejectInvalidToken)
	}

	var header tokenHeader
	if err := json.Unmarshal(headerRaw, &header); err != nil {
		return nil, -1, reject(RejectInvalidToken)
	}
	if header.Alg != tokenAlgorithm {
		return nil, -1, reject(RejectInvalidToken)
	}

	// The payload must be a JSON object, not a bare scalar or array.
	var object map[string]json.RawMessage
	if err := json.Unmarshal(payloadRaw, &object); err != nil {
		return nil, -1, reject(RejectInvalidToken)
	}
	var claims Claims
	if err := json.Unmarshal(payloadRaw, &claims); err != nil {
		return nil, -1, reject(RejectInvalidToken)
	}

	signingInput := []byte(parts[0] + "." + parts[1])
	for i, secret := range secrets {
		if secret == "" {
			continue
		}
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(signingInput)
		if hmac.Equal(signature, mac.Sum(nil)) {
			return &claims, i, nil
		}
	}
	return nil, -1, reject(RejectInvalidToken)
}

// decodeSegment decodes a base64url segment, tolerating missing padding.
func decodeSegment(s string) ([]byte, error) {
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.URLEncoding.DecodeString(s)
}

// secureCompare reports whether a and b are equal without leaking where
// they diverge. Both sides are hashed first so length differences do not
// short-circuit the comparison.
func secureCompare(a, b string) bool {
	ah := sha256.Sum256([]byte(a))
	bh := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ah[:], bh[:]) == 1
}
