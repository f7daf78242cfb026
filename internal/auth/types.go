package auth

import "time"

// tokenResponse represents the token endpoint's JSON response
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// AccessToken is an issued bearer token. A refresh produces a new value; an
// AccessToken is never modified after issuance.
type AccessToken struct {
	Token           string
	TokenType       string
	LifetimeSeconds int
	ExpiresAt       time.Time
}

// ValidAt reports whether the token may still be used at now, keeping
// TokenExpiryBuffer in reserve.
func (t AccessToken) ValidAt(now time.Time) bool {
	return now.Before(t.ExpiresAt.Add(-TokenExpiryBuffer))
}

// TokenStatus describes the cached token without touching the network.
type TokenStatus struct {
	Present   bool          `json:"present"`
	Valid     bool          `json:"valid"`
	TokenType string        `json:"token_type,omitempty"`
	ExpiresAt time.Time     `json:"expires_at,omitzero"`
	ExpiresIn time.Duration `json:"expires_in_ns,omitempty"`
}
