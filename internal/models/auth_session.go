package models

import "time"

// AuthSession is the identity provider's view of a signed-in client.
type AuthSession struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         *User     `json:"user"`
}

// Expired reports whether the access token is past its expiry, with leeway.
func (s *AuthSession) Expired(now time.Time, leeway time.Duration) bool {
	if s == nil || s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(leeway).Before(s.ExpiresAt)
}

type SessionEventType string

const (
	EventInitialSession SessionEventType = "INITIAL_SESSION"
	EventSignedIn       SessionEventType = "SIGNED_IN"
	EventSignedOut      SessionEventType = "SIGNED_OUT"
	EventTokenRefreshed SessionEventType = "TOKEN_REFRESHED"
	EventUserUpdated    SessionEventType = "USER_UPDATED"
)

// SessionEvent is delivered by the identity provider on every session change.
// Session is nil after sign-out.
type SessionEvent struct {
	Type    SessionEventType `json:"type"`
	Session *AuthSession     `json:"session,omitempty"`
}
