package auth

import "time"

// Session is the time-bounded association between a verified credential and
// a cached Principal. It lives only for the request/navigation that created
// it; the credential's own storage (cookie or token holder) is the sole
// persistence.
type Session struct {
	Identity  Identity  `json:"identity"`
	Token     string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Principal Principal `json:"principal"`
}

func NewSession(id Identity, token string, ttl time.Duration, p Principal) Session {
	now := time.Now().UTC()
	return Session{
		Identity:  id,
		Token:     token,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		Principal: p,
	}
}

func (s Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Valid reports whether the session may still be used: credential unexpired
// AND principal active.
func (s Session) Valid(now time.Time) bool {
	return !s.Expired(now) && s.Principal.IsActive
}
