package auth

import (
	"context"
	"net/http"
	"strings"
)

// SessionCookieName is the cookie carrying the credential for
// cookie-based providers (the mock/dev adapter).
const SessionCookieName = "shule_session"

// Identity is the verified, provider-owned view of a caller.
// The gate treats it as read-only input; it never writes back to the provider.
type Identity struct {
	SubjectID     string `json:"subject_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// RawCredential is the unverified token material extracted from a request.
// At most one of the fields is consulted by a given provider adapter.
type RawCredential struct {
	Bearer string
	Cookie string
}

func (c RawCredential) IsZero() bool {
	return c.Bearer == "" && c.Cookie == ""
}

// Token returns whichever credential material is present, bearer first.
func (c RawCredential) Token() string {
	if c.Bearer != "" {
		return c.Bearer
	}
	return c.Cookie
}

// CredentialFromRequest extracts the raw credential from the
// Authorization header or the session cookie.
func CredentialFromRequest(r *http.Request) RawCredential {
	var cred RawCredential
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			cred.Bearer = strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		cred.Cookie = cookie.Value
	}
	return cred
}

// Surface identifies which login entry point an unauthenticated caller
// is sent to. Admin routes redirect to the admin login, everything else
// to the general one.
type Surface int

const (
	SurfaceGeneral Surface = iota
	SurfaceAdmin
)

func (s Surface) String() string {
	if s == SurfaceAdmin {
		return "admin"
	}
	return "general"
}

// Provider is an identity provider adapter. Exactly one provider is active
// per deployment; nothing past the Guard ever sees a concrete adapter.
type Provider interface {
	Name() string

	// Resolve verifies a raw credential and returns the Identity it carries
	// plus a fresh bearer token usable for subsequent API calls.
	// It fails with a *CredentialError; transient provider failures surface
	// as CredentialProviderUnavailable, never as "unauthenticated".
	Resolve(ctx context.Context, cred RawCredential) (Identity, string, error)

	// Refresh renews the credential where the provider supports server-side
	// renewal; otherwise it returns the current token unchanged.
	Refresh(ctx context.Context, cred RawCredential) (string, error)

	// SignInURL returns the login entry point for the given surface.
	SignInURL(surface Surface) string

	// SignOutURL returns where a signed-out caller should land.
	SignOutURL() string
}
