// Package mockauth is a clearly-labeled development identity provider.
// It signs and verifies its own HS256 tokens; it must never be selected
// in a production deployment.
package mockauth

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
)

// Claims carries the mock identity inside the signed token.
type Claims struct {
	jwt.StandardClaims
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

type Provider struct {
	secret        []byte
	ttl           time.Duration
	loginURL      string
	adminLoginURL string
	signOutURL    string

	nowFunc func() time.Time // mockable
}

var _ auth.Provider = (*Provider)(nil)

func NewProvider(conf *core.Config) *Provider {
	return &Provider{
		secret:        []byte(conf.SecretKey),
		ttl:           conf.Auth.SessionTTL,
		loginURL:      conf.Auth.LoginURL,
		adminLoginURL: conf.Auth.AdminLoginURL,
		signOutURL:    conf.Auth.SignOutURL,
		nowFunc:       time.Now,
	}
}

func (p *Provider) Name() string { return "mock" }

func (p *Provider) Resolve(_ context.Context, cred auth.RawCredential) (auth.Identity, string, error) {
	token := cred.Token()
	if token == "" {
		return auth.Identity{}, "", auth.NewCredentialError(auth.CredentialMissing, nil)
	}

	claims := new(Claims)
	if _, err := jwt.ParseWithClaims(token, claims, p.keyFunc); err != nil {
		return auth.Identity{}, "", p.mapError(err)
	}

	id := auth.Identity{
		SubjectID:     claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		AvatarURL:     claims.Picture,
		EmailVerified: claims.EmailVerified,
	}
	return id, token, nil
}

// Refresh re-issues a token with a fresh expiry for a still-valid credential.
func (p *Provider) Refresh(ctx context.Context, cred auth.RawCredential) (string, error) {
	id, _, err := p.Resolve(ctx, cred)
	if err != nil {
		return "", err
	}
	return p.IssueToken(id)
}

func (p *Provider) SignInURL(surface auth.Surface) string {
	if surface == auth.SurfaceAdmin {
		return p.adminLoginURL
	}
	return p.loginURL
}

func (p *Provider) SignOutURL() string { return p.signOutURL }

// IssueToken signs a token for a dev identity. Used by the dev sign-in
// endpoint and by tests.
func (p *Provider) IssueToken(id auth.Identity) (string, error) {
	now := p.nowFunc()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   id.SubjectID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(p.ttl).Unix(),
		},
		Name:          id.Name,
		Email:         id.Email,
		Picture:       id.AvatarURL,
		EmailVerified: id.EmailVerified,
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// IssueExpiredToken signs an already-expired token. Test helper.
func (p *Provider) IssueExpiredToken(id auth.Identity) (string, error) {
	orig := p.nowFunc
	p.nowFunc = func() time.Time { return time.Now().Add(-2 * p.ttl) }
	defer func() { p.nowFunc = orig }()
	return p.IssueToken(id)
}

func (p *Provider) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method %q", token.Header["alg"])
	}
	return p.secret, nil
}

func (p *Provider) mapError(err error) error {
	if verr, ok := err.(*jwt.ValidationError); ok {
		if verr.Errors&jwt.ValidationErrorExpired != 0 {
			return auth.NewCredentialError(auth.CredentialExpired, err)
		}
	}
	return auth.NewCredentialError(auth.CredentialMalformed, err)
}
