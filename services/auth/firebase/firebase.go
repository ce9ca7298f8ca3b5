// Package firebaseauth adapts Firebase Auth as an identity provider.
package firebaseauth

import (
	"context"
	"net"
	"net/url"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
)

type Provider struct {
	client        *fbauth.Client
	loginURL      string
	adminLoginURL string
	signOutURL    string
}

var _ auth.Provider = (*Provider)(nil)

func NewProvider(ctx context.Context, conf *core.Config) (*Provider, error) {
	fbConf := conf.Auth.Firebase
	if fbConf.ProjectID == "" {
		return nil, errors.New("firebase project id is not configured")
	}

	var opts []option.ClientOption
	switch {
	case fbConf.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(fbConf.CredentialsJSON)))
	case fbConf.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(fbConf.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: fbConf.ProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase auth client")
	}

	return &Provider{
		client:        client,
		loginURL:      conf.Auth.LoginURL,
		adminLoginURL: conf.Auth.AdminLoginURL,
		signOutURL:    conf.Auth.SignOutURL,
	}, nil
}

func (p *Provider) Name() string { return "firebase" }

func (p *Provider) Resolve(ctx context.Context, cred auth.RawCredential) (auth.Identity, string, error) {
	if cred.Bearer == "" {
		return auth.Identity{}, "", auth.NewCredentialError(auth.CredentialMissing, nil)
	}

	token, err := p.client.VerifyIDToken(ctx, cred.Bearer)
	if err != nil {
		return auth.Identity{}, "", p.mapError(ctx, err)
	}

	id := auth.Identity{SubjectID: token.UID}
	if email, ok := token.Claims["email"].(string); ok {
		id.Email = email
	}
	if name, ok := token.Claims["name"].(string); ok {
		id.Name = name
	}
	if picture, ok := token.Claims["picture"].(string); ok {
		id.AvatarURL = picture
	}
	if verified, ok := token.Claims["email_verified"].(bool); ok {
		id.EmailVerified = verified
	}
	return id, cred.Bearer, nil
}

// Refresh is a no-op: Firebase ID tokens are renewed by the client SDK,
// never server-side.
func (p *Provider) Refresh(_ context.Context, cred auth.RawCredential) (string, error) {
	if cred.Bearer == "" {
		return "", auth.NewCredentialError(auth.CredentialMissing, nil)
	}
	return cred.Bearer, nil
}

func (p *Provider) SignInURL(surface auth.Surface) string {
	if surface == auth.SurfaceAdmin {
		return p.adminLoginURL
	}
	return p.loginURL
}

func (p *Provider) SignOutURL() string { return p.signOutURL }

func (p *Provider) mapError(ctx context.Context, err error) error {
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case fbauth.IsIDTokenExpired(err):
		return auth.NewCredentialError(auth.CredentialExpired, err)
	case fbauth.IsIDTokenRevoked(err):
		return auth.NewCredentialError(auth.CredentialExpired, err)
	case ctx.Err() != nil, fbauth.IsCertificateFetchFailed(err),
		errors.As(err, &urlErr), errors.As(err, &netErr):
		// an unreachable cert endpoint is a transient outage, not a bad
		// credential; the caller must not read as logged out
		return auth.NewCredentialError(auth.CredentialProviderUnavailable, err)
	default:
		return auth.NewCredentialError(auth.CredentialMalformed, err)
	}
}
