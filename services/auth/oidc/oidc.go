// Package oidcauth adapts any OIDC issuer (Auth0 in the original
// deployment) as an identity provider.
package oidcauth

import (
	"context"
	"net"
	"net/url"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
)

type Provider struct {
	verifier      *oidc.IDTokenVerifier
	oauth         oauth2.Config
	loginURL      string
	adminLoginURL string
	signOutURL    string
}

var _ auth.Provider = (*Provider)(nil)

func NewProvider(ctx context.Context, conf *core.Config) (*Provider, error) {
	oc := conf.Auth.OIDC
	if oc.IssuerURL == "" {
		return nil, errors.New("oidc issuer url is not configured")
	}

	issuer, err := oidc.NewProvider(ctx, oc.IssuerURL)
	if err != nil {
		return nil, errors.Wrap(err, "discovering oidc issuer")
	}

	return &Provider{
		verifier: issuer.Verifier(&oidc.Config{ClientID: oc.ClientID}),
		oauth: oauth2.Config{
			ClientID:     oc.ClientID,
			ClientSecret: oc.ClientSecret,
			RedirectURL:  oc.RedirectURL,
			Endpoint:     issuer.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		loginURL:      conf.Auth.LoginURL,
		adminLoginURL: conf.Auth.AdminLoginURL,
		signOutURL:    conf.Auth.SignOutURL,
	}, nil
}

func (p *Provider) Name() string { return "oidc" }

func (p *Provider) Resolve(ctx context.Context, cred auth.RawCredential) (auth.Identity, string, error) {
	if cred.Bearer == "" {
		return auth.Identity{}, "", auth.NewCredentialError(auth.CredentialMissing, nil)
	}

	idToken, err := p.verifier.Verify(ctx, cred.Bearer)
	if err != nil {
		return auth.Identity{}, "", p.mapError(ctx, err)
	}

	var claims struct {
		Email         string `json:"email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return auth.Identity{}, "", auth.NewCredentialError(auth.CredentialMalformed, err)
	}

	id := auth.Identity{
		SubjectID:     idToken.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		AvatarURL:     claims.Picture,
		EmailVerified: claims.EmailVerified,
	}
	return id, cred.Bearer, nil
}

// Refresh exchanges a refresh token (carried in the session cookie) for a
// fresh ID token; without one the current bearer is returned unchanged.
func (p *Provider) Refresh(ctx context.Context, cred auth.RawCredential) (string, error) {
	if cred.Cookie == "" {
		if cred.Bearer == "" {
			return "", auth.NewCredentialError(auth.CredentialMissing, nil)
		}
		return cred.Bearer, nil
	}

	src := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.Cookie})
	token, err := src.Token()
	if err != nil {
		return "", auth.NewCredentialError(auth.CredentialProviderUnavailable, err)
	}
	if idToken, ok := token.Extra("id_token").(string); ok && idToken != "" {
		return idToken, nil
	}
	return token.AccessToken, nil
}

func (p *Provider) SignInURL(surface auth.Surface) string {
	if surface == auth.SurfaceAdmin {
		return p.adminLoginURL
	}
	return p.loginURL
}

func (p *Provider) SignOutURL() string { return p.signOutURL }

// AuthCodeURL exposes the issuer's authorization endpoint for the login
// pages that drive the code flow.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

func (p *Provider) mapError(ctx context.Context, err error) error {
	var expired *oidc.TokenExpiredError
	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.As(err, &expired):
		return auth.NewCredentialError(auth.CredentialExpired, err)
	case ctx.Err() != nil, errors.As(err, &urlErr), errors.As(err, &netErr):
		// an unreachable issuer (JWKS fetch, discovery) is a transient
		// outage, not a bad credential
		return auth.NewCredentialError(auth.CredentialProviderUnavailable, err)
	default:
		return auth.NewCredentialError(auth.CredentialMalformed, err)
	}
}
