package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
)

// State is a step of the per-request guard evaluation.
type State int

const (
	StateUnresolved State = iota
	StateResolving
	StatePrincipalLoading
	StateAuthorizing

	// terminal states
	StateAllowed
	StateRedirectToLogin
	StateForbidden
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolving:
		return "resolving"
	case StatePrincipalLoading:
		return "principal loading"
	case StateAuthorizing:
		return "authorizing"
	case StateAllowed:
		return "allowed"
	case StateRedirectToLogin:
		return "redirect to login"
	case StateForbidden:
		return "forbidden"
	case StateUnavailable:
		return "unavailable"
	}
	return "unknown"
}

func (s State) Terminal() bool { return s >= StateAllowed }

// Outcome is the terminal result of a guard evaluation.
type Outcome struct {
	State   State
	Session Session // set when Allowed

	// LoginURL is the surface-appropriate login entry point, set on
	// RedirectToLogin.
	LoginURL string

	// Reason is the audit-only denial detail, set on Forbidden. It is never
	// serialized to callers.
	Reason *AuthorizationError

	// Err is the underlying transient failure, set on Unavailable.
	Err error

	// Path records the states traversed, in order, ending in the terminal
	// state. Allowed is only ever reached through Authorizing.
	Path []State
}

func (o Outcome) Allowed() bool { return o.State == StateAllowed }

// Retryable reports whether the caller should be offered a retry rather
// than a login redirect.
func (o Outcome) Retryable() bool { return o.State == StateUnavailable }

// Guard orchestrates credential resolution, principal loading and the
// authorization policy into a single Allow/Redirect/Forbidden/Unavailable
// decision. It holds no per-request state; re-invoking it with the same
// credential and an unchanged principal yields the same outcome and issues
// no duplicate backend calls within the cache freshness window.
type Guard struct {
	provider Provider
	loader   *PrincipalLoader
	logger   core.Logger

	resolveTimeout time.Duration
	sessionTTL     time.Duration
}

func NewGuard(provider Provider, loader *PrincipalLoader, logger core.Logger, conf *core.Config) *Guard {
	return &Guard{
		provider:       provider,
		loader:         loader,
		logger:         logger,
		resolveTimeout: conf.Auth.ResolveTimeout,
		sessionTTL:     conf.Auth.SessionTTL,
	}
}

// Provider exposes the active identity provider adapter (for sign-in/out
// entry points); concrete adapter types never leave the gate.
func (g *Guard) Provider() Provider { return g.provider }

// Check runs the guard state machine for one request/navigation.
func (g *Guard) Check(ctx context.Context, cred RawCredential, req Requirement) Outcome {
	path := []State{StateUnresolved}

	if cred.IsZero() {
		// expected flow, not a failure: no error flash for the caller
		return g.redirect(append(path, StateRedirectToLogin), req.Surface)
	}

	path = append(path, StateResolving)
	rctx, cancel := context.WithTimeout(ctx, g.resolveTimeout)
	id, token, err := g.provider.Resolve(rctx, cred)
	if err != nil && cred.Cookie != "" {
		if kind, ok := CredentialKind(err); ok && kind == CredentialExpired {
			// cookie credentials may carry refresh material; one renewal
			// attempt within the same deadline, then back to login
			if fresh, rerr := g.provider.Refresh(rctx, cred); rerr == nil {
				id, token, err = g.provider.Resolve(rctx, RawCredential{Bearer: fresh})
			}
		}
	}
	cancel()
	if err != nil {
		if g.transient(rctx, err) {
			return g.unavailable(append(path, StateUnavailable), err)
		}
		return g.redirect(append(path, StateRedirectToLogin), req.Surface)
	}

	path = append(path, StatePrincipalLoading)
	p, err := g.loader.Load(ctx, id, ProvisionHint{})
	if err != nil {
		if ctx.Err() != nil {
			// navigation went away; do not apply the result
			return g.unavailable(append(path, StateUnavailable), ctx.Err())
		}
		// fails closed: no cached fallback means the caller is treated as
		// unauthenticated
		g.logger.Warn("principal load failed, failing closed", err)
		return g.redirect(append(path, StateRedirectToLogin), req.Surface)
	}

	path = append(path, StateAuthorizing)
	if aerr := Authorize(p, req); aerr != nil {
		// audit log keeps the denial reason; the caller only sees Forbidden
		g.logger.Warn("authorization denied", aerr, p)
		return Outcome{
			State:  StateForbidden,
			Reason: aerr,
			Path:   append(path, StateForbidden),
		}
	}

	return Outcome{
		State:   StateAllowed,
		Session: NewSession(id, token, g.sessionTTL, p),
		Path:    append(path, StateAllowed),
	}
}

// SignOut destroys the session-side state for a subject: the cached
// principal is dropped so the next evaluation hits the directory.
func (g *Guard) SignOut(ctx context.Context, subjectID string) string {
	g.loader.Invalidate(ctx, subjectID)
	return g.provider.SignOutURL()
}

func (g *Guard) transient(ctx context.Context, err error) bool {
	if kind, ok := CredentialKind(err); ok {
		return kind == CredentialProviderUnavailable
	}
	if errors.Cause(err) == context.DeadlineExceeded || ctx.Err() != nil {
		return true
	}
	return false
}

func (g *Guard) redirect(path []State, surface Surface) Outcome {
	return Outcome{
		State:    StateRedirectToLogin,
		LoginURL: g.provider.SignInURL(surface),
		Path:     path,
	}
}

func (g *Guard) unavailable(path []State, err error) Outcome {
	g.logger.Error("identity provider unavailable", err)
	return Outcome{State: StateUnavailable, Err: err, Path: path}
}
