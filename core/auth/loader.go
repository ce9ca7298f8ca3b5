package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
)

// ErrSubjectNotFound is returned by a Directory when no user record exists
// for a subject id yet.
var ErrSubjectNotFound = errors.New("subject not found")

type (
	// Directory is the backend user-record source, keyed by subject id.
	Directory interface {
		GetBySubject(ctx context.Context, subjectID string) (Principal, error)

		// Provision creates the backend record on first login with the
		// default role (student) and IsApproved=false, honoring hint fields
		// where valid.
		Provision(ctx context.Context, id Identity, hint ProvisionHint) (Principal, error)
	}

	// ProvisionHint carries the optional school/role supplied by the sync
	// request body for first-time provisioning.
	ProvisionHint struct {
		SchoolID int64
		Role     Role
	}

	// PrincipalLoader maps a verified Identity to a Principal, caching the
	// result for the lifetime of the session. The cache is the only shared
	// mutable resource of the gate: single writer (the loader), multiple
	// readers.
	PrincipalLoader struct {
		dir    Directory
		cache  PrincipalCache
		logger core.Logger

		timeout    time.Duration
		freshFor   time.Duration // cache hits newer than this skip the backend
		staleBound time.Duration // max age of a cached fallback on backend failure

		nowFunc func() time.Time // mockable
	}
)

func NewPrincipalLoader(dir Directory, cache PrincipalCache, logger core.Logger, conf *core.Config) *PrincipalLoader {
	return &PrincipalLoader{
		dir:        dir,
		cache:      cache,
		logger:     logger,
		timeout:    conf.Auth.SyncTimeout,
		freshFor:   conf.Auth.PrincipalFreshFor,
		staleBound: conf.Auth.PrincipalStaleBound,
		nowFunc:    time.Now,
	}
}

// Load resolves the Principal for an Identity. Fresh cache hits issue no
// backend call; on backend unavailability a cached Principal no older than
// the staleness bound is served instead, otherwise the loader fails closed.
func (l *PrincipalLoader) Load(ctx context.Context, id Identity, hint ProvisionHint) (Principal, error) {
	now := l.nowFunc().UTC()

	cached, hit, cerr := l.cache.Get(ctx, id.SubjectID)
	if cerr != nil {
		l.logger.Debug("principal cache read failed", cerr)
		hit = false
	}
	if hit && cached.Age(now) <= l.freshFor {
		return cached.Principal, nil
	}

	dctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	p, err := l.dir.GetBySubject(dctx, id.SubjectID)
	switch {
	case err == nil:
	case errors.Cause(err) == ErrSubjectNotFound:
		// first-login provisioning
		p, err = l.dir.Provision(dctx, id, hint)
		if err != nil {
			return Principal{}, l.classify(err, "provisioning principal")
		}
	default:
		if hit && cached.Age(now) <= l.staleBound {
			l.logger.Warn("directory unavailable, serving cached principal", err)
			return cached.Principal, nil
		}
		return Principal{}, l.classify(err, "loading principal")
	}

	if serr := l.cache.Set(ctx, CachedPrincipal{Principal: p, CachedAt: now}); serr != nil {
		l.logger.Debug("principal cache write failed", serr)
	}
	return p, nil
}

// Invalidate drops the cached Principal for a subject. Called on role/status
// changes and on sign-out.
func (l *PrincipalLoader) Invalidate(ctx context.Context, subjectID string) {
	if err := l.cache.Delete(ctx, subjectID); err != nil {
		l.logger.Debug("principal cache delete failed", err)
	}
}

func (l *PrincipalLoader) classify(err error, msg string) error {
	if perr, ok := errors.Cause(err).(*ProvisioningError); ok {
		return errors.Wrap(perr, msg)
	}
	if verr, ok := errors.Cause(err).(*core.ValidationError); ok {
		return errors.Wrap(NewProvisioningError(ProvisioningValidationFailed, verr), msg)
	}
	return errors.Wrap(NewProvisioningError(ProvisioningBackendUnavailable, err), msg)
}
