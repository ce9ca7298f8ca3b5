package echoapi

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
	"github.com/shulelabs/shule/core/user"
)

var (
	contextSessionKey = "session"

	errSessNotFoundInCtx = errors.New("session object not found in echo.Context")
)

// guardMiddleware runs the auth gate for every request of a protected group.
// Allowed requests carry the resulting Session in the echo.Context; everything
// else is turned down before the handler runs.
func guardMiddleware(g *auth.Guard, req auth.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			cred := auth.CredentialFromRequest(ctx.Request())
			outcome := g.Check(ctx.Request().Context(), cred, req)
			if !outcome.Allowed() {
				return denialError(ctx, outcome)
			}
			ctx.Set(contextSessionKey, outcome.Session)
			return next(ctx)
		}
	}
}

// denialError maps a non-Allowed guard outcome onto the wire. A denied caller
// only ever learns which of the three buckets they are in; audit detail stays
// in the logs.
func denialError(ctx echo.Context, o auth.Outcome) error {
	switch o.State {
	case auth.StateRedirectToLogin:
		return echo.NewHTTPError(http.StatusUnauthorized, echo.Map{
			"error":     "authentication required",
			"login_url": o.LoginURL,
		})
	case auth.StateUnavailable:
		ctx.Response().Header().Set("Retry-After", "1")
		return errHttpUnavailable
	}
	return errHttpForbidden
}

func getContextSession(ctx echo.Context) (auth.Session, error) {
	if sess, ok := ctx.Get(contextSessionKey).(auth.Session); ok {
		return sess, nil
	}
	return auth.Session{}, errSessNotFoundInCtx
}

type authApi struct {
	guard   *auth.Guard
	loader  *auth.PrincipalLoader
	userSvc *user.Service
	conf    *core.Config
}

func registerAuthAPI(g *echo.Group, opts *Options) {
	api := authApi{
		guard:   opts.Guard,
		loader:  opts.Loader,
		userSvc: opts.UserSvc,
		conf:    opts.Conf,
	}

	ag := g.Group("/auth")
	ag.POST("/sync", api.sync)

	// any role; unapproved accounts still get their own session
	sg := ag.Group("", guardMiddleware(opts.Guard, auth.Requirement{Capability: auth.CapabilityReadOnly}))
	sg.GET("/session", api.session)
	sg.POST("/signout", api.signOut)

	// looking up someone else's record is a platform-admin affair
	lg := ag.Group("", guardMiddleware(opts.Guard, auth.Requirement{
		Roles:   auth.Roles(auth.RoleAdmin),
		Surface: auth.SurfaceAdmin,
	}))
	lg.GET("/sync", api.lookupSync)
}

// Handlers

// sync resolves the caller's credential and returns the backend user record,
// creating it on first login. The optional body hints at the school (and
// non-admin role) an invited user should land in.
func (api *authApi) sync(ctx echo.Context) error {
	var data SyncRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SyncRequest")
	}

	cred := auth.CredentialFromRequest(ctx.Request())
	if cred.IsZero() {
		return denialError(ctx, auth.Outcome{
			State:    auth.StateRedirectToLogin,
			LoginURL: api.guard.Provider().SignInURL(auth.SurfaceGeneral),
		})
	}

	rctx, cancel := context.WithTimeout(ctx.Request().Context(), api.conf.Auth.ResolveTimeout)
	id, token, err := api.guard.Provider().Resolve(rctx, cred)
	cancel()
	if err != nil {
		if kind, ok := auth.CredentialKind(err); ok && kind == auth.CredentialProviderUnavailable {
			ctx.Response().Header().Set("Retry-After", "1")
			return errHttpUnavailable
		}
		return denialError(ctx, auth.Outcome{
			State:    auth.StateRedirectToLogin,
			LoginURL: api.guard.Provider().SignInURL(auth.SurfaceGeneral),
		})
	}

	hint := auth.ProvisionHint{SchoolID: data.SchoolID, Role: auth.Role(data.Role)}
	p, err := api.loader.Load(ctx.Request().Context(), id, hint)
	if err != nil {
		if kind, ok := auth.ProvisioningKind(err); ok && kind == auth.ProvisioningValidationFailed {
			return core.NewValidationError(errors.Cause(err))
		}
		ctx.Response().Header().Set("Retry-After", "1")
		return errHttpUnavailable
	}

	usr, err := api.userSvc.GetBySubjectID(ctx.Request().Context(), p.SubjectID)
	if err != nil {
		return errors.Wrap(err, "finding user by subject")
	}
	if err = api.userSvc.SetLastLogin(ctx.Request().Context(), usr.ID); err != nil {
		ctx.Logger().Errorf("%+v", errors.Wrap(err, "setting lastLogin"))
	}

	sess := auth.NewSession(id, token, api.conf.Auth.SessionTTL, p)
	return ctx.JSON(http.StatusOK, SessionResponse{Session: sess, User: usr})
}

// lookupSync returns the user record bound to a provider subject id.
func (api *authApi) lookupSync(ctx echo.Context) error {
	uid := ctx.QueryParam("uid")
	if uid == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "uid", Error: "required"})
	}

	usr, err := api.userSvc.GetBySubjectID(ctx.Request().Context(), uid)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by subject")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// session returns the caller's current session and user record.
func (api *authApi) session(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := api.userSvc.GetBySubjectID(ctx.Request().Context(), sess.Principal.SubjectID)
	if err != nil {
		return errors.Wrap(err, "finding user by subject")
	}
	return ctx.JSON(http.StatusOK, SessionResponse{Session: sess, User: usr})
}

// signOut drops the cached principal and expires the session cookie. The
// credential itself lives with the provider; the response tells the frontend
// where to land.
func (api *authApi) signOut(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	url := api.guard.SignOut(ctx.Request().Context(), sess.Principal.SubjectID)
	ctx.SetCookie(&http.Cookie{
		Name:     auth.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
	})
	return ctx.JSON(http.StatusOK, SignOutResponse{SignOutURL: url})
}

type (
	SyncRequest struct {
		SchoolID int64  `json:"school_id"`
		Role     string `json:"role"`
	}

	SessionResponse struct {
		Session auth.Session `json:"session"`
		User    user.User    `json:"user"`
	}

	SignOutResponse struct {
		SignOutURL string `json:"sign_out_url"`
	}
)
