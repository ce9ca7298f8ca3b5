package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/invite"
)

type invitationApi struct {
	svc *invite.Service
}

func registerInvitationAPI(g *echo.Group, opts *Options) {
	api := invitationApi{svc: opts.InviteSvc}

	// un-authed: the token itself is the proof
	g.GET("/invitations/validate", api.validate)
}

// validate checks an invitation token and returns the pending invitation so
// the registration form can be prefilled.
func (api *invitationApi) validate(ctx echo.Context) error {
	token := ctx.QueryParam("token")
	if token == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "token", Error: "this field is required"})
	}

	inv, err := api.svc.Validate(ctx.Request().Context(), token)
	if err != nil {
		switch errors.Cause(err) {
		case invite.ErrNotFound:
			return errHttpNotFound
		case invite.ErrExpired, invite.ErrInvalid:
			return core.NewValidationError(errors.Cause(err))
		}
		return errors.Wrap(err, "validating invitation")
	}
	return ctx.JSON(http.StatusOK, inv)
}
