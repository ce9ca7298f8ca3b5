package echoapi

import (
	"net/http"
	"strconv"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
	"github.com/shulelabs/shule/core/invite"
	"github.com/shulelabs/shule/core/school"
	"github.com/shulelabs/shule/core/user"
)

type adminApi struct {
	userSvc    *user.Service
	schoolSvc  *school.Service
	inviteSvc  *invite.Service
	loader     *auth.PrincipalLoader
	validate   *validator.Validate
	translator ut.Translator
}

func registerAdminAPI(g *echo.Group, opts *Options) {
	api := adminApi{
		userSvc:    opts.UserSvc,
		schoolSvc:  opts.SchoolSvc,
		inviteSvc:  opts.InviteSvc,
		loader:     opts.Loader,
		validate:   opts.Validate,
		translator: opts.Translator,
	}

	// school_admins manage their own school; platform admins everything
	ag := g.Group("/admin", guardMiddleware(opts.Guard, auth.Requirement{
		Roles:   auth.Roles(auth.RoleAdmin, auth.RoleSchoolAdmin),
		Surface: auth.SurfaceAdmin,
	}))
	ag.GET("/users", api.queryUsers)
	ag.GET("/users/stats", api.userStats)
	ag.POST("/users", api.createUser)
	ag.PUT("/users/:id/role", api.updateUserRole)
	ag.PUT("/users/:id/status", api.updateUserStatus)
	ag.POST("/invitations", api.createInvitation)

	// tenant management is platform-admin only
	sg := g.Group("/admin/schools", guardMiddleware(opts.Guard, auth.Requirement{
		Roles:   auth.Roles(auth.RoleAdmin),
		Surface: auth.SurfaceAdmin,
	}))
	sg.GET("", api.querySchools)
	sg.POST("", api.createSchool)
}

// Handlers

func (api *adminApi) queryUsers(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	filter := new(user.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.User{})
	}
	filter.Clean()

	// school_admins only ever see their own school, whatever they ask for
	if !sess.Principal.IsAdmin() {
		filter.SchoolID = sess.Principal.SchoolID
	}

	users, err := api.userSvc.Filter(ctx.Request().Context(), *filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *adminApi) userStats(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	var schoolID int64
	if !sess.Principal.IsAdmin() {
		// school_admins only ever count their own school
		schoolID = sess.Principal.SchoolID
	} else if v := ctx.QueryParam("school_id"); v != "" {
		if schoolID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: "must be an integer"})
		}
	}

	stats, err := api.userSvc.Stats(ctx.Request().Context(), schoolID)
	if err != nil {
		return errors.Wrap(err, "counting users")
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *adminApi) createUser(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if aerr := api.checkManaged(sess.Principal, data.Role, data.SchoolID); aerr != nil {
		return aerr
	}

	usr, err := api.userSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *adminApi) updateUserRole(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := api.getManagedUser(ctx, sess.Principal)
	if err != nil {
		return err
	}

	var data user.UpdateRole
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateRole")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if aerr := api.checkManaged(sess.Principal, data.Role, data.SchoolID); aerr != nil {
		return aerr
	}

	usr, err = api.userSvc.SetRole(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user role")
	}

	// the gate must not keep serving the old role
	api.loader.Invalidate(ctx.Request().Context(), usr.SubjectID)
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) updateUserStatus(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	usr, err := api.getManagedUser(ctx, sess.Principal)
	if err != nil {
		return err
	}

	// Say No to Suicide! admins cannot deactivate themselves
	if usr.SubjectID == sess.Principal.SubjectID {
		return errHttpForbidden
	}

	var data user.UpdateStatus
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStatus")
	}
	if data.IsEmpty() {
		return core.NewValidationError(errors.New("nothing to update"))
	}

	usr, err = api.userSvc.SetStatus(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating user status")
	}

	// deactivations take effect on the very next evaluation
	api.loader.Invalidate(ctx.Request().Context(), usr.SubjectID)
	return ctx.JSON(http.StatusOK, usr)
}

func (api *adminApi) createInvitation(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	var data invite.NewInvitation
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvitation")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if aerr := api.checkManaged(sess.Principal, data.Role, data.SchoolID); aerr != nil {
		return aerr
	}
	if _, err := api.schoolSvc.GetByID(ctx.Request().Context(), data.SchoolID); err != nil {
		if errors.Cause(err) == school.ErrNotFound {
			return core.NewValidationError(nil, core.FieldError{Field: "school_id", Error: "school not found"})
		}
		return errors.Wrap(err, "finding school by ID")
	}
	if _, err := api.userSvc.GetByEmail(ctx.Request().Context(), data.Email); err == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "a user with this email already exists"})
	} else if errors.Cause(err) != user.ErrNotFound {
		return errors.Wrap(err, "finding user by email")
	}

	inv, err := api.inviteSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating invitation")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *adminApi) querySchools(ctx echo.Context) error {
	schools, err := api.schoolSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying schools")
	}
	if schools == nil {
		schools = []school.School{}
	}
	return ctx.JSON(http.StatusOK, schools)
}

func (api *adminApi) createSchool(ctx echo.Context) error {
	var data school.NewSchool
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchool")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sch, err := api.schoolSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school")
	}
	return ctx.JSON(http.StatusCreated, sch)
}

// getManagedUser loads the `:id` user if the caller may manage them; users
// outside a school_admin's school stay invisible.
func (api *adminApi) getManagedUser(ctx echo.Context, p auth.Principal) (user.User, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		return user.User{}, errHttpNotFound
	}

	usr, err := api.userSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errHttpNotFound
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	// platform admins (SchoolID 0) are not manageable by school_admins
	if !p.IsAdmin() && usr.SchoolID == 0 {
		return user.User{}, errHttpNotFound
	}
	if !auth.CanAccess(p, auth.Requirement{Scope: usr.SchoolID}) {
		return user.User{}, errHttpNotFound
	}
	return usr, nil
}

// checkManaged rejects role/school combinations the caller has no business
// assigning: school_admins stay in their school and nobody hands out the
// admin role but an admin.
func (api *adminApi) checkManaged(p auth.Principal, role auth.Role, schoolID int64) error {
	if p.IsAdmin() {
		return nil
	}
	if role == auth.RoleAdmin {
		return errHttpForbidden
	}
	if schoolID != p.SchoolID {
		return errHttpForbidden
	}
	return nil
}
