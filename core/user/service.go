package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
)

var (
	// errors
	ErrNotFound    = errors.New("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id int64) (User, error)
		GetUserBySubject(ctx context.Context, subjectID string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// FilterUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on User.Name or User.Email.
		FilterUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		// CountUsersByRole tallies users per role; schoolID 0 counts across
		// all schools.
		CountUsersByRole(ctx context.Context, schoolID int64) (map[auth.Role]int, error)
		UpdateUserRole(ctx context.Context, id int64, role auth.Role, schoolID int64) (User, error)
		UpdateUserStatus(ctx context.Context, id int64, isActive, isApproved *bool) (User, error)
		SetLastLogin(ctx context.Context, id int64, at time.Time) error
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

var _ auth.Directory = (*Service)(nil)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// GetBySubject implements auth.Directory.
func (svc *Service) GetBySubject(ctx context.Context, subjectID string) (auth.Principal, error) {
	usr, err := svc.repo.GetUserBySubject(ctx, subjectID)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return auth.Principal{}, auth.ErrSubjectNotFound
		}
		return auth.Principal{}, errors.Wrap(err, "finding user by subject")
	}
	return usr.Principal(), nil
}

// Provision implements auth.Directory: first-login provisioning with the
// default role (student) and IsApproved=false. The hint role is honored only
// for non-admin roles; nobody provisions themselves an admin.
func (svc *Service) Provision(ctx context.Context, id auth.Identity, hint auth.ProvisionHint) (auth.Principal, error) {
	role := auth.RoleStudent
	if auth.ValidRole(hint.Role) && hint.Role != auth.RoleAdmin {
		role = hint.Role
	}

	now := time.Now().UTC()
	usr := User{
		SubjectID:  id.SubjectID,
		Name:       core.CleanString(id.Name),
		Email:      core.CleanString(id.Email, true /* lower */),
		AvatarURL:  id.AvatarURL,
		Role:       role,
		SchoolID:   hint.SchoolID,
		IsActive:   true,
		IsApproved: false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return auth.Principal{}, auth.NewProvisioningError(auth.ProvisioningValidationFailed, err)
		}
		return auth.Principal{}, auth.NewProvisioningError(auth.ProvisioningBackendUnavailable, err)
	}
	svc.logger.Info("provisioned first-login user", usr.Principal())
	return usr.Principal(), nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		SubjectID:  nu.SubjectID,
		Name:       nu.Name,
		Email:      nu.Email,
		AvatarURL:  nu.AvatarURL,
		Role:       nu.Role,
		SchoolID:   nu.SchoolID,
		IsActive:   true,
		IsApproved: true, // admin-created users skip the approval queue
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return User{}, err
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id int64) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetBySubjectID(ctx context.Context, subjectID string) (User, error) {
	return svc.repo.GetUserBySubject(ctx, subjectID)
}

func (svc *Service) Filter(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.FilterUsers(ctx, filter)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Stats tallies users per role, scoped to one school when schoolID is set.
func (svc *Service) Stats(ctx context.Context, schoolID int64) (Stats, error) {
	byRole, err := svc.repo.CountUsersByRole(ctx, schoolID)
	if err != nil {
		return Stats{}, errors.Wrap(err, "counting users by role")
	}
	stats := Stats{ByRole: byRole}
	for _, n := range byRole {
		stats.Total += n
	}
	return stats, nil
}

// SetRole changes a user's role and school binding. The caller must
// invalidate the gate's cached principal afterwards.
func (svc *Service) SetRole(ctx context.Context, id int64, ur UpdateRole) (User, error) {
	schoolID := ur.SchoolID
	if ur.Role == auth.RoleAdmin {
		schoolID = 0
	}
	return svc.repo.UpdateUserRole(ctx, id, ur.Role, schoolID)
}

// SetStatus toggles the active/approved flags. The caller must invalidate
// the gate's cached principal afterwards.
func (svc *Service) SetStatus(ctx context.Context, id int64, us UpdateStatus) (User, error) {
	return svc.repo.UpdateUserStatus(ctx, id, us.IsActive, us.IsApproved)
}

func (svc *Service) SetLastLogin(ctx context.Context, id int64) error {
	return svc.repo.SetLastLogin(ctx, id, time.Now().UTC())
}
