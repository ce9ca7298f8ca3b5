package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
)

// User is the backend user record, keyed by the identity provider's
// subject id. The auth gate only ever reads its Principal projection.
type User struct {
	ID          int64     `json:"id" db:"id"`
	SubjectID   string    `json:"subject_id" db:"subject_id"`
	Name        string    `json:"name" db:"name"`
	Email       string    `json:"email" db:"email"`
	AvatarURL   string    `json:"avatar_url,omitempty" db:"avatar_url"`
	Role        auth.Role `json:"role" db:"role"`
	SchoolID    int64     `json:"school_id,omitempty" db:"school_id"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	IsApproved  bool      `json:"is_approved" db:"is_approved"`
	LastLoginAt time.Time `json:"last_login_at,omitempty" db:"last_login_at"` // UTC
	CreatedAt   time.Time `json:"created_at" db:"created_at"`                 // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`                 // UTC
}

// Principal is the authorization-relevant projection handed to the gate.
func (u User) Principal() auth.Principal {
	return auth.Principal{
		SubjectID:  u.SubjectID,
		Role:       u.Role,
		SchoolID:   u.SchoolID,
		IsActive:   u.IsActive,
		IsApproved: u.IsApproved,
	}
}

// NewUser contains information needed for an admin to create a User directly.
type NewUser struct {
	SubjectID string    `json:"subject_id" validate:"required"`
	Name      string    `json:"name" validate:"required"`
	Email     string    `json:"email" validate:"required,email"`
	AvatarURL string    `json:"avatar_url" validate:"omitempty,url"`
	Role      auth.Role `json:"role" validate:"required,role"`
	SchoolID  int64     `json:"school_id" validate:"required_unless=Role admin"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return checkRoleScope(nu.Role, nu.SchoolID)
}

// UpdateRole defines a role change request. Changing to or from admin also
// adjusts the school binding: admins carry none, everyone else exactly one.
type UpdateRole struct {
	Role     auth.Role `json:"role" validate:"required,role"`
	SchoolID int64     `json:"school_id" validate:"required_unless=Role admin"`
}

func (ur *UpdateRole) Validate(validate *validator.Validate) error {
	if err := validate.Struct(ur); err != nil {
		return err
	}
	return checkRoleScope(ur.Role, ur.SchoolID)
}

// UpdateStatus toggles the active/approved flags.
type UpdateStatus struct {
	IsActive   *bool `json:"is_active"`
	IsApproved *bool `json:"is_approved"`
}

func (us UpdateStatus) IsEmpty() bool {
	return us.IsActive == nil && us.IsApproved == nil
}

func checkRoleScope(role auth.Role, schoolID int64) error {
	if role == auth.RoleAdmin && schoolID != 0 {
		return core.NewValidationError(nil, core.FieldError{
			Field: "school_id", Error: "an admin carries no school",
		})
	}
	return nil
}

// Stats is the per-role head count backing the admin dashboard.
type Stats struct {
	Total  int               `json:"total"`
	ByRole map[auth.Role]int `json:"by_role"`
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	SchoolID    int64     `query:"school_id"`
	IsActive    *bool     `query:"is_active"`
	IsApproved  *bool     `query:"is_approved"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.SchoolID == 0 &&
		qf.IsActive == nil && qf.IsApproved == nil &&
		qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// RegisterRoleValidation registers the `role` validation tag.
func RegisterRoleValidation(validate *validator.Validate) {
	_ = validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return auth.ValidRole(auth.Role(fl.Field().String()))
	})
}
