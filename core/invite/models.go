package invite

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulelabs/shule/core"
	"github.com/shulelabs/shule/core/auth"
)

// Invitation statuses
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRevoked  = "revoked"
)

// Invitation is an emailed, token-bound offer to join a school with a
// given role.
type Invitation struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Email     string    `json:"email" db:"email"`
	Role      auth.Role `json:"role" db:"role"`
	SchoolID  int64     `json:"school_id" db:"school_id"`
	Message   string    `json:"message,omitempty" db:"message"`
	Status    string    `json:"status" db:"status"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"` // UTC
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
}

// NewInvitation contains information needed to invite a user.
// Admin invitations are not a thing: invitees always land in a school.
type NewInvitation struct {
	Name     string    `json:"name" validate:"required"`
	Email    string    `json:"email" validate:"required,email"`
	Role     auth.Role `json:"role" validate:"required,role,ne=admin"`
	SchoolID int64     `json:"school_id" validate:"required"`
	Message  string    `json:"message"`
}

func (ni *NewInvitation) Validate(validate *validator.Validate) error {
	ni.Name = core.CleanString(ni.Name)
	ni.Email = core.CleanString(ni.Email, true /* lower */)
	ni.Message = core.CleanString(ni.Message)
	return validate.Struct(ni)
}
