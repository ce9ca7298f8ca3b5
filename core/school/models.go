package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/shulelabs/shule/core"
)

// School is a tenant: the scope boundary every non-admin principal is
// confined to.
type School struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Code        string    `json:"code" db:"code"`
	EmailDomain string    `json:"email_domain,omitempty" db:"email_domain"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,min=3,schoolcode"`
	EmailDomain string `json:"email_domain" validate:"omitempty,fqdn"`
}

func (ns *NewSchool) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	ns.EmailDomain = core.CleanString(ns.EmailDomain, true /* lower */)
	return validate.Struct(ns)
}
