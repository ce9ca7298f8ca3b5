package auth

// Roles. Matched by exact membership: school_admin does NOT satisfy a
// teacher-only gate and vice versa.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleSchoolAdmin Role = "school_admin"
	RoleTeacher     Role = "teacher"
	RoleStudent     Role = "student"
)

var AllRoles = []Role{RoleAdmin, RoleSchoolAdmin, RoleTeacher, RoleStudent}

func ValidRole(r Role) bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type RoleSet []Role

func Roles(roles ...Role) RoleSet { return roles }

func (rs RoleSet) Contains(r Role) bool {
	for _, role := range rs {
		if r == role {
			return true
		}
	}
	return false
}

// Principal is the authorization-relevant projection of a user, sourced from
// the backend user record and keyed by the provider subject id. The gate only
// reads it; mutation happens through backend admin actions.
type Principal struct {
	SubjectID  string `json:"subject_id"`
	Role       Role   `json:"role"`
	SchoolID   int64  `json:"school_id,omitempty"` // zero for admins, exactly one school otherwise
	IsActive   bool   `json:"is_active"`
	IsApproved bool   `json:"is_approved"`
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Capability is the level of access a protected surface demands.
// The zero value is CapabilityFull: a surface must opt in to serve
// unapproved principals.
type Capability int

const (
	// CapabilityFull requires an approved principal.
	CapabilityFull Capability = iota
	// CapabilityReadOnly is the reduced set unapproved principals keep
	// (read-only/profile surfaces).
	CapabilityReadOnly
)

// Requirement is the declarative access rule of a protected surface.
type Requirement struct {
	// Roles is the exact set of acceptable roles. Empty means any role.
	Roles RoleSet
	// Scope confines non-admin principals to one school. Zero means unscoped.
	Scope int64
	Capability Capability
	// Surface picks the login entry point on RedirectToLogin.
	Surface Surface
}
