package auth

// Authorize applies the authorization policy: pure, deterministic, no I/O.
// It returns nil when the principal may access the surface, or an
// *AuthorizationError naming the audit reason otherwise. Callers above the
// Guard only ever see the collapsed Forbidden outcome.
func Authorize(p Principal, req Requirement) *AuthorizationError {
	deny := func(reason AuthorizationReason) *AuthorizationError {
		return &AuthorizationError{Reason: reason, SubjectID: p.SubjectID, Role: p.Role}
	}

	// an inactive principal is rejected regardless of role match
	if !p.IsActive {
		return deny(ReasonInactive)
	}
	if len(req.Roles) > 0 && !req.Roles.Contains(p.Role) {
		return deny(ReasonRoleMismatch)
	}
	// unapproved principals keep only the read-only capability set
	if !p.IsApproved && req.Capability != CapabilityReadOnly {
		return deny(ReasonUnapproved)
	}
	// admins bypass school scoping
	if req.Scope != 0 && !p.IsAdmin() && p.SchoolID != req.Scope {
		return deny(ReasonScopeMismatch)
	}
	return nil
}

// CanAccess reports whether the principal satisfies the requirement.
func CanAccess(p Principal, req Requirement) bool {
	return Authorize(p, req) == nil
}
