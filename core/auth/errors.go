package auth

import (
	"fmt"

	"github.com/pkg/errors"
)

// CredentialErrorKind classifies credential resolution failures.
type CredentialErrorKind int

const (
	CredentialMissing CredentialErrorKind = iota
	CredentialExpired
	CredentialMalformed
	CredentialProviderUnavailable
)

func (k CredentialErrorKind) String() string {
	switch k {
	case CredentialMissing:
		return "missing"
	case CredentialExpired:
		return "expired"
	case CredentialMalformed:
		return "malformed"
	case CredentialProviderUnavailable:
		return "provider unavailable"
	}
	return "unknown"
}

type CredentialError struct {
	Kind CredentialErrorKind
	Err  error
}

func NewCredentialError(kind CredentialErrorKind, err error) *CredentialError {
	return &CredentialError{Kind: kind, Err: err}
}

func (e *CredentialError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("credential %s", e.Kind)
	}
	return fmt.Sprintf("credential %s: %v", e.Kind, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// CredentialKind extracts the kind of a (possibly wrapped) CredentialError.
func CredentialKind(err error) (CredentialErrorKind, bool) {
	if cerr, ok := errors.Cause(err).(*CredentialError); ok {
		return cerr.Kind, true
	}
	return 0, false
}

// ProvisioningErrorKind classifies principal loading failures.
type ProvisioningErrorKind int

const (
	ProvisioningBackendUnavailable ProvisioningErrorKind = iota
	ProvisioningValidationFailed
)

func (k ProvisioningErrorKind) String() string {
	if k == ProvisioningValidationFailed {
		return "validation failed"
	}
	return "backend unavailable"
}

type ProvisioningError struct {
	Kind ProvisioningErrorKind
	Err  error
}

func NewProvisioningError(kind ProvisioningErrorKind, err error) *ProvisioningError {
	return &ProvisioningError{Kind: kind, Err: err}
}

func (e *ProvisioningError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("provisioning: %s", e.Kind)
	}
	return fmt.Sprintf("provisioning: %s: %v", e.Kind, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// ProvisioningKind extracts the kind of a (possibly wrapped) ProvisioningError.
func ProvisioningKind(err error) (ProvisioningErrorKind, bool) {
	if perr, ok := errors.Cause(err).(*ProvisioningError); ok {
		return perr.Kind, true
	}
	return 0, false
}

// AuthorizationReason classifies policy denials. Reasons are collapsed to a
// single Forbidden outcome for callers but kept distinguishable for audit logs.
type AuthorizationReason int

const (
	ReasonRoleMismatch AuthorizationReason = iota
	ReasonScopeMismatch
	ReasonInactive
	ReasonUnapproved
)

func (r AuthorizationReason) String() string {
	switch r {
	case ReasonRoleMismatch:
		return "role mismatch"
	case ReasonScopeMismatch:
		return "scope mismatch"
	case ReasonInactive:
		return "account inactive"
	case ReasonUnapproved:
		return "account not approved"
	}
	return "unknown"
}

type AuthorizationError struct {
	Reason    AuthorizationReason
	SubjectID string
	Role      Role
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization denied (%s): subject=%s role=%s", e.Reason, e.SubjectID, e.Role)
}
