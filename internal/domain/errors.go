package domain

import "fmt"

// Error types for consistent error handling across the KYC engine.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
	Message  string
}

func (e *ErrNotFound) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrExternalService indicates a failure in an external service call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrInvalidSession indicates a registration session that is missing,
// consumed, expired or not yet verified for the requested step.
type ErrInvalidSession struct {
	Reason string
}

func (e *ErrInvalidSession) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return "Session is not valid"
}

// ErrExpired indicates an OTP or session past its validity window.
type ErrExpired struct {
	Resource string
}

func (e *ErrExpired) Error() string {
	return fmt.Sprintf("%s expired, request a new one", e.Resource)
}

// ErrTooManyAttempts indicates the OTP attempt ceiling was reached.
type ErrTooManyAttempts struct {
	Max int
}

func (e *ErrTooManyAttempts) Error() string {
	return "Maximum attempts reached, please request a new OTP"
}

// ErrInvalidCode indicates an OTP mismatch. The caller may retry.
type ErrInvalidCode struct{}

func (e *ErrInvalidCode) Error() string {
	return "Invalid OTP"
}

// Conflict codes carried by ErrConflict.
const (
	ConflictPhoneRegistered    = "phone_already_registered"
	ConflictEmailRegistered    = "email_already_registered"
	ConflictEmailOtherUser     = "email_conflict"
	ConflictDuplicateCIN       = "duplicate_cin"
	ConflictDuplicateGSTIN     = "duplicate_gstin"
	ConflictDuplicatePAN       = "duplicate_pan"
	ConflictDuplicateSignatory = "duplicate_signatory_pan"
	ConflictSuperAdminExists   = "super_admin_exists"
	ConflictEmailTaken         = "email_taken"
)

// ErrConflict indicates a business-level uniqueness violation.
type ErrConflict struct {
	Code    string
	Message string
}

func (e *ErrConflict) Error() string {
	return e.Message
}

// ErrDuplicate is returned by stores when a unique constraint rejects a write.
type ErrDuplicate struct {
	Key string
}

func (e *ErrDuplicate) Error() string {
	return fmt.Sprintf("duplicate record: %s", e.Key)
}

// ErrNameMismatch indicates submitted identity data does not corroborate
// the claimed name.
type ErrNameMismatch struct {
	Message string
}

func (e *ErrNameMismatch) Error() string {
	return e.Message
}

// ErrForbidden indicates the user lacks permission for the operation.
type ErrForbidden struct {
	Action string
}

func (e *ErrForbidden) Error() string {
	return e.Action
}

// ErrUnauthorized indicates invalid credentials, token or ownership.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrInvalidStatus indicates an out-of-range status in an approval call.
type ErrInvalidStatus struct {
	Status int
}

func (e *ErrInvalidStatus) Error() string {
	return "Invalid status value"
}

// ErrUnsupportedRole indicates an approval path that does not exist for the role.
type ErrUnsupportedRole struct {
	Role string
}

func (e *ErrUnsupportedRole) Error() string {
	return "Invalid role value"
}

// ErrInternal is an unexpected failure. Message is already sanitized for the
// environment; Err keeps the cause for logs.
type ErrInternal struct {
	Message string
	Err     error
}

func (e *ErrInternal) Error() string {
	return e.Message
}

func (e *ErrInternal) Unwrap() error {
	return e.Err
}
