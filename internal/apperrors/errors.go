package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrForbidden indicates the acting user lacks the role or permission for the operation.
// Permission denial is a normal outcome, not a defect.
var ErrForbidden = errors.New("forbidden")

// ErrNoTenantSet indicates a tenant-scoped operation ran without an account in
// the tenant context. This is a programming/configuration error and must be
// surfaced, never swallowed.
var ErrNoTenantSet = errors.New("no tenant set in context")

// ErrCrossTenantReference indicates an entity referenced another entity that
// belongs to a different account. The write is rejected before persistence.
var ErrCrossTenantReference = errors.New("cross-tenant reference violation")

// ErrDuplicateMembership indicates the (account, user) pair already has a membership.
var ErrDuplicateMembership = errors.New("user already has a membership in this account")

// ErrUserLimitExceeded indicates the account's type-derived member limit is reached.
var ErrUserLimitExceeded = errors.New("account user limit exceeded")

// ErrLastOwnerViolation indicates the operation would leave the account with
// zero active owners.
var ErrLastOwnerViolation = errors.New("account must retain at least one active owner")

// ErrInvitationExpired indicates the invitation is past its expiry.
var ErrInvitationExpired = errors.New("invitation has expired")

// ErrInvitationAlreadyAccepted indicates the invitation was already accepted.
var ErrInvitationAlreadyAccepted = errors.New("invitation already accepted")

// ErrInvitationWrongAcceptor indicates the accepting user does not match the
// invited identity.
var ErrInvitationWrongAcceptor = errors.New("invitation was issued to a different user")

// ErrInvitationNotPending indicates a lifecycle transition that is only valid
// from the pending state (resend, cancel).
var ErrInvitationNotPending = errors.New("invitation is not pending")

// ErrMigrationIntegrity indicates post-migration validation found inconsistent
// data. Fatal to the migration run; never silently continued.
var ErrMigrationIntegrity = errors.New("migration integrity check failed")
