package services

import (
	"errors"

	"gorm.io/gorm"
)

// Error kinds. Every error returned by this package that callers can act on
// wraps exactly one of these.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrConflict         = errors.New("conflict")
	ErrGone             = errors.New("gone")
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Error carries a client-facing message and its kind.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }
func (e *Error) Unwrap() error { return e.kind }

func newError(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Invalid wraps a validation failure.
func Invalid(msg string) error {
	return newError(ErrInvalidInput, msg)
}

var (
	ErrBoardNotFound  = newError(ErrNotFound, "Board not found")
	ErrUserNotFound   = newError(ErrNotFound, "User not found")
	ErrRoleNotFound   = newError(ErrNotFound, "Board role not found")
	ErrListNotFound   = newError(ErrNotFound, "List not found")
	ErrCardNotFound   = newError(ErrNotFound, "Card not found")
	ErrMemberNotFound = newError(ErrNotFound, "Member not found")
	ErrExportNotFound = newError(ErrNotFound, "Export job not found")

	ErrNotBoardMember = newError(ErrPermissionDenied, "You are not a member of this board")
	ErrNotBoardOwner  = newError(ErrPermissionDenied, "Only the board owner can do this")
	ErrNotOwnerInvite = newError(ErrPermissionDenied, "Forbidden: Only board owner can invite members")
	ErrEmailMismatch  = newError(ErrPermissionDenied, "Email mismatch. Please login with invited email.")

	ErrAlreadyMember  = newError(ErrConflict, "Already a member of this board")
	ErrBoardNameTaken = newError(ErrConflict, "A board with this name already exists")
	ErrListNameTaken  = newError(ErrConflict, "A list with this name already exists on this board")
	ErrEmailTaken     = newError(ErrConflict, "Email already registered")
	ErrUsernameTaken  = newError(ErrConflict, "Username already taken")
	ErrLastOwner      = newError(ErrConflict, "A board must keep at least one owner")

	ErrInvitationInvalid = newError(ErrGone, "Invitation expired or invalid")
	ErrInvitationUsed    = newError(ErrGone, "Invitation token has been used or expired")

	ErrInvalidCredentials = newError(ErrUnauthorized, "Invalid email or password")
)

// notFound maps gorm's missing-row error to target and passes others through.
func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}
