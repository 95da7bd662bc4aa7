package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidArgument indicates a malformed create or update payload.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrAlreadyAssigned occurs when a role is already linked to a user.
	ErrAlreadyAssigned = errors.New("role already assigned")
	// ErrUserExists occurs when the email or phone is already registered.
	ErrUserExists = errors.New("user already exists")
	// ErrForbidden indicates a missing or insufficient permission claim.
	ErrForbidden = errors.New("forbidden")
	// ErrTooManyAttempts occurs when the login throttle rejects a caller.
	ErrTooManyAttempts = errors.New("too many attempts")
)
