package shared

import "errors"

var (
	// ErrNotFound indicates the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("username already registered")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidCredentials indicates login failure. The message is
	// deliberately generic so callers cannot tell which part was wrong.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInactiveAccount indicates the account exists but is disabled.
	ErrInactiveAccount = errors.New("user account is inactive")
	// ErrUnauthenticated indicates a missing, malformed or expired token.
	ErrUnauthenticated = errors.New("invalid or expired token")
	// ErrForbidden indicates the caller lacks a required role or permission.
	ErrForbidden = errors.New("insufficient privileges")
)
