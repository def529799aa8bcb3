package shared

import "errors"

var (
	// ErrInvalidInput indicates a malformed username, password, or role.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a duplicate username.
	ErrConflict = errors.New("username already exists")
	// ErrNotFound indicates the resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadCredentials indicates a password mismatch.
	ErrBadCredentials = errors.New("bad credentials")
	// ErrStorage indicates the persistence layer is unavailable.
	ErrStorage = errors.New("storage failure")
)
