package types

import "errors"

// Error taxonomy. Every failure a handler surfaces wraps exactly one of
// these sentinels; the centralized responder maps them to HTTP status codes.
var (
	// ErrNotAuthenticated is raised when no session token is present.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidToken is raised on a malformed, tampered or expired token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidCredentials is raised on a failed login.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden is raised when an authenticated caller is denied by policy.
	ErrForbidden = errors.New("unauthorized")
	// ErrNotFound indicates the target record or route does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique-field collision (duplicate email/mobile).
	ErrConflict = errors.New("already exists or conflict")
	// ErrValidation indicates an input-shape violation.
	ErrValidation = errors.New("validation failed")
	// ErrPageOutOfRange indicates a pagination offset beyond the collection.
	ErrPageOutOfRange = errors.New("page doesn't exist")
)
