package core

import "errors"

// Error taxonomy. Handlers map these onto the response codes; services wrap
// them with context via fmt.Errorf("...: %w", err).
var (
	// ErrNotConfigured - server/database pair is not in the registry.
	ErrNotConfigured = errors.New("server or database not configured")

	// ErrCredentialNotFound - the user has no cached database credential.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrSessionExpired - the cached credential outlived its TTL.
	ErrSessionExpired = errors.New("session expired")

	// ErrPoolExhausted - pool at capacity and every entry has connections
	// checked out. Transient; callers may retry.
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrNotFound - workspace or query record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden - caller is not the owner or not an admin.
	ErrForbidden = errors.New("forbidden")

	// ErrNotApproved - execution attempted on a record that is not in an
	// executable approval state.
	ErrNotApproved = errors.New("query not approved for execution")

	// ErrInvalidTransition - a status compare-and-set lost the race or the
	// record was not in the expected state.
	ErrInvalidTransition = errors.New("invalid status transition")
)
