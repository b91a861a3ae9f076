package app

import "errors"

var (
	// ErrSignInDisabled means no identity provider client ID is configured.
	ErrSignInDisabled = errors.New("sign-in is not configured")

	// ErrNotAuthorized means the asserted identity is not the author.
	ErrNotAuthorized = errors.New("access denied: this portal is for the author only")

	// ErrUnavailable means no generation credential is configured. Surfaced
	// only when an AI feature is actually used.
	ErrUnavailable = errors.New("AI features are not configured")

	// ErrGenerating rejects a description request while one is outstanding.
	ErrGenerating = errors.New("a description is already being generated")

	// ErrGeneration wraps upstream model failures.
	ErrGeneration = errors.New("generation failed")
)

// ValidationError carries the human-readable reason a draft was rejected.
// Validation failures are shown inline and are never fatal.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(reason string) error {
	return &ValidationError{Reason: reason}
}
