package room

import "errors"

// ErrNotFound means the room id is unknown or the record has expired.
var ErrNotFound = errors.New("room not found")

// ErrConflict means optimistic locking lost the race: retries were exhausted,
// or the single sort attempt observed a version change. The caller should
// re-fetch room state and re-issue the whole operation.
var ErrConflict = errors.New("room was modified concurrently, please try again")

// ErrUnauthorized means the chair gate rejected the supplied secret.
var ErrUnauthorized = errors.New("invalid chair secret")

// ValidationError rejects a request that violates the state machine or a data
// invariant. It is never retried and is surfaced verbatim to the caller.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErr(reason string) error {
	return &ValidationError{Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
