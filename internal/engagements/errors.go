package engagements

import "errors"

// Business errors surfaced verbatim to the caller. Transient storage
// conflicts are retried internally and only surface as ErrConflict once
// retries are exhausted.
var (
	ErrInvalidState       = errors.New("transition not legal from current stage status")
	ErrNoCreditsAvailable = errors.New("revision credit pool exhausted")
	ErrDuplicateClaim     = errors.New("an outstanding payment claim already exists")
	ErrAlreadyVerified    = errors.New("claim already verified")
	ErrAlreadyRejected    = errors.New("claim already rejected")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("actor lacks role for this action")
	ErrConflict           = errors.New("storage conflict, retry the request")
)
