package services

import "errors"

// Expected, recoverable outcomes of the tournament lifecycle. Handlers map
// these to status codes; none of them is ever fatal to the process.
var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("operator role required")
	ErrNotSignedIn      = errors.New("sign in required")
	ErrBanned           = errors.New("account is banned")
	ErrTournamentClosed = errors.New("tournament is no longer open for registration")
	ErrNotJoined        = errors.New("join the tournament before submitting credentials")
	ErrAlreadySubmitted = errors.New("credentials already under review")
	ErrInvalidInput     = errors.New("invalid input")
)
