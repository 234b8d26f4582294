package domain

import "errors"

// Domain errors
var (
	ErrTournamentNotFound      = errors.New("tournament not found")
	ErrSubmissionNotFound      = errors.New("submission not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrEntryNotFound           = errors.New("participation entry not found")
	ErrInvalidRule             = errors.New("invalid scoring rule")
	ErrInvalidStatusTransition = errors.New("invalid tournament status transition")
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrUnauthenticated         = errors.New("unauthenticated")
	ErrPrizesAlreadyAwarded    = errors.New("prizes already awarded")
	ErrNoPrizeConfiguration    = errors.New("tournament has no prize configuration")
	ErrInternalError           = errors.New("internal server error")
)

// ErrorKind is the machine-readable classification returned to callers
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not-found"
	KindInvalidArgument    ErrorKind = "invalid-argument"
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindFailedPrecondition ErrorKind = "failed-precondition"
	KindInternal           ErrorKind = "internal"
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrTournamentNotFound) ||
		errors.Is(err, ErrSubmissionNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// KindOf maps an error onto the kind reported by callable operations
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case IsNotFoundError(err):
		return KindNotFound
	case errors.Is(err, ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrPrizesAlreadyAwarded),
		errors.Is(err, ErrNoPrizeConfiguration),
		errors.Is(err, ErrInvalidRule),
		errors.Is(err, ErrInvalidStatusTransition):
		return KindFailedPrecondition
	default:
		return KindInternal
	}
}
