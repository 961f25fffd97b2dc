package usecase

import "errors"

var (
	// ErrNotAuthorized is returned when a non-privileged actor invokes a
	// privileged operation. No side effects have happened.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrNoTarget is returned when a manual moderation command has no
	// resolvable target user. No mutation has happened.
	ErrNoTarget = errors.New("could not determine target user")

	// ErrUnknownFile is returned for a file key not in the registry
	ErrUnknownFile = errors.New("unknown file key")
)
