package repo

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("concurrent modification")
	ErrEventCompleted  = errors.New("event already completed")
	ErrInvalidEvent    = errors.New("invalid event state")
	ErrNegativeBalance = errors.New("balance would become negative")
)
