package repository

import "errors"

var (
	// ErrNotFound means the query ran and matched nothing.
	ErrNotFound = errors.New("record not found")
	// ErrStoreUnavailable wraps connection and transport failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)
