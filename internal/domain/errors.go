package domain

import "errors"

// Storage-level errors shared by every repository implementation.
var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrVersionConflict = errors.New("record was modified concurrently")
	ErrStaleStatus     = errors.New("record is no longer in the expected status")
)
