package model

import "errors"

// Store and access errors.
var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("concurrent modification, re-read and retry")
	ErrNotMember = errors.New("not a project member")
)
