package repository

import "errors"

// Sentinel kinds for row store errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrUnknownDriver = errors.New("unknown database driver")
)
