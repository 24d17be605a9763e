// Package apperrors holds the error kinds shared by every module. Callers
// wrap them with %w; the router and the plugin server map them to replies
// and gRPC status codes.
package apperrors

import "errors"

var (
	// ErrInvalidInput covers bad command arguments and rejected settings.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound covers unknown packs, stickers and shortcuts.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied is returned when a non-admin mutates packs.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrAlreadyLocked means another process holds the data directory.
	ErrAlreadyLocked = errors.New("data directory is locked by another process")
)
