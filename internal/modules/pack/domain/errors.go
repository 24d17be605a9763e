package domain

import (
	"errors"
	"fmt"

	apperrors "memestickers/internal/platform/errors"
)

var (
	ErrChecksumMismatch     = errors.New("checksum mismatch")
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
	ErrNoUpdateURL          = errors.New("no update url for pack")
	ErrPackNotFound         = fmt.Errorf("pack %w", apperrors.ErrNotFound)
	ErrHubStatus            = errors.New("hub returned non-success status")
	ErrUnsafeArchivePath    = errors.New("unsafe archive path")
	ErrArchiveTooLarge      = errors.New("pack archive too large")
	ErrNoManifest           = errors.New("no manifest loaded")
)

// ManifestError reports a missing or malformed metadata.json. It is always
// local to one pack.
type ManifestError struct {
	Pack string
	Err  error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("pack %s: %v", e.Pack, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// HubError reports a transport failure or an unusable response from the hub.
// Transient is set for failures worth retrying (network errors, 5xx).
type HubError struct {
	Op        string
	Status    int
	Transient bool
	Err       error
}

func (e *HubError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("hub %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("hub %s: %v", e.Op, e.Err)
}

func (e *HubError) Unwrap() error { return e.Err }

// UpdateError reports a failure in the download, verify, extract or install
// pipeline. Partial artifacts are removed before it is returned.
type UpdateError struct {
	Op   string
	Pack string
	Err  error
}

func (e *UpdateError) Error() string {
	if e.Pack == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Pack, e.Err)
}

func (e *UpdateError) Unwrap() error { return e.Err }

// ManagerError wraps any failure surfaced by a lifecycle operation.
type ManagerError struct {
	Op   string
	Pack string
	Err  error
}

func (e *ManagerError) Error() string {
	if e.Pack == "" {
		return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Pack, e.Err)
}

func (e *ManagerError) Unwrap() error { return e.Err }
