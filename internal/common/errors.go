// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Validation errors.
	ErrInvalidInput = errors.New("invalid input")

	// Authorization errors. ErrAccessDenied means the resource exists but
	// is not owned by the caller; ErrPermissionDenied means the caller's
	// permission flags forbid the operation.
	ErrAccessDenied     = errors.New("access denied")
	ErrPermissionDenied = errors.New("permission denied")

	// Folder-tree errors.
	ErrConflictingName   = errors.New("name already exists in this location")
	ErrCircularReference = errors.New("cannot move folder into its own subtree")
	ErrConflict          = errors.New("folder is not empty")

	// Quota errors.
	ErrQuotaExceeded = errors.New("storage quota exceeded")

	// Object-store errors. Details are logged at the call site; the
	// message exposed to callers stays sanitized.
	ErrUpstreamStorage = errors.New("object storage error")

	// Auth errors (boundary layer).
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")

	// Generic internal failure.
	ErrInternal = errors.New("internal error")
)
