package apperrors

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	// ErrMissingRelease is returned when a run is requested without both
	// terminology release identifiers. Fatal before the run starts.
	ErrMissingRelease = errors.New("missing terminology release identifier")
	// ErrStoreUnavailable wraps persistence failures that abort a run.
	// Already-flushed records stay active; the run is marked incomplete.
	ErrStoreUnavailable = errors.New("record store unavailable")
	// ErrRunIncomplete marks a run that was cancelled or interrupted after
	// some terms were already persisted.
	ErrRunIncomplete = errors.New("mapping run incomplete")
	ErrInvalidScore  = errors.New("validation score must be in [0,1]")
)
