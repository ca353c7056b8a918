// Package feederrors provides sentinel and custom error types for the feed engine.
package feederrors

// ErrSourceUnavailable is the sentinel for a candidate source whose backing
// query failed. The orchestrator recovers locally by treating the source as
// an empty list.
var ErrSourceUnavailable = &SourceUnavailableError{}

// SourceUnavailableError reports that one candidate generator's backing
// query failed. Source names the generator ("personal", "trending", "fresh").
type SourceUnavailableError struct {
	Source  string
	Message string
}

// NewSourceUnavailableError creates a SourceUnavailableError for a source.
func NewSourceUnavailableError(source, message string) *SourceUnavailableError {
	return &SourceUnavailableError{Source: source, Message: message}
}

// Error implements the error interface.
func (e *SourceUnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Source != "" {
		return "candidate source unavailable: " + e.Source
	}

	return "candidate source unavailable"
}

// Is implements the error interface for error comparison.
func (e *SourceUnavailableError) Is(target error) bool {
	_, ok := target.(*SourceUnavailableError)

	return ok
}

// ErrHydration is the sentinel for a failed video-metadata hydration.
// Hydration failures are fatal to the request: a feed page without
// metadata cannot be rendered.
var ErrHydration = &HydrationError{}

// HydrationError reports that video metadata could not be fetched for the
// final feed page.
type HydrationError struct {
	Message string
}

// NewHydrationError creates a HydrationError with a custom message.
func NewHydrationError(message string) *HydrationError {
	return &HydrationError{Message: message}
}

// Error implements the error interface.
func (e *HydrationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "video hydration failed"
}

// Is implements the error interface for error comparison.
func (e *HydrationError) Is(target error) bool {
	_, ok := target.(*HydrationError)

	return ok
}

// ErrImpressionWrite is the sentinel for a failed impression batch write.
// Also fatal to the request: serving a page without recording impressions
// would corrupt future anti-repeat exclusion.
var ErrImpressionWrite = &ImpressionWriteError{}

// ImpressionWriteError reports that the impression batch for a feed page
// could not be recorded.
type ImpressionWriteError struct {
	Message string
}

// NewImpressionWriteError creates an ImpressionWriteError with a custom message.
func NewImpressionWriteError(message string) *ImpressionWriteError {
	return &ImpressionWriteError{Message: message}
}

// Error implements the error interface.
func (e *ImpressionWriteError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return "impression write failed"
}

// Is implements the error interface for error comparison.
func (e *ImpressionWriteError) Is(target error) bool {
	_, ok := target.(*ImpressionWriteError)

	return ok
}

// ErrNotFound represents a "not found" error.
// Use when a requested resource doesn't exist.
var ErrNotFound = &NotFoundError{}

// NotFoundError is a sentinel error for resources that are not found.
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a NotFoundError with a custom message.
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{Resource: resource, Message: message}
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Resource != "" {
		return e.Resource + " not found"
	}

	return "resource not found"
}

// Is implements the error interface for error comparison.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)

	return ok
}

// ErrValidation represents a validation error.
// Use when client input fails validation.
var ErrValidation = &ValidationError{}

// ValidationError is a sentinel error for validation failures.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError with a custom message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	if e.Field != "" {
		return "validation failed for field: " + e.Field
	}

	return "validation error"
}

// Is implements the error interface for error comparison.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)

	return ok
}
